package tenant

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/storelens/storelens-ingestion-backend/db"
)

// CredentialMap holds the external-source credentials of one tenant service as stored in the
// tenants directory (jsonb column).
type CredentialMap map[string]string

// Value implements the driver.Valuer interface.
func (c CredentialMap) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshalling credential map: %w", err)
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface.
func (c *CredentialMap) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		*c = nil
		return nil
	default:
		return fmt.Errorf("unexpected credential map type %T", src)
	}
	if err := json.Unmarshal(b, c); err != nil {
		return fmt.Errorf("unmarshalling credential map: %w", err)
	}
	return nil
}

var (
	_ driver.Valuer = (CredentialMap)(nil)
	_ sql.Scanner   = (*CredentialMap)(nil)
)

// ManagerInterface is the contract of the tenants directory, backed by the admin database.
type ManagerInterface interface {
	AddTenant(ctx context.Context, name string) (*Tenant, error)
	GetAllTenants(ctx context.Context) ([]Tenant, error)
	GetTenantByID(ctx context.Context, tenantID string) (*Tenant, error)
	GetTenantServiceStatus(ctx context.Context, tenantID string) (map[ServiceType]ServiceStatus, error)
	UpdateServiceStatus(ctx context.Context, tenantID string, service ServiceType, enabled bool, validationError *string) error
	DeactivateTenant(ctx context.Context, tenantID string) error
	GetSourceCredentials(ctx context.Context, tenantID string, service ServiceType) (CredentialMap, error)
	GetDSNForTenant(ctx context.Context, tenantID string) (string, error)
}

// Manager implements ManagerInterface over the admin database connection pool.
type Manager struct {
	db db.DBConnectionPool
}

var _ ManagerInterface = (*Manager)(nil)

type Option func(m *Manager)

func NewManager(opts ...Option) *Manager {
	m := Manager{}
	for _, opt := range opts {
		opt(&m)
	}
	return &m
}

func WithDatabase(dbConnectionPool db.DBConnectionPool) Option {
	return func(m *Manager) {
		m.db = dbConnectionPool
	}
}

const selectTenantFields = `
	id, name, status, is_default,
	warehouse_enabled, warehouse_error,
	file_transfer_enabled, file_transfer_error,
	mail_relay_enabled, mail_relay_error,
	created_at, updated_at, deleted_at
`

// AddTenant inserts a new tenant row into the directory. The tenant starts in the created status
// with every external service disabled, and its ID is a freshly generated UUID.
func (m *Manager) AddTenant(ctx context.Context, name string) (*Tenant, error) {
	if name == "" {
		return nil, ErrEmptyTenantName
	}

	q := fmt.Sprintf(`
		INSERT INTO tenants (name)
		VALUES ($1)
		RETURNING %s
	`, selectTenantFields)

	var t Tenant
	if err := m.db.GetContext(ctx, &t, q, name); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "tenants_name_key" {
			return nil, ErrDuplicatedTenantName
		}
		return nil, fmt.Errorf("inserting tenant %s: %w", name, err)
	}
	return &t, nil
}

// GetAllTenants returns every tenant that is not soft-deactivated, ordered by name.
func (m *Manager) GetAllTenants(ctx context.Context) ([]Tenant, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM tenants
		WHERE deleted_at IS NULL AND status != $1
		ORDER BY name
	`, selectTenantFields)

	tenants := []Tenant{}
	if err := m.db.SelectContext(ctx, &tenants, q, DeactivatedTenantStatus); err != nil {
		return nil, fmt.Errorf("selecting all tenants: %w", err)
	}
	return tenants, nil
}

// GetTenantByID returns the tenant with the given identifier. The identifier is canonicalized
// before lookup, so legacy non-UUID encodings still resolve.
func (m *Manager) GetTenantByID(ctx context.Context, tenantID string) (*Tenant, error) {
	canonicalID, err := CanonicalID(tenantID)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing tenant ID %q: %w", tenantID, err)
	}

	q := fmt.Sprintf(`
		SELECT %s
		FROM tenants
		WHERE id = $1 AND deleted_at IS NULL
	`, selectTenantFields)

	var t Tenant
	if err = m.db.GetContext(ctx, &t, q, canonicalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("selecting tenant %s: %w", canonicalID, err)
	}
	return &t, nil
}

// GetTenantServiceStatus returns the per-service enablement map for the tenant.
func (m *Manager) GetTenantServiceStatus(ctx context.Context, tenantID string) (map[ServiceType]ServiceStatus, error) {
	t, err := m.GetTenantByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("getting tenant %s: %w", tenantID, err)
	}
	return t.ServiceStatuses(), nil
}

// UpdateServiceStatus flips one service enablement flag and records the last validation error.
func (m *Manager) UpdateServiceStatus(ctx context.Context, tenantID string, service ServiceType, enabled bool, validationError *string) error {
	if !service.IsValid() {
		return fmt.Errorf("invalid service type %q", service)
	}

	canonicalID, err := CanonicalID(tenantID)
	if err != nil {
		return fmt.Errorf("canonicalizing tenant ID %q: %w", tenantID, err)
	}

	q := fmt.Sprintf(`
		UPDATE tenants
		SET %[1]s_enabled = $1, %[1]s_error = $2, updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL
	`, service)

	result, err := m.db.ExecContext(ctx, q, enabled, validationError, canonicalID)
	if err != nil {
		return fmt.Errorf("updating %s status for tenant %s: %w", service, canonicalID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// DeactivateTenant soft-deactivates the tenant. Rows are never hard-deleted.
func (m *Manager) DeactivateTenant(ctx context.Context, tenantID string) error {
	canonicalID, err := CanonicalID(tenantID)
	if err != nil {
		return fmt.Errorf("canonicalizing tenant ID %q: %w", tenantID, err)
	}

	const q = `
		UPDATE tenants
		SET status = $1, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`

	result, err := m.db.ExecContext(ctx, q, DeactivatedTenantStatus, canonicalID)
	if err != nil {
		return fmt.Errorf("deactivating tenant %s: %w", canonicalID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// GetSourceCredentials returns the stored credentials of one tenant service. Returns
// ErrSourceNotConfigured when the tenant has no credentials for that service; not every tenant
// uses every source.
func (m *Manager) GetSourceCredentials(ctx context.Context, tenantID string, service ServiceType) (CredentialMap, error) {
	if !service.IsValid() {
		return nil, fmt.Errorf("invalid service type %q", service)
	}

	canonicalID, err := CanonicalID(tenantID)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing tenant ID %q: %w", tenantID, err)
	}

	const q = `
		SELECT credentials
		FROM tenant_source_credentials
		WHERE tenant_id = $1 AND service = $2
	`

	var credentials CredentialMap
	if err = m.db.GetContext(ctx, &credentials, q, canonicalID, service); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSourceNotConfigured
		}
		return nil, fmt.Errorf("selecting %s credentials for tenant %s: %w", service, canonicalID, err)
	}
	return credentials, nil
}

// GetDSNForTenant derives the tenant database DSN from the admin database DSN.
func (m *Manager) GetDSNForTenant(ctx context.Context, tenantID string) (string, error) {
	canonicalID, err := CanonicalID(tenantID)
	if err != nil {
		return "", fmt.Errorf("canonicalizing tenant ID %q: %w", tenantID, err)
	}

	dataSourceName, err := m.db.DSN(ctx)
	if err != nil {
		return "", fmt.Errorf("getting the admin database DSN: %w", err)
	}

	dsn, err := db.DSNForTenant(dataSourceName, canonicalID)
	if err != nil {
		return "", fmt.Errorf("deriving DSN for tenant %s: %w", canonicalID, err)
	}
	return dsn, nil
}
