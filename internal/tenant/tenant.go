package tenant

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

var (
	ErrEmptyTenantID           = errors.New("tenant ID cannot be empty")
	ErrEmptyTenantName         = errors.New("tenant name cannot be empty")
	ErrTenantNotFound          = errors.New("tenant not found")
	ErrDuplicatedTenantName    = errors.New("duplicated tenant name")
	ErrSourceNotConfigured     = errors.New("source credentials not configured for tenant")
	ErrTenantNotFoundInContext = errors.New("tenant not found in context")
)

// Tenant is an isolated customer account with its own dedicated database.
type Tenant struct {
	ID        string       `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Status    TenantStatus `json:"status" db:"status"`
	IsDefault bool         `json:"is_default" db:"is_default"`

	// Per-service enablement flags, refreshed when an administrator revalidates the external
	// credentials. The error strings hold the last validation failure, if any.
	WarehouseEnabled    bool    `json:"warehouse_enabled" db:"warehouse_enabled"`
	WarehouseError      *string `json:"warehouse_error" db:"warehouse_error"`
	FileTransferEnabled bool    `json:"file_transfer_enabled" db:"file_transfer_enabled"`
	FileTransferError   *string `json:"file_transfer_error" db:"file_transfer_error"`
	MailRelayEnabled    bool    `json:"mail_relay_enabled" db:"mail_relay_enabled"`
	MailRelayError      *string `json:"mail_relay_error" db:"mail_relay_error"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" db:"deleted_at"`
}

type TenantStatus string

const (
	CreatedTenantStatus     TenantStatus = "TENANT_CREATED"
	ActivatedTenantStatus   TenantStatus = "TENANT_ACTIVATED"
	DeactivatedTenantStatus TenantStatus = "TENANT_DEACTIVATED"
)

func (s TenantStatus) IsValid() bool {
	validStatuses := []TenantStatus{CreatedTenantStatus, ActivatedTenantStatus, DeactivatedTenantStatus}
	return slices.Contains(validStatuses, s)
}

// ServiceType identifies an external service a tenant may be enabled for.
type ServiceType string

const (
	ServiceTypeWarehouse    ServiceType = "warehouse"
	ServiceTypeFileTransfer ServiceType = "file_transfer"
	ServiceTypeMailRelay    ServiceType = "mail_relay"
)

func (s ServiceType) IsValid() bool {
	validServices := []ServiceType{ServiceTypeWarehouse, ServiceTypeFileTransfer, ServiceTypeMailRelay}
	return slices.Contains(validServices, s)
}

// ServiceStatus is the enablement state of one external service for a tenant.
type ServiceStatus struct {
	Enabled bool    `json:"enabled"`
	Error   *string `json:"error"`
}

// ServiceStatuses returns the tenant's per-service enablement map.
func (t *Tenant) ServiceStatuses() map[ServiceType]ServiceStatus {
	return map[ServiceType]ServiceStatus{
		ServiceTypeWarehouse:    {Enabled: t.WarehouseEnabled, Error: t.WarehouseError},
		ServiceTypeFileTransfer: {Enabled: t.FileTransferEnabled, Error: t.FileTransferError},
		ServiceTypeMailRelay:    {Enabled: t.MailRelayEnabled, Error: t.MailRelayError},
	}
}

// tenantIDNamespace is the fixed UUIDv5 namespace used to map non-UUID tenant identifiers into
// the canonical UUID space.
var tenantIDNamespace = uuid.MustParse("8f9a1f60-6bd2-4a2d-9c46-b4f3a670c1de")

// CanonicalID normalizes a tenant identifier to a single canonical UUID text form, so the same
// logical tenant routes identically no matter how its identifier was encoded by the caller.
// Identifiers that are not valid UUIDs are deterministically mapped through a stable hash; this
// is a compatibility shim for legacy callers, not a security boundary.
func CanonicalID(raw string) (string, error) {
	if raw == "" {
		return "", ErrEmptyTenantID
	}

	if id, err := uuid.Parse(raw); err == nil {
		return id.String(), nil
	}

	return uuid.NewSHA1(tenantIDNamespace, []byte(raw)).String(), nil
}
