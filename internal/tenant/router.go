package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lib/pq"

	"github.com/storelens/storelens-ingestion-backend/db"
)

var (
	ErrNoDataSourcesAvailable = errors.New("no data sources are available")

	// ErrTenantNotProvisioned is returned when the tenant's dedicated database does not exist.
	// Callers retry at the job level, not here.
	ErrTenantNotProvisioned = errors.New("tenant database is not provisioned")
)

// pqInvalidCatalogName is the postgres error code for connecting to a database that does not exist.
const pqInvalidCatalogName = "3D000"

// ConnectionError wraps a network or authentication failure while opening a tenant database.
type ConnectionError struct {
	TenantID string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to the database of tenant %s: %s", e.TenantID, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// MultiTenantDataSourceRouter resolves a tenant to its dedicated database connection pool. It
// caches one pool per tenant for the lifetime of the process; pools are never shared across
// tenants.
type MultiTenantDataSourceRouter struct {
	dataSources   sync.Map
	tenantManager ManagerInterface
	mu            sync.Mutex

	// openPool is swapped out in tests to avoid dialing a real database.
	openPool func(dataSourceName string) (db.DBConnectionPool, error)
}

func NewMultiTenantDataSourceRouter(tenantManager ManagerInterface) *MultiTenantDataSourceRouter {
	return &MultiTenantDataSourceRouter{
		tenantManager: tenantManager,
		openPool:      db.OpenDBConnectionPool,
	}
}

// GetDataSource returns the connection pool for the tenant carried by the context.
func (m *MultiTenantDataSourceRouter) GetDataSource(ctx context.Context) (db.DBConnectionPool, error) {
	currentTenant, err := GetTenantFromContext(ctx)
	if err != nil {
		return nil, ErrTenantNotFoundInContext
	}

	return m.GetDataSourceForTenant(ctx, currentTenant.ID)
}

// GetDataSourceForTenant returns the connection pool for the given tenant if one is cached,
// otherwise opens a new one.
func (m *MultiTenantDataSourceRouter) GetDataSourceForTenant(ctx context.Context, tenantID string) (db.DBConnectionPool, error) {
	canonicalID, err := CanonicalID(tenantID)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing tenant ID %q: %w", tenantID, err)
	}

	value, exists := m.dataSources.Load(canonicalID)
	if exists {
		return value.(db.DBConnectionPool), nil
	}

	return m.getOrCreateDataSourceForTenantWithLock(ctx, canonicalID)
}

func (m *MultiTenantDataSourceRouter) getOrCreateDataSourceForTenantWithLock(ctx context.Context, tenantID string) (db.DBConnectionPool, error) {
	// Acquire the lock only if the data source was not found.
	m.mu.Lock()
	defer m.mu.Unlock()

	// Fetch again in case the data source was created by another goroutine.
	value, exists := m.dataSources.Load(tenantID)
	if exists {
		return value.(db.DBConnectionPool), nil
	}

	u, err := m.tenantManager.GetDSNForTenant(ctx, tenantID)
	if err != nil || u == "" {
		return nil, fmt.Errorf("getting database DSN for tenant %s: %w", tenantID, err)
	}

	dbcp, err := m.openPool(u)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqInvalidCatalogName {
			return nil, fmt.Errorf("tenant %s: %w", tenantID, ErrTenantNotProvisioned)
		}
		return nil, &ConnectionError{TenantID: tenantID, Err: err}
	}

	m.dataSources.Store(tenantID, dbcp)

	return dbcp, nil
}

// GetAllDataSources returns all the cached connection pools.
func (m *MultiTenantDataSourceRouter) GetAllDataSources() ([]db.DBConnectionPool, error) {
	var pools []db.DBConnectionPool
	m.dataSources.Range(func(_, value interface{}) bool {
		pools = append(pools, value.(db.DBConnectionPool))
		return true
	})
	return pools, nil
}

// AnyDataSource returns any cached connection pool.
func (m *MultiTenantDataSourceRouter) AnyDataSource() (db.DBConnectionPool, error) {
	var anyDBCP db.DBConnectionPool
	var found bool
	m.dataSources.Range(func(_, value interface{}) bool {
		anyDBCP = value.(db.DBConnectionPool)
		found = true
		return false
	})
	if !found {
		return nil, ErrNoDataSourcesAvailable
	}
	return anyDBCP, nil
}

// make sure *MultiTenantDataSourceRouter implements DataSourceRouter:
var _ db.DataSourceRouter = (*MultiTenantDataSourceRouter)(nil)
