package dependencyinjection

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/storelens/storelens-ingestion-backend/db"
	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
)

const (
	AdminDBConnectionPoolInstanceName = "admin_db_connection_pool_instance"
	MtnDBConnectionPoolInstanceName   = "mtn_db_connection_pool_instance"
)

type DBConnectionPoolOptions struct {
	AdminDatabaseURL string
}

// NewAdminDBConnectionPool creates a new admin db connection pool instance, or retrieves an
// instance that was already created before. The admin database holds the tenants directory.
func NewAdminDBConnectionPool(ctx context.Context, opts DBConnectionPoolOptions) (db.DBConnectionPool, error) {
	instanceName := AdminDBConnectionPoolInstanceName
	if instance, ok := GetInstance(instanceName); ok {
		if dbConnectionPoolInstance, ok2 := instance.(db.DBConnectionPool); ok2 {
			return dbConnectionPoolInstance, nil
		}
		return nil, fmt.Errorf("trying to cast admin DBConnectionPool for dependency injection")
	}

	log.WithContext(ctx).Info("⚙️ Setting up Admin DBConnectionPool")
	dbConnectionPool, err := db.OpenDBConnectionPool(opts.AdminDatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening admin DB connection pool: %w", err)
	}

	SetInstance(instanceName, dbConnectionPool)
	return dbConnectionPool, nil
}

// NewMtnDBConnectionPool creates a new multitenant db connection pool instance, or retrieves an
// instance that was already created before. The multitenant pool routes every query to the
// database of the tenant found in the context.
func NewMtnDBConnectionPool(ctx context.Context, opts DBConnectionPoolOptions) (db.DBConnectionPool, error) {
	instanceName := MtnDBConnectionPoolInstanceName
	if instance, ok := GetInstance(instanceName); ok {
		if dbConnectionPoolInstance, ok2 := instance.(db.DBConnectionPool); ok2 {
			return dbConnectionPoolInstance, nil
		}
		return nil, fmt.Errorf("trying to cast multitenant DBConnectionPool for dependency injection")
	}

	adminDBConnectionPool, err := NewAdminDBConnectionPool(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("opening admin DB connection pool from NewMtnDBConnectionPool: %w", err)
	}

	log.WithContext(ctx).Info("⚙️ Setting up Multi-tenant DBConnectionPool")
	tm := tenant.NewManager(tenant.WithDatabase(adminDBConnectionPool))
	tr := tenant.NewMultiTenantDataSourceRouter(tm)
	mtnDBConnectionPool, err := db.NewConnectionPoolWithRouter(tr)
	if err != nil {
		return nil, fmt.Errorf("opening multitenant DB connection pool: %w", err)
	}

	SetInstance(instanceName, mtnDBConnectionPool)
	return mtnDBConnectionPool, nil
}
