//nolint:wrapcheck // Wrapper structs, no extra context needed
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// DataSourceRouter resolves the DBConnectionPool to use for the tenant carried by the context.
type DataSourceRouter interface {
	GetDataSource(ctx context.Context) (DBConnectionPool, error)
	GetAllDataSources() ([]DBConnectionPool, error)
	AnyDataSource() (DBConnectionPool, error)
}

// SQLExecutorWithRouter is a SQLExecuter that resolves the target tenant database per call through
// a DataSourceRouter.
type SQLExecutorWithRouter struct {
	dataSourceRouter DataSourceRouter
}

func NewSQLExecutorWithRouter(router DataSourceRouter) (*SQLExecutorWithRouter, error) {
	if router == nil {
		return nil, fmt.Errorf("router is nil in NewSQLExecutorWithRouter")
	}
	return &SQLExecutorWithRouter{dataSourceRouter: router}, nil
}

func (s SQLExecutorWithRouter) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	dbcp, err := s.dataSourceRouter.GetDataSource(ctx)
	if err != nil {
		return fmt.Errorf("getting data source from context in GetContext: %w", err)
	}
	return dbcp.GetContext(ctx, dest, query, args...)
}

func (s SQLExecutorWithRouter) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	dbcp, err := s.dataSourceRouter.GetDataSource(ctx)
	if err != nil {
		return fmt.Errorf("getting data source from context in SelectContext: %w", err)
	}
	return dbcp.SelectContext(ctx, dest, query, args...)
}

func (s SQLExecutorWithRouter) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	dbcp, err := s.dataSourceRouter.GetDataSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting data source from context in ExecContext: %w", err)
	}
	return dbcp.ExecContext(ctx, query, args...)
}

func (s SQLExecutorWithRouter) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	dbcp, err := s.dataSourceRouter.GetDataSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting data source from context in QueryContext: %w", err)
	}
	return dbcp.QueryContext(ctx, query, args...)
}

func (s SQLExecutorWithRouter) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	dbcp, err := s.dataSourceRouter.GetDataSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting data source from context in QueryxContext: %w", err)
	}
	return dbcp.QueryxContext(ctx, query, args...)
}

func (s SQLExecutorWithRouter) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	dbcp, err := s.dataSourceRouter.GetDataSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting data source from context in PrepareContext: %w", err)
	}
	return dbcp.PrepareContext(ctx, query)
}

func (s SQLExecutorWithRouter) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	dbcp, err := s.dataSourceRouter.GetDataSource(ctx)
	if err != nil {
		return nil
	}
	return dbcp.QueryRowxContext(ctx, query, args...)
}

func (s SQLExecutorWithRouter) Rebind(query string) string {
	dbcp, err := s.dataSourceRouter.AnyDataSource()
	if err != nil {
		return sqlx.Rebind(sqlx.DOLLAR, query)
	}
	return dbcp.Rebind(query)
}

func (s SQLExecutorWithRouter) DriverName() string {
	dbcp, err := s.dataSourceRouter.AnyDataSource()
	if err != nil {
		return ""
	}
	return dbcp.DriverName()
}

// make sure *SQLExecutorWithRouter implements SQLExecuter:
var _ SQLExecuter = (*SQLExecutorWithRouter)(nil)

// ConnectionPoolWithRouter implements the DBConnectionPool interface on top of a DataSourceRouter,
// so a single Models instance can serve every tenant database.
type ConnectionPoolWithRouter struct {
	SQLExecutorWithRouter
}

// NewConnectionPoolWithRouter creates a new ConnectionPoolWithRouter.
func NewConnectionPoolWithRouter(dataSourceRouter DataSourceRouter) (*ConnectionPoolWithRouter, error) {
	sqlExecutor, err := NewSQLExecutorWithRouter(dataSourceRouter)
	if err != nil {
		return nil, fmt.Errorf("creating new sqlExecutor for connection pool with router: %w", err)
	}
	return &ConnectionPoolWithRouter{SQLExecutorWithRouter: *sqlExecutor}, nil
}

func (m ConnectionPoolWithRouter) BeginTxx(ctx context.Context, opts *sql.TxOptions) (DBTransaction, error) {
	dbcp, err := m.dataSourceRouter.GetDataSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting data source from context in BeginTxx: %w", err)
	}
	return dbcp.BeginTxx(ctx, opts)
}

func (m ConnectionPoolWithRouter) Close() error {
	dbcps, err := m.dataSourceRouter.GetAllDataSources()
	if err != nil {
		return fmt.Errorf("getting all data sources in Close: %w", err)
	}
	for _, dbcp := range dbcps {
		if err = dbcp.Close(); err != nil {
			return fmt.Errorf("closing data source in Close: %w", err)
		}
	}
	return nil
}

func (m ConnectionPoolWithRouter) Ping(ctx context.Context) error {
	dbcp, err := m.dataSourceRouter.GetDataSource(ctx)
	if err != nil {
		return fmt.Errorf("getting data source from context in Ping: %w", err)
	}
	return dbcp.Ping(ctx)
}

func (m ConnectionPoolWithRouter) SqlDB(ctx context.Context) (*sql.DB, error) {
	dbcp, err := m.dataSourceRouter.GetDataSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting data source from context in SqlDB: %w", err)
	}
	return dbcp.SqlDB(ctx)
}

func (m ConnectionPoolWithRouter) SqlxDB(ctx context.Context) (*sqlx.DB, error) {
	dbcp, err := m.dataSourceRouter.GetDataSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting data source from context in SqlxDB: %w", err)
	}
	return dbcp.SqlxDB(ctx)
}

func (m ConnectionPoolWithRouter) DSN(ctx context.Context) (string, error) {
	dbcp, err := m.dataSourceRouter.GetDataSource(ctx)
	if err != nil {
		return "", fmt.Errorf("getting data source from context in DSN: %w", err)
	}
	return dbcp.DSN(ctx)
}

// make sure *ConnectionPoolWithRouter implements DBConnectionPool:
var _ DBConnectionPool = (*ConnectionPoolWithRouter)(nil)
