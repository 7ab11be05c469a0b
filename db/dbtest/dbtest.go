// Package dbtest provides sqlmock-backed connection pools for data-layer tests.
package dbtest

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens-ingestion-backend/db"
)

// OpenMock returns a DBConnectionPool backed by sqlmock. The pool is closed and the mock
// expectations are asserted when the test finishes.
func OpenMock(t *testing.T) (db.DBConnectionPool, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(mockDB, "postgres")
	pool := db.NewDBConnectionPoolFromSqlxDB(sqlxDB, "postgres://sqlmock")

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = sqlxDB.Close()
	})

	return pool, mock
}
