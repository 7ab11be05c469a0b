package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"github.com/storelens/storelens-ingestion-backend/internal/monitor"
)

type QueryType string

const (
	DeleteQueryType    QueryType = "DELETE"
	InsertQueryType    QueryType = "INSERT"
	SelectQueryType    QueryType = "SELECT"
	UpdateQueryType    QueryType = "UPDATE"
	UndefinedQueryType QueryType = "UNDEFINED"
)

// SQLExecuterWithMetrics wraps a SQLExecuter and reports the duration of every query to the
// monitor service, labeled by query type and outcome.
type SQLExecuterWithMetrics struct {
	SQLExecuter
	monitorService monitor.MonitorServiceInterface
}

func NewSQLExecuterWithMetrics(sqlExec SQLExecuter, monitorService monitor.MonitorServiceInterface) (*SQLExecuterWithMetrics, error) {
	return &SQLExecuterWithMetrics{
		SQLExecuter:    sqlExec,
		monitorService: monitorService,
	}, nil
}

var _ SQLExecuter = (*SQLExecuterWithMetrics)(nil)

func (sqlExec *SQLExecuterWithMetrics) monitorDBQueryDuration(duration time.Duration, query string, err error) {
	labels := monitor.DBQueryLabels{
		QueryType: string(getQueryType(query)),
	}
	if errMetric := sqlExec.monitorService.MonitorDBQueryDuration(duration, getMetricTag(err), labels); errMetric != nil {
		log.Errorf("monitoring db query duration: %s", errMetric)
	}
}

func (sqlExec *SQLExecuterWithMetrics) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	then := time.Now()
	err := sqlExec.SQLExecuter.GetContext(ctx, dest, query, args...)
	sqlExec.monitorDBQueryDuration(time.Since(then), query, err)
	return err
}

func (sqlExec *SQLExecuterWithMetrics) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	then := time.Now()
	err := sqlExec.SQLExecuter.SelectContext(ctx, dest, query, args...)
	sqlExec.monitorDBQueryDuration(time.Since(then), query, err)
	return err
}

func (sqlExec *SQLExecuterWithMetrics) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	then := time.Now()
	result, err := sqlExec.SQLExecuter.ExecContext(ctx, query, args...)
	sqlExec.monitorDBQueryDuration(time.Since(then), query, err)
	return result, err
}

func (sqlExec *SQLExecuterWithMetrics) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	then := time.Now()
	rows, err := sqlExec.SQLExecuter.QueryContext(ctx, query, args...)
	sqlExec.monitorDBQueryDuration(time.Since(then), query, err)
	return rows, err
}

func (sqlExec *SQLExecuterWithMetrics) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	then := time.Now()
	rows, err := sqlExec.SQLExecuter.QueryxContext(ctx, query, args...)
	sqlExec.monitorDBQueryDuration(time.Since(then), query, err)
	return rows, err
}

func (sqlExec *SQLExecuterWithMetrics) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	then := time.Now()
	row := sqlExec.SQLExecuter.QueryRowxContext(ctx, query, args...)
	sqlExec.monitorDBQueryDuration(time.Since(then), query, row.Err())
	return row
}

func getMetricTag(err error) monitor.MetricTag {
	if err != nil {
		return monitor.FailureQueryDurationTag
	}
	return monitor.SuccessfulQueryDurationTag
}

func getQueryType(query string) QueryType {
	words := strings.Fields(strings.TrimSpace(query))
	if len(words) == 0 {
		return UndefinedQueryType
	}
	for _, word := range []QueryType{DeleteQueryType, InsertQueryType, SelectQueryType, UpdateQueryType} {
		if string(word) == strings.ToUpper(words[0]) {
			return word
		}
	}
	return UndefinedQueryType
}
