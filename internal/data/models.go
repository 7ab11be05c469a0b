package data

import (
	"errors"

	"github.com/storelens/storelens-ingestion-backend/db"
)

var (
	ErrRecordNotFound          = errors.New("record not found")
	ErrDuplicateJobID          = errors.New("job ID already exists")
	ErrInvalidStatusTransition = errors.New("invalid job status transition")
	ErrMissingInput            = errors.New("missing input")
)

// Models aggregates the per-entity stores of one tenant database. When built over a
// db.ConnectionPoolWithRouter the same instance serves every tenant, routed by the tenant carried
// in the context.
type Models struct {
	ProcessingJobs   *ProcessingJobModel
	EmailJobs        *EmailJobModel
	Events           *EventModel
	Dimensions       *DimensionModel
	DBConnectionPool db.DBConnectionPool
}

func NewModels(dbConnectionPool db.DBConnectionPool) (*Models, error) {
	if dbConnectionPool == nil {
		return nil, errors.New("dbConnectionPool is required for NewModels")
	}
	return &Models{
		ProcessingJobs:   &ProcessingJobModel{dbConnectionPool: dbConnectionPool},
		EmailJobs:        &EmailJobModel{dbConnectionPool: dbConnectionPool},
		Events:           &EventModel{dbConnectionPool: dbConnectionPool},
		Dimensions:       &DimensionModel{dbConnectionPool: dbConnectionPool},
		DBConnectionPool: dbConnectionPool,
	}, nil
}
