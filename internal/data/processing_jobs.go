package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/storelens/storelens-ingestion-backend/db"
	"github.com/storelens/storelens-ingestion-backend/internal/utils"
)

// pqUniqueViolation is the postgres error code for unique constraint violations.
const pqUniqueViolation = "23505"

// ProcessingJob is one tenant-scoped ingestion job. The row is the single source of truth for
// the job's lifecycle.
type ProcessingJob struct {
	JobID            string       `json:"job_id" db:"job_id"`
	TenantID         string       `json:"tenant_id" db:"tenant_id"`
	Status           JobStatus    `json:"status" db:"status"`
	DataTypes        DataTypeList `json:"data_types" db:"data_types"`
	StartDate        time.Time    `json:"start_date" db:"start_date"`
	EndDate          time.Time    `json:"end_date" db:"end_date"`
	Progress         CountMap     `json:"progress" db:"progress"`
	RecordsProcessed CountMap     `json:"records_processed" db:"records_processed"`
	ErrorMessage     *string      `json:"error_message" db:"error_message"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	StartedAt        *time.Time   `json:"started_at" db:"started_at"`
	CompletedAt      *time.Time   `json:"completed_at" db:"completed_at"`
}

// ProcessingJobInsert is the payload to create a job row in the queued state.
type ProcessingJobInsert struct {
	JobID     string       `db:"job_id"`
	TenantID  string       `db:"tenant_id"`
	DataTypes DataTypeList `db:"data_types"`
	StartDate time.Time    `db:"start_date"`
	EndDate   time.Time    `db:"end_date"`
}

func (i *ProcessingJobInsert) Validate() error {
	if strings.TrimSpace(i.JobID) == "" {
		return fmt.Errorf("job_id is required")
	}
	if strings.TrimSpace(i.TenantID) == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if err := i.DataTypes.Validate(); err != nil {
		return fmt.Errorf("data_types are invalid: %w", err)
	}
	if i.StartDate.IsZero() || i.EndDate.IsZero() {
		return fmt.Errorf("start_date and end_date are required")
	}
	if i.EndDate.Before(i.StartDate) {
		return fmt.Errorf("end_date cannot be before start_date")
	}
	return nil
}

// ProcessingJobUpdate carries the optional fields of a status transition. Nil fields are left
// untouched.
type ProcessingJobUpdate struct {
	Status           JobStatus
	StartedAt        *time.Time
	ErrorMessage     *string
	Progress         CountMap
	RecordsProcessed CountMap
}

type ProcessingJobModel struct {
	dbConnectionPool db.DBConnectionPool
}

const selectProcessingJobFields = `
	job_id, tenant_id, status, data_types, start_date, end_date,
	progress, records_processed, error_message,
	created_at, started_at, completed_at
`

// Create inserts a new job row in the queued state. Returns ErrDuplicateJobID if the id already
// exists; callers generate sufficiently random ids to make this vanishingly rare.
func (m *ProcessingJobModel) Create(ctx context.Context, sqlExec db.SQLExecuter, insert ProcessingJobInsert) (*ProcessingJob, error) {
	if err := insert.Validate(); err != nil {
		return nil, fmt.Errorf("validating processing job insert: %w", err)
	}

	q := fmt.Sprintf(`
		INSERT INTO processing_jobs (job_id, tenant_id, status, data_types, start_date, end_date, progress, records_processed)
		VALUES ($1, $2, $3, $4, $5, $6, '{}', '{}')
		RETURNING %s
	`, selectProcessingJobFields)

	var job ProcessingJob
	err := sqlExec.GetContext(ctx, &job, q, insert.JobID, insert.TenantID, QueuedJobStatus, insert.DataTypes, insert.StartDate, insert.EndDate)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return nil, ErrDuplicateJobID
		}
		return nil, fmt.Errorf("inserting processing job %s: %w", insert.JobID, err)
	}
	return &job, nil
}

// UpdateStatus applies a monotonic status transition. A transition into a terminal status also
// stamps completed_at and is the last write the row ever receives. Returns
// ErrInvalidStatusTransition when the row is not in a status the target is reachable from, which
// makes retried updates and monitor sweeps no-ops on already-terminal jobs.
func (m *ProcessingJobModel) UpdateStatus(ctx context.Context, sqlExec db.SQLExecuter, jobID string, update ProcessingJobUpdate) (*ProcessingJob, error) {
	if !update.Status.IsValid() {
		return nil, fmt.Errorf("invalid job status %q", update.Status)
	}

	sourceStatuses := update.Status.SourceStatuses()
	if len(sourceStatuses) == 0 {
		return nil, fmt.Errorf("%w: no status transitions into %q", ErrInvalidStatusTransition, update.Status)
	}

	q := fmt.Sprintf(`
		UPDATE processing_jobs
		SET
			status = $1,
			started_at = COALESCE($2, started_at),
			error_message = COALESCE($3, error_message),
			progress = COALESCE($4, progress),
			records_processed = COALESCE($5, records_processed),
			completed_at = CASE WHEN $6 THEN NOW() ELSE completed_at END
		WHERE job_id = $7 AND status = ANY($8)
		RETURNING %s
	`, selectProcessingJobFields)

	var progress, recordsProcessed interface{}
	if update.Progress != nil {
		progress = update.Progress
	}
	if update.RecordsProcessed != nil {
		recordsProcessed = update.RecordsProcessed
	}

	var job ProcessingJob
	err := sqlExec.GetContext(ctx, &job, q,
		update.Status, update.StartedAt, update.ErrorMessage, progress, recordsProcessed,
		update.Status.IsTerminal(), jobID, pq.Array(utils.MapSlice(sourceStatuses, func(s JobStatus) string { return string(s) })),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, m.classifyMissedUpdate(ctx, sqlExec, jobID, update.Status)
		}
		return nil, fmt.Errorf("updating processing job %s to status %s: %w", jobID, update.Status, err)
	}
	return &job, nil
}

// classifyMissedUpdate distinguishes a missing row from a row already past the requested
// transition.
func (m *ProcessingJobModel) classifyMissedUpdate(ctx context.Context, sqlExec db.SQLExecuter, jobID string, target JobStatus) error {
	job, err := m.Get(ctx, sqlExec, jobID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("fetching processing job %s after a missed update: %w", jobID, err)
	}
	return fmt.Errorf("%w: job %s is %s, cannot become %s", ErrInvalidStatusTransition, jobID, job.Status, target)
}

// Get returns the job with the given id.
func (m *ProcessingJobModel) Get(ctx context.Context, sqlExec db.SQLExecuter, jobID string) (*ProcessingJob, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM processing_jobs
		WHERE job_id = $1
	`, selectProcessingJobFields)

	var job ProcessingJob
	if err := sqlExec.GetContext(ctx, &job, q, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("selecting processing job %s: %w", jobID, err)
	}
	return &job, nil
}

type processingJobWithTotal struct {
	ProcessingJob
	TotalCount int `db:"total_count"`
}

// List returns one page of jobs plus the total count in a single round trip, newest first.
func (m *ProcessingJobModel) List(ctx context.Context, sqlExec db.SQLExecuter, page, limit int) ([]ProcessingJob, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	q := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM processing_jobs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, selectProcessingJobFields)

	rows := []processingJobWithTotal{}
	if err := sqlExec.SelectContext(ctx, &rows, q, limit, (page-1)*limit); err != nil {
		return nil, 0, fmt.Errorf("listing processing jobs: %w", err)
	}

	total := 0
	jobs := make([]ProcessingJob, 0, len(rows))
	for _, row := range rows {
		total = row.TotalCount
		jobs = append(jobs, row.ProcessingJob)
	}
	return jobs, total, nil
}

// FailStuck force-fails every job stuck in the processing status for longer than olderThan. The
// status filter makes re-runs no-ops on rows a previous sweep already failed.
func (m *ProcessingJobModel) FailStuck(ctx context.Context, sqlExec db.SQLExecuter, olderThan time.Duration, errorMessage string) ([]ProcessingJob, error) {
	q := fmt.Sprintf(`
		UPDATE processing_jobs
		SET status = $1, error_message = $2, completed_at = NOW()
		WHERE status = $3 AND COALESCE(started_at, created_at) < NOW() - $4::interval
		RETURNING %s
	`, selectProcessingJobFields)

	jobs := []ProcessingJob{}
	err := sqlExec.SelectContext(ctx, &jobs, q, FailedJobStatus, errorMessage, ProcessingJobStatus, intervalArg(olderThan))
	if err != nil {
		return nil, fmt.Errorf("failing stuck processing jobs: %w", err)
	}
	return jobs, nil
}

// GetQueuedOlderThan returns jobs that have sat in the queued status for longer than olderThan,
// which means their queue message was likely never published or consumed.
func (m *ProcessingJobModel) GetQueuedOlderThan(ctx context.Context, sqlExec db.SQLExecuter, olderThan time.Duration) ([]ProcessingJob, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM processing_jobs
		WHERE status = $1 AND created_at < NOW() - $2::interval
		ORDER BY created_at
	`, selectProcessingJobFields)

	jobs := []ProcessingJob{}
	err := sqlExec.SelectContext(ctx, &jobs, q, QueuedJobStatus, intervalArg(olderThan))
	if err != nil {
		return nil, fmt.Errorf("selecting queued-too-long processing jobs: %w", err)
	}
	return jobs, nil
}

// GetNonTerminalOverlapping returns non-terminal jobs for the tenant whose date range overlaps
// [startDate, endDate] and whose data types intersect dataTypes. Intake uses it to keep a single
// in-flight job per tenant range.
func (m *ProcessingJobModel) GetNonTerminalOverlapping(ctx context.Context, sqlExec db.SQLExecuter, tenantID string, dataTypes DataTypeList, startDate, endDate time.Time) ([]ProcessingJob, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM processing_jobs
		WHERE tenant_id = $1
			AND status = ANY($2)
			AND start_date <= $3 AND end_date >= $4
			AND data_types::jsonb ?| $5
	`, selectProcessingJobFields)

	nonTerminal := pq.Array([]string{string(QueuedJobStatus), string(ProcessingJobStatus)})
	typeNames := pq.Array(utils.MapSlice(dataTypes, func(d DataType) string { return string(d) }))

	jobs := []ProcessingJob{}
	err := sqlExec.SelectContext(ctx, &jobs, q, tenantID, nonTerminal, endDate, startDate, typeNames)
	if err != nil {
		return nil, fmt.Errorf("selecting overlapping processing jobs for tenant %s: %w", tenantID, err)
	}
	return jobs, nil
}

// CountByStatus returns the number of jobs per status. The queue-depth gauge reads it across
// every tenant database.
func (m *ProcessingJobModel) CountByStatus(ctx context.Context, sqlExec db.SQLExecuter) (map[JobStatus]int, error) {
	const q = `
		SELECT status, COUNT(*) AS count
		FROM processing_jobs
		GROUP BY status
	`

	rows := []struct {
		Status JobStatus `db:"status"`
		Count  int       `db:"count"`
	}{}
	if err := sqlExec.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("counting processing jobs by status: %w", err)
	}

	counts := make(map[JobStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func intervalArg(d time.Duration) string {
	return fmt.Sprintf("%d seconds", int(d.Seconds()))
}
