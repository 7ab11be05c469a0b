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

// EmailSendingJob is one tenant-scoped report-email dispatch job. It shares the processing job
// lifecycle and adds per-recipient delivery counters that are updated while the job runs.
type EmailSendingJob struct {
	JobID        string         `json:"job_id" db:"job_id"`
	TenantID     string         `json:"tenant_id" db:"tenant_id"`
	Status       JobStatus      `json:"status" db:"status"`
	ReportDate   time.Time      `json:"report_date" db:"report_date"`
	BranchCodes  pq.StringArray `json:"branch_codes" db:"branch_codes"`
	TotalEmails  int            `json:"total_emails" db:"total_emails"`
	EmailsSent   int            `json:"emails_sent" db:"emails_sent"`
	EmailsFailed int            `json:"emails_failed" db:"emails_failed"`
	ErrorMessage *string        `json:"error_message" db:"error_message"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	StartedAt    *time.Time     `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at" db:"completed_at"`
}

// EmailSendingJobInsert is the payload to create an email job row in the queued state. A nil
// BranchCodes means the report covers every branch of the tenant.
type EmailSendingJobInsert struct {
	JobID       string
	TenantID    string
	ReportDate  time.Time
	BranchCodes []string
}

func (i *EmailSendingJobInsert) Validate() error {
	if strings.TrimSpace(i.JobID) == "" {
		return fmt.Errorf("job_id is required")
	}
	if strings.TrimSpace(i.TenantID) == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if i.ReportDate.IsZero() {
		return fmt.Errorf("report_date is required")
	}
	for _, code := range i.BranchCodes {
		if strings.TrimSpace(code) == "" {
			return fmt.Errorf("branch_codes cannot contain empty entries")
		}
	}
	return nil
}

// EmailSendingJobUpdate carries the optional fields of a status transition. Nil fields are left
// untouched.
type EmailSendingJobUpdate struct {
	Status       JobStatus
	StartedAt    *time.Time
	ErrorMessage *string
	TotalEmails  *int
}

type EmailJobModel struct {
	dbConnectionPool db.DBConnectionPool
}

const selectEmailJobFields = `
	job_id, tenant_id, status, report_date, branch_codes,
	total_emails, emails_sent, emails_failed, error_message,
	created_at, started_at, completed_at
`

// Create inserts a new email job row in the queued state. Returns ErrDuplicateJobID if the id
// already exists.
func (m *EmailJobModel) Create(ctx context.Context, sqlExec db.SQLExecuter, insert EmailSendingJobInsert) (*EmailSendingJob, error) {
	if err := insert.Validate(); err != nil {
		return nil, fmt.Errorf("validating email job insert: %w", err)
	}

	var branchCodes interface{}
	if insert.BranchCodes != nil {
		branchCodes = pq.StringArray(insert.BranchCodes)
	}

	q := fmt.Sprintf(`
		INSERT INTO email_jobs (job_id, tenant_id, status, report_date, branch_codes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s
	`, selectEmailJobFields)

	var job EmailSendingJob
	err := sqlExec.GetContext(ctx, &job, q, insert.JobID, insert.TenantID, QueuedJobStatus, insert.ReportDate, branchCodes)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return nil, ErrDuplicateJobID
		}
		return nil, fmt.Errorf("inserting email job %s: %w", insert.JobID, err)
	}
	return &job, nil
}

// UpdateStatus applies a monotonic status transition with the same guarantees as
// ProcessingJobModel.UpdateStatus.
func (m *EmailJobModel) UpdateStatus(ctx context.Context, sqlExec db.SQLExecuter, jobID string, update EmailSendingJobUpdate) (*EmailSendingJob, error) {
	if !update.Status.IsValid() {
		return nil, fmt.Errorf("invalid target status %q", update.Status)
	}
	sourceStatuses := update.Status.SourceStatuses()
	if len(sourceStatuses) == 0 {
		return nil, fmt.Errorf("status %s is not reachable by any transition: %w", update.Status, ErrInvalidStatusTransition)
	}

	q := fmt.Sprintf(`
		UPDATE email_jobs
		SET
			status = $1,
			started_at = COALESCE($2, started_at),
			error_message = COALESCE($3, error_message),
			total_emails = COALESCE($4, total_emails),
			completed_at = CASE WHEN $5 THEN NOW() ELSE completed_at END
		WHERE job_id = $6 AND status = ANY($7)
		RETURNING %s
	`, selectEmailJobFields)

	var job EmailSendingJob
	err := sqlExec.GetContext(ctx, &job, q,
		update.Status,
		update.StartedAt,
		update.ErrorMessage,
		update.TotalEmails,
		update.Status.IsTerminal(),
		jobID,
		pq.Array(utils.MapSlice(sourceStatuses, func(s JobStatus) string { return string(s) })),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, m.classifyMissedUpdate(ctx, sqlExec, jobID, update.Status)
		}
		return nil, fmt.Errorf("updating email job %s to %s: %w", jobID, update.Status, err)
	}
	return &job, nil
}

func (m *EmailJobModel) classifyMissedUpdate(ctx context.Context, sqlExec db.SQLExecuter, jobID string, target JobStatus) error {
	job, err := m.Get(ctx, sqlExec, jobID)
	if err != nil {
		return err
	}
	return fmt.Errorf("email job %s is %s and cannot move to %s: %w", jobID, job.Status, target, ErrInvalidStatusTransition)
}

// IncrementCounters adds the given deltas to the sent and failed counters. Counters only move
// while the job is processing; increments against a terminal row return
// ErrInvalidStatusTransition.
func (m *EmailJobModel) IncrementCounters(ctx context.Context, sqlExec db.SQLExecuter, jobID string, sentDelta, failedDelta int) (*EmailSendingJob, error) {
	if sentDelta < 0 || failedDelta < 0 {
		return nil, fmt.Errorf("counter deltas cannot be negative")
	}

	q := fmt.Sprintf(`
		UPDATE email_jobs
		SET
			emails_sent = emails_sent + $1,
			emails_failed = emails_failed + $2
		WHERE job_id = $3 AND status = $4
		RETURNING %s
	`, selectEmailJobFields)

	var job EmailSendingJob
	err := sqlExec.GetContext(ctx, &job, q, sentDelta, failedDelta, jobID, ProcessingJobStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, m.classifyCounterMiss(ctx, sqlExec, jobID)
		}
		return nil, fmt.Errorf("incrementing counters for email job %s: %w", jobID, err)
	}
	return &job, nil
}

func (m *EmailJobModel) classifyCounterMiss(ctx context.Context, sqlExec db.SQLExecuter, jobID string) error {
	job, err := m.Get(ctx, sqlExec, jobID)
	if err != nil {
		return err
	}
	return fmt.Errorf("email job %s is %s and its counters are frozen: %w", jobID, job.Status, ErrInvalidStatusTransition)
}

func (m *EmailJobModel) Get(ctx context.Context, sqlExec db.SQLExecuter, jobID string) (*EmailSendingJob, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM email_jobs
		WHERE job_id = $1
	`, selectEmailJobFields)

	var job EmailSendingJob
	if err := sqlExec.GetContext(ctx, &job, q, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting email job %s: %w", jobID, err)
	}
	return &job, nil
}

// FailStuck marks processing email jobs older than the threshold as failed and returns the rows
// it touched.
func (m *EmailJobModel) FailStuck(ctx context.Context, sqlExec db.SQLExecuter, olderThan time.Duration, errorMessage string) ([]EmailSendingJob, error) {
	q := fmt.Sprintf(`
		UPDATE email_jobs
		SET status = $1, error_message = $2, completed_at = NOW()
		WHERE status = $3 AND COALESCE(started_at, created_at) < NOW() - $4::interval
		RETURNING %s
	`, selectEmailJobFields)

	var jobs []EmailSendingJob
	err := sqlExec.SelectContext(ctx, &jobs, q, FailedJobStatus, errorMessage, ProcessingJobStatus, intervalArg(olderThan))
	if err != nil {
		return nil, fmt.Errorf("failing stuck email jobs: %w", err)
	}
	return jobs, nil
}
