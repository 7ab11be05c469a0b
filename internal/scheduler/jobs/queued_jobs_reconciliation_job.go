package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/storelens/storelens-ingestion-backend/internal/data"
	"github.com/storelens/storelens-ingestion-backend/internal/events"
	"github.com/storelens/storelens-ingestion-backend/internal/services"
)

const (
	QueuedJobsReconciliationJobName                   = "queued_jobs_reconciliation_job"
	DefaultQueuedJobsReconciliationJobIntervalSeconds = 600
)

// QueuedJobsReconciliationJob republishes the queue message of jobs that sat queued past the
// threshold, covering the window where the row was created but the publish failed.
type QueuedJobsReconciliationJob struct {
	service            *services.StuckJobsService
	jobIntervalSeconds int
}

type QueuedJobsReconciliationJobOptions struct {
	JobIntervalSeconds int
	Models             *data.Models
	Producer           events.Producer
	QueuedThreshold    time.Duration
}

func NewQueuedJobsReconciliationJob(options QueuedJobsReconciliationJobOptions) (*QueuedJobsReconciliationJob, error) {
	service, err := services.NewStuckJobsService(services.StuckJobsServiceOptions{
		Models:          options.Models,
		Producer:        options.Producer,
		QueuedThreshold: options.QueuedThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("creating the stuck jobs service: %w", err)
	}

	interval := options.JobIntervalSeconds
	if interval < DefaultMinimumJobIntervalSeconds {
		interval = DefaultQueuedJobsReconciliationJobIntervalSeconds
	}

	return &QueuedJobsReconciliationJob{service: service, jobIntervalSeconds: interval}, nil
}

func (j QueuedJobsReconciliationJob) GetInterval() time.Duration {
	return time.Duration(j.jobIntervalSeconds) * time.Second
}

func (j QueuedJobsReconciliationJob) GetName() string {
	return QueuedJobsReconciliationJobName
}

func (j QueuedJobsReconciliationJob) IsJobMultiTenant() bool {
	return true
}

func (j QueuedJobsReconciliationJob) Execute(ctx context.Context) error {
	if err := j.service.ReconcileQueuedJobs(ctx); err != nil {
		return fmt.Errorf("executing QueuedJobsReconciliationJob: %w", err)
	}
	return nil
}

var _ Job = (*QueuedJobsReconciliationJob)(nil)
