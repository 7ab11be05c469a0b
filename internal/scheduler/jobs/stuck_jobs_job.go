package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/storelens/storelens-ingestion-backend/internal/data"
	"github.com/storelens/storelens-ingestion-backend/internal/events"
	"github.com/storelens/storelens-ingestion-backend/internal/monitor"
	"github.com/storelens/storelens-ingestion-backend/internal/services"
)

const (
	StuckJobsJobName                   = "stuck_jobs_job"
	DefaultStuckJobsJobIntervalSeconds = 300
)

// StuckJobsJob periodically force-fails jobs whose worker died mid-flight. It runs per tenant,
// against the tenant database carried in the context.
type StuckJobsJob struct {
	service            *services.StuckJobsService
	jobIntervalSeconds int
}

type StuckJobsJobOptions struct {
	JobIntervalSeconds int
	Models             *data.Models
	Producer           events.Producer
	MonitorService     monitor.MonitorServiceInterface
	StuckTimeout       time.Duration
}

func NewStuckJobsJob(options StuckJobsJobOptions) (*StuckJobsJob, error) {
	service, err := services.NewStuckJobsService(services.StuckJobsServiceOptions{
		Models:         options.Models,
		Producer:       options.Producer,
		MonitorService: options.MonitorService,
		StuckTimeout:   options.StuckTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating the stuck jobs service: %w", err)
	}

	interval := options.JobIntervalSeconds
	if interval < DefaultMinimumJobIntervalSeconds {
		interval = DefaultStuckJobsJobIntervalSeconds
	}

	return &StuckJobsJob{service: service, jobIntervalSeconds: interval}, nil
}

func (j StuckJobsJob) GetInterval() time.Duration {
	return time.Duration(j.jobIntervalSeconds) * time.Second
}

func (j StuckJobsJob) GetName() string {
	return StuckJobsJobName
}

func (j StuckJobsJob) IsJobMultiTenant() bool {
	return true
}

func (j StuckJobsJob) Execute(ctx context.Context) error {
	if err := j.service.FailStuckJobs(ctx); err != nil {
		return fmt.Errorf("executing StuckJobsJob: %w", err)
	}
	return nil
}

var _ Job = (*StuckJobsJob)(nil)
