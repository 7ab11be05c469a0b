package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/storelens/storelens-ingestion-backend/internal/data"
	"github.com/storelens/storelens-ingestion-backend/internal/events"
	"github.com/storelens/storelens-ingestion-backend/internal/events/schemas"
	"github.com/storelens/storelens-ingestion-backend/internal/monitor"
	"github.com/storelens/storelens-ingestion-backend/internal/utils"
)

const (
	// DefaultStuckJobTimeout is how long a job may sit in processing before the monitor presumes
	// its worker is gone and force-fails it.
	DefaultStuckJobTimeout = 30 * time.Minute
	// DefaultQueuedJobThreshold is how long a job may sit queued before its queue message is
	// presumed lost and republished.
	DefaultQueuedJobThreshold = 15 * time.Minute
)

// StuckJobsService reclaims abandoned jobs in one tenant database. The scheduler runs it per
// tenant, with the target tenant carried in the context, so one tenant's failure never aborts
// the others.
type StuckJobsService struct {
	models          *data.Models
	producer        events.Producer
	monitorService  monitor.MonitorServiceInterface
	stuckTimeout    time.Duration
	queuedThreshold time.Duration
}

type StuckJobsServiceOptions struct {
	Models          *data.Models
	Producer        events.Producer
	MonitorService  monitor.MonitorServiceInterface
	StuckTimeout    time.Duration
	QueuedThreshold time.Duration
}

func NewStuckJobsService(opts StuckJobsServiceOptions) (*StuckJobsService, error) {
	if opts.Models == nil {
		return nil, fmt.Errorf("models are required for the stuck jobs service")
	}
	if opts.Producer == nil {
		return nil, fmt.Errorf("producer is required for the stuck jobs service")
	}
	if opts.StuckTimeout <= 0 {
		opts.StuckTimeout = DefaultStuckJobTimeout
	}
	if opts.QueuedThreshold <= 0 {
		opts.QueuedThreshold = DefaultQueuedJobThreshold
	}

	return &StuckJobsService{
		models:          opts.Models,
		producer:        opts.Producer,
		monitorService:  opts.MonitorService,
		stuckTimeout:    opts.StuckTimeout,
		queuedThreshold: opts.QueuedThreshold,
	}, nil
}

// FailStuckJobs force-fails every ingestion and email job of the context tenant that has been
// processing longer than the stuck timeout. Already-terminal rows are untouched, so re-running
// the sweep is a no-op.
func (s *StuckJobsService) FailStuckJobs(ctx context.Context) error {
	errorMessage := fmt.Sprintf("job timed out after more than %s in processing", s.stuckTimeout)

	stuckIngestion, err := s.models.ProcessingJobs.FailStuck(ctx, s.models.DBConnectionPool, s.stuckTimeout, errorMessage)
	if err != nil {
		return fmt.Errorf("failing stuck ingestion jobs: %w", err)
	}
	for _, job := range stuckIngestion {
		log.WithContext(ctx).Warnf("force-failed stuck ingestion job %s (started_at=%v)", job.JobID, job.StartedAt)
	}
	s.reportStuckJobs(ctx, "ingestion", len(stuckIngestion))

	stuckEmail, err := s.models.EmailJobs.FailStuck(ctx, s.models.DBConnectionPool, s.stuckTimeout, errorMessage)
	if err != nil {
		return fmt.Errorf("failing stuck email jobs: %w", err)
	}
	for _, job := range stuckEmail {
		log.WithContext(ctx).Warnf("force-failed stuck email job %s (started_at=%v)", job.JobID, job.StartedAt)
	}
	s.reportStuckJobs(ctx, "email", len(stuckEmail))

	return nil
}

// ReconcileQueuedJobs republishes the queue message of jobs that sat queued longer than the
// threshold, which means their original message was likely never published or consumed. The row
// stays queued; the worker moves it forward when the replayed message arrives.
func (s *StuckJobsService) ReconcileQueuedJobs(ctx context.Context) error {
	jobs, err := s.models.ProcessingJobs.GetQueuedOlderThan(ctx, s.models.DBConnectionPool, s.queuedThreshold)
	if err != nil {
		return fmt.Errorf("selecting queued-too-long jobs: %w", err)
	}

	for _, job := range jobs {
		log.WithContext(ctx).Warnf("ingestion job %s has been queued for more than %s, republishing its message", job.JobID, s.queuedThreshold)

		msg, msgErr := events.NewMessage(ctx, events.IngestionJobRequestedTopic, job.JobID, events.IngestionJobRequestedType, schemas.EventIngestionJobData{
			JobID:     job.JobID,
			StartDate: job.StartDate.Format(utils.DateLayoutISO8601),
			EndDate:   job.EndDate.Format(utils.DateLayoutISO8601),
			DataTypes: utils.MapSlice(job.DataTypes, func(d data.DataType) string { return string(d) }),
		})
		if msgErr != nil {
			return fmt.Errorf("building replay message for job %s: %w", job.JobID, msgErr)
		}

		if writeErr := s.producer.WriteMessages(ctx, *msg); writeErr != nil {
			return fmt.Errorf("republishing message for job %s: %w", job.JobID, writeErr)
		}
	}
	return nil
}

func (s *StuckJobsService) reportStuckJobs(ctx context.Context, kind string, count int) {
	if s.monitorService == nil || count == 0 {
		return
	}
	for i := 0; i < count; i++ {
		if err := s.monitorService.MonitorCounters(monitor.StuckJobsCounterTag, map[string]string{"kind": kind}); err != nil {
			log.WithContext(ctx).WithError(err).Error("recording stuck jobs metric")
		}
	}
}
