package jobs

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/storelens/storelens-ingestion-backend/internal/data"
	"github.com/storelens/storelens-ingestion-backend/internal/monitor"
	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
)

const (
	QueueDepthJobName                   = "queue_depth_job"
	DefaultQueueDepthJobIntervalSeconds = 60
)

// QueueDepthJob publishes one gauge per job status with the ingestion job counts summed across
// every tenant. It is not a multi-tenant job: it iterates the tenants itself so each tick
// publishes a single consistent set of gauges instead of one overwrite per tenant.
type QueueDepthJob struct {
	models             *data.Models
	tenantManager      tenant.ManagerInterface
	monitorService     monitor.MonitorServiceInterface
	jobIntervalSeconds int
}

type QueueDepthJobOptions struct {
	JobIntervalSeconds int
	Models             *data.Models
	TenantManager      tenant.ManagerInterface
	MonitorService     monitor.MonitorServiceInterface
}

func NewQueueDepthJob(options QueueDepthJobOptions) (*QueueDepthJob, error) {
	if options.Models == nil {
		return nil, fmt.Errorf("models are required for the queue depth job")
	}
	if options.TenantManager == nil {
		return nil, fmt.Errorf("tenant manager is required for the queue depth job")
	}
	if options.MonitorService == nil {
		return nil, fmt.Errorf("monitor service is required for the queue depth job")
	}

	interval := options.JobIntervalSeconds
	if interval < DefaultMinimumJobIntervalSeconds {
		interval = DefaultQueueDepthJobIntervalSeconds
	}

	return &QueueDepthJob{
		models:             options.Models,
		tenantManager:      options.TenantManager,
		monitorService:     options.MonitorService,
		jobIntervalSeconds: interval,
	}, nil
}

func (j QueueDepthJob) GetInterval() time.Duration {
	return time.Duration(j.jobIntervalSeconds) * time.Second
}

func (j QueueDepthJob) GetName() string {
	return QueueDepthJobName
}

func (j QueueDepthJob) IsJobMultiTenant() bool {
	return false
}

func (j QueueDepthJob) Execute(ctx context.Context) error {
	tenants, err := j.tenantManager.GetAllTenants(ctx)
	if err != nil {
		return fmt.Errorf("executing QueueDepthJob: getting all tenants: %w", err)
	}

	totals := make(map[data.JobStatus]int, len(data.JobStatuses()))
	for _, t := range tenants {
		tenantCtx := tenant.SaveTenantInContext(ctx, &t)
		counts, countErr := j.models.ProcessingJobs.CountByStatus(tenantCtx, j.models.DBConnectionPool)
		if countErr != nil {
			// a broken tenant database must not hide the depth of the others
			log.WithContext(ctx).WithError(countErr).Warnf("counting jobs by status for tenant %s", t.ID)
			continue
		}
		for status, count := range counts {
			totals[status] += count
		}
	}

	for _, status := range data.JobStatuses() {
		if err = j.monitorService.SetGauge(float64(totals[status]), monitor.QueueDepthGaugeTag, map[string]string{"status": string(status)}); err != nil {
			return fmt.Errorf("executing QueueDepthJob: setting gauge for status %s: %w", status, err)
		}
	}
	return nil
}

var _ Job = (*QueueDepthJob)(nil)
