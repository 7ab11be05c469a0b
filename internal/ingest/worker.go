package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/storelens/storelens-ingestion-backend/internal/data"
	"github.com/storelens/storelens-ingestion-backend/internal/events/schemas"
	"github.com/storelens/storelens-ingestion-backend/internal/filetransfer"
	"github.com/storelens/storelens-ingestion-backend/internal/monitor"
	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
	"github.com/storelens/storelens-ingestion-backend/internal/utils"
	"github.com/storelens/storelens-ingestion-backend/internal/warehouse"
)

// WarehouseClientFactory opens a warehouse client for one tenant's credentials.
type WarehouseClientFactory func(cfg warehouse.Config) (warehouse.ClientInterface, error)

// FileTransferClientFactory opens a file-transfer client for one tenant's credentials.
type FileTransferClientFactory func(cfg filetransfer.Config) (filetransfer.ClientInterface, error)

type WorkerOptions struct {
	Models              *data.Models
	Credentials         *tenant.SourceCredentialRegistry
	Pool                *ExtractionPool
	MonitorService      monitor.MonitorServiceInterface
	WarehouseFactory    WarehouseClientFactory
	FileTransferFactory FileTransferClientFactory
}

// Worker runs one ingestion job to a terminal status. Blocking extraction calls are delegated
// to the bounded pool; status updates and loads run on the calling goroutine.
type Worker struct {
	models              *data.Models
	credentials         *tenant.SourceCredentialRegistry
	pool                *ExtractionPool
	monitorService      monitor.MonitorServiceInterface
	warehouseFactory    WarehouseClientFactory
	fileTransferFactory FileTransferClientFactory
}

func NewWorker(opts WorkerOptions) (*Worker, error) {
	if opts.Models == nil {
		return nil, fmt.Errorf("models are required for the ingestion worker")
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("credential registry is required for the ingestion worker")
	}
	if opts.Pool == nil {
		return nil, fmt.Errorf("extraction pool is required for the ingestion worker")
	}

	w := &Worker{
		models:              opts.Models,
		credentials:         opts.Credentials,
		pool:                opts.Pool,
		monitorService:      opts.MonitorService,
		warehouseFactory:    opts.WarehouseFactory,
		fileTransferFactory: opts.FileTransferFactory,
	}
	if w.warehouseFactory == nil {
		w.warehouseFactory = func(cfg warehouse.Config) (warehouse.ClientInterface, error) {
			return warehouse.NewClient(cfg)
		}
	}
	if w.fileTransferFactory == nil {
		w.fileTransferFactory = func(cfg filetransfer.Config) (filetransfer.ClientInterface, error) {
			return filetransfer.NewClient(cfg)
		}
	}
	return w, nil
}

// ProcessJob runs one ingestion job to completion or failure. The context must carry the job's
// tenant. A saturated extraction pool returns ErrPoolSaturated and leaves the job processing so
// the consumer retries it with backoff; every other extraction error fails the job while
// keeping the partial records_processed of the data types already loaded.
func (w *Worker) ProcessJob(ctx context.Context, jobData schemas.EventIngestionJobData) error {
	tnt, err := tenant.GetTenantFromContext(ctx)
	if err != nil {
		return fmt.Errorf("getting tenant from context: %w", err)
	}

	dataTypes := make(data.DataTypeList, 0, len(jobData.DataTypes))
	for _, d := range jobData.DataTypes {
		dataTypes = append(dataTypes, data.DataType(d))
	}
	if err = dataTypes.Validate(); err != nil {
		return w.failJob(ctx, jobData.JobID, data.CountMap{}, fmt.Errorf("validating requested data types: %w", err))
	}

	proceed, err := w.markProcessing(ctx, jobData.JobID)
	if err != nil {
		return err
	}
	if !proceed {
		return nil
	}

	startedAt := time.Now()
	recordsProcessed := data.CountMap{}
	for _, dataType := range dataTypes {
		switch dataType {
		case data.DataTypeEvents:
			err = w.processEvents(ctx, tnt.ID, jobData, recordsProcessed)
		case data.DataTypeUsers:
			err = w.processUsers(ctx, tnt.ID, recordsProcessed)
		case data.DataTypeLocations:
			err = w.processLocations(ctx, tnt.ID, recordsProcessed)
		default:
			err = fmt.Errorf("unsupported data type %q", dataType)
		}

		if err != nil {
			if errors.Is(err, ErrPoolSaturated) {
				return fmt.Errorf("processing %s of job %s: %w", dataType, jobData.JobID, err)
			}
			return w.failJob(ctx, jobData.JobID, recordsProcessed, fmt.Errorf("processing %s: %w", dataType, err))
		}
	}

	_, err = w.models.ProcessingJobs.UpdateStatus(ctx, w.models.DBConnectionPool, jobData.JobID, data.ProcessingJobUpdate{
		Status:           data.CompletedJobStatus,
		Progress:         recordsProcessed,
		RecordsProcessed: recordsProcessed,
	})
	if err != nil {
		return fmt.Errorf("completing job %s: %w", jobData.JobID, err)
	}

	w.reportJobOutcome(ctx, data.CompletedJobStatus, time.Since(startedAt))
	log.WithContext(ctx).Infof("job %s completed with records processed %v", jobData.JobID, recordsProcessed)
	return nil
}

// markProcessing moves the job to processing. A job already past queued is either still
// processing from a redelivered message, in which case work continues, or terminal, in which
// case the redelivery is a no-op.
func (w *Worker) markProcessing(ctx context.Context, jobID string) (bool, error) {
	now := time.Now()
	_, err := w.models.ProcessingJobs.UpdateStatus(ctx, w.models.DBConnectionPool, jobID, data.ProcessingJobUpdate{
		Status:    data.ProcessingJobStatus,
		StartedAt: &now,
	})
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, data.ErrInvalidStatusTransition) {
		return false, fmt.Errorf("marking job %s as processing: %w", jobID, err)
	}

	job, getErr := w.models.ProcessingJobs.Get(ctx, w.models.DBConnectionPool, jobID)
	if getErr != nil {
		return false, fmt.Errorf("re-reading job %s after a missed processing transition: %w", jobID, getErr)
	}
	if job.Status == data.ProcessingJobStatus {
		log.WithContext(ctx).Warnf("job %s is already processing, continuing a redelivered message", jobID)
		return true, nil
	}

	log.WithContext(ctx).Infof("job %s is already %s, skipping redelivered message", jobID, job.Status)
	return false, nil
}

func (w *Worker) failJob(ctx context.Context, jobID string, recordsProcessed data.CountMap, jobErr error) error {
	log.WithContext(ctx).WithError(jobErr).Errorf("job %s failed", jobID)

	_, err := w.models.ProcessingJobs.UpdateStatus(ctx, w.models.DBConnectionPool, jobID, data.ProcessingJobUpdate{
		Status:           data.FailedJobStatus,
		ErrorMessage:     utils.StringPtr(jobErr.Error()),
		RecordsProcessed: recordsProcessed,
	})
	if err != nil {
		return fmt.Errorf("marking job %s as failed: %w", jobID, err)
	}

	w.reportJobOutcome(ctx, data.FailedJobStatus, 0)
	return nil
}

// processEvents queries the warehouse once for the whole range and range-replaces each variant,
// empty variants included so stale rows are cleared. A tenant without warehouse configuration
// yields zero counts and a warning.
func (w *Worker) processEvents(ctx context.Context, tenantID string, jobData schemas.EventIngestionJobData, recordsProcessed data.CountMap) error {
	credentials, err := w.credentials.Resolve(ctx, tenantID, tenant.ServiceTypeWarehouse)
	if err != nil {
		if errors.Is(err, tenant.ErrSourceNotConfigured) {
			log.WithContext(ctx).Warnf("tenant %s has no warehouse configuration, skipping events", tenantID)
			for _, eventType := range data.EventTypes() {
				recordsProcessed[string(eventType)] = 0
			}
			return nil
		}
		return err
	}

	cfg, err := warehouse.NewConfig(credentials)
	if err != nil {
		return fmt.Errorf("building warehouse config: %w", err)
	}

	client, err := w.warehouseFactory(cfg)
	if err != nil {
		return fmt.Errorf("opening warehouse client: %w", err)
	}
	defer client.Close()

	var grouped map[data.EventType][]data.EventRecord
	err = w.pool.Execute(ctx, func(taskCtx context.Context) error {
		var queryErr error
		grouped, queryErr = client.QueryDateRangeEvents(taskCtx, jobData.StartDate, jobData.EndDate)
		return queryErr
	})
	if err != nil {
		return fmt.Errorf("querying warehouse events: %w", err)
	}

	for _, eventType := range data.EventTypes() {
		inserted, replaceErr := w.models.Events.ReplaceEventRange(ctx, eventType, jobData.StartDate, jobData.EndDate, grouped[eventType])
		if replaceErr != nil {
			return fmt.Errorf("replacing %s events: %w", eventType, replaceErr)
		}
		recordsProcessed[string(eventType)] = inserted
	}
	return nil
}

// processUsers fetches and upserts the latest users snapshot. Missing file-transfer
// configuration yields a zero count and a warning, not a failure.
func (w *Worker) processUsers(ctx context.Context, tenantID string, recordsProcessed data.CountMap) error {
	client, skip, err := w.openFileTransferClient(ctx, tenantID)
	if err != nil {
		return err
	}
	if skip {
		recordsProcessed[string(data.DataTypeUsers)] = 0
		return nil
	}
	defer client.Close()

	var records []data.UserRecord
	err = w.pool.Execute(ctx, func(taskCtx context.Context) error {
		var fetchErr error
		records, fetchErr = client.GetLatestUsersData(taskCtx)
		return fetchErr
	})
	if err != nil {
		return fmt.Errorf("fetching users snapshot: %w", err)
	}

	written, err := w.models.Dimensions.UpsertUsers(ctx, records)
	if err != nil {
		return fmt.Errorf("upserting users: %w", err)
	}
	recordsProcessed[string(data.DataTypeUsers)] = written
	return nil
}

// processLocations fetches and upserts the latest locations snapshot, with the same missing
// configuration semantics as processUsers.
func (w *Worker) processLocations(ctx context.Context, tenantID string, recordsProcessed data.CountMap) error {
	client, skip, err := w.openFileTransferClient(ctx, tenantID)
	if err != nil {
		return err
	}
	if skip {
		recordsProcessed[string(data.DataTypeLocations)] = 0
		return nil
	}
	defer client.Close()

	var records []data.LocationRecord
	err = w.pool.Execute(ctx, func(taskCtx context.Context) error {
		var fetchErr error
		records, fetchErr = client.GetLatestLocationsData(taskCtx)
		return fetchErr
	})
	if err != nil {
		return fmt.Errorf("fetching locations snapshot: %w", err)
	}

	written, err := w.models.Dimensions.UpsertLocations(ctx, records)
	if err != nil {
		return fmt.Errorf("upserting locations: %w", err)
	}
	recordsProcessed[string(data.DataTypeLocations)] = written
	return nil
}

func (w *Worker) openFileTransferClient(ctx context.Context, tenantID string) (filetransfer.ClientInterface, bool, error) {
	credentials, err := w.credentials.Resolve(ctx, tenantID, tenant.ServiceTypeFileTransfer)
	if err != nil {
		if errors.Is(err, tenant.ErrSourceNotConfigured) {
			log.WithContext(ctx).Warnf("tenant %s has no file-transfer configuration, skipping dimension snapshot", tenantID)
			return nil, true, nil
		}
		return nil, false, err
	}

	cfg, err := filetransfer.NewConfig(credentials)
	if err != nil {
		return nil, false, fmt.Errorf("building file-transfer config: %w", err)
	}

	client, err := w.fileTransferFactory(cfg)
	if err != nil {
		return nil, false, fmt.Errorf("opening file-transfer client: %w", err)
	}
	return client, false, nil
}

func (w *Worker) reportJobOutcome(ctx context.Context, status data.JobStatus, duration time.Duration) {
	if w.monitorService == nil {
		return
	}

	labels := monitor.JobLabels{Kind: "ingestion", Status: string(status)}
	if err := w.monitorService.MonitorCounters(monitor.JobsProcessedCounterTag, labels.ToMap()); err != nil {
		log.WithContext(ctx).WithError(err).Error("recording job outcome metric")
	}
	if duration > 0 {
		if err := w.monitorService.MonitorDuration(duration, monitor.JobDurationTag, map[string]string{"kind": "ingestion"}); err != nil {
			log.WithContext(ctx).WithError(err).Error("recording job duration metric")
		}
	}
}
