package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/storelens/storelens-ingestion-backend/internal/data"
	"github.com/storelens/storelens-ingestion-backend/internal/events"
	"github.com/storelens/storelens-ingestion-backend/internal/events/schemas"
	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
	"github.com/storelens/storelens-ingestion-backend/internal/utils"
)

// IngestionJobRequest is one request to ingest a tenant's data for a date range.
type IngestionJobRequest struct {
	TenantID  string
	StartDate string
	EndDate   string
	DataTypes []string
}

func (r *IngestionJobRequest) Validate() error {
	if strings.TrimSpace(r.TenantID) == "" {
		return tenant.ErrEmptyTenantID
	}
	if err := utils.ValidateDateRange(r.StartDate, r.EndDate); err != nil {
		return fmt.Errorf("validating date range: %w", err)
	}
	return r.dataTypeList().Validate()
}

func (r *IngestionJobRequest) dataTypeList() data.DataTypeList {
	l := make(data.DataTypeList, 0, len(r.DataTypes))
	for _, d := range r.DataTypes {
		l = append(l, data.DataType(strings.ToLower(strings.TrimSpace(d))))
	}
	return l
}

// requiredService maps a data type to the external service its extraction depends on.
func requiredService(dataType data.DataType) tenant.ServiceType {
	if dataType == data.DataTypeEvents {
		return tenant.ServiceTypeWarehouse
	}
	return tenant.ServiceTypeFileTransfer
}

// IntakeService accepts ingestion job requests: it validates them, gates on the tenant's service
// enablement, persists a queued job row and publishes the queue message. The gate runs before
// any side effect, so a rejected request leaves nothing behind.
type IntakeService struct {
	models        *data.Models
	tenantManager tenant.ManagerInterface
	producer      events.Producer
}

func NewIntakeService(models *data.Models, tenantManager tenant.ManagerInterface, producer events.Producer) (*IntakeService, error) {
	if models == nil {
		return nil, fmt.Errorf("models are required for the intake service")
	}
	if tenantManager == nil {
		return nil, fmt.Errorf("tenant manager is required for the intake service")
	}
	if producer == nil {
		return nil, fmt.Errorf("producer is required for the intake service")
	}
	return &IntakeService{models: models, tenantManager: tenantManager, producer: producer}, nil
}

// EnqueueIngestionJob runs the intake path for one request. On success the returned job is
// queued and its message published. If the publish fails after the row exists, the row is left
// queued for the scheduler's reconciliation sweep and the error is returned alongside the job.
func (s *IntakeService) EnqueueIngestionJob(ctx context.Context, req IngestionJobRequest) (*data.ProcessingJob, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validating ingestion job request: %w", err)
	}

	tnt, err := s.tenantManager.GetTenantByID(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("resolving tenant %s: %w", req.TenantID, err)
	}
	if tnt.Status == tenant.DeactivatedTenantStatus {
		return nil, fmt.Errorf("tenant %s is deactivated", tnt.ID)
	}

	dataTypes := req.dataTypeList()
	if err = s.checkServicesEnabled(tnt, dataTypes); err != nil {
		return nil, err
	}

	ctx = tenant.SaveTenantInContext(ctx, tnt)

	startDate, err := utils.ParseDate(req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("parsing start date: %w", err)
	}
	endDate, err := utils.ParseDate(req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("parsing end date: %w", err)
	}

	inFlight, err := s.models.ProcessingJobs.GetNonTerminalOverlapping(ctx, s.models.DBConnectionPool, tnt.ID, dataTypes, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("checking for in-flight jobs: %w", err)
	}
	if len(inFlight) > 0 {
		return nil, fmt.Errorf("job %s overlaps the requested range: %w", inFlight[0].JobID, ErrJobAlreadyInFlight)
	}

	job, err := s.models.ProcessingJobs.Create(ctx, s.models.DBConnectionPool, data.ProcessingJobInsert{
		JobID:     uuid.NewString(),
		TenantID:  tnt.ID,
		DataTypes: dataTypes,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		return nil, fmt.Errorf("creating ingestion job row: %w", err)
	}

	msg, err := events.NewMessage(ctx, events.IngestionJobRequestedTopic, job.JobID, events.IngestionJobRequestedType, schemas.EventIngestionJobData{
		JobID:     job.JobID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		DataTypes: req.DataTypes,
	})
	if err != nil {
		return job, fmt.Errorf("building queue message for job %s: %w", job.JobID, err)
	}

	if err = s.producer.WriteMessages(ctx, *msg); err != nil {
		log.WithContext(ctx).WithError(err).Errorf("job %s created but its queue message was not published, leaving it queued for reconciliation", job.JobID)
		return job, fmt.Errorf("publishing queue message for job %s: %w", job.JobID, err)
	}

	log.WithContext(ctx).Infof("enqueued ingestion job %s for tenant %s [%s, %s] %v", job.JobID, tnt.ID, req.StartDate, req.EndDate, req.DataTypes)
	return job, nil
}

// checkServicesEnabled returns a ServiceDisabledError when any requested data type depends on a
// disabled service.
func (s *IntakeService) checkServicesEnabled(tnt *tenant.Tenant, dataTypes data.DataTypeList) error {
	statuses := tnt.ServiceStatuses()
	for _, dataType := range dataTypes {
		service := requiredService(dataType)
		status := statuses[service]
		if !status.Enabled {
			reason := ""
			if status.Error != nil {
				reason = *status.Error
			}
			return &ServiceDisabledError{Service: service, Reason: reason}
		}
	}
	return nil
}

// IsServiceDisabled reports whether err is a service-enablement rejection.
func IsServiceDisabled(err error) bool {
	var sdErr *ServiceDisabledError
	return errors.As(err, &sdErr)
}
