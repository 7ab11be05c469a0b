package eventhandlers

import (
	"context"
	"fmt"

	"github.com/storelens/storelens-ingestion-backend/internal/events"
	"github.com/storelens/storelens-ingestion-backend/internal/events/schemas"
	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
	"github.com/storelens/storelens-ingestion-backend/internal/utils"
)

// IngestionJobProcessor runs one ingestion job against the tenant carried in the context.
type IngestionJobProcessor interface {
	ProcessJob(ctx context.Context, jobData schemas.EventIngestionJobData) error
}

type IngestionJobEventHandlerOptions struct {
	TenantManager tenant.ManagerInterface
	Service       IngestionJobProcessor
}

// IngestionJobEventHandler consumes ingestion-job-requested messages: it resolves the tenant
// from the message envelope, routes the context to the tenant database and hands the payload to
// the ingestion worker.
type IngestionJobEventHandler struct {
	tenantManager tenant.ManagerInterface
	service       IngestionJobProcessor
}

var _ events.EventHandler = new(IngestionJobEventHandler)

func NewIngestionJobEventHandler(options IngestionJobEventHandlerOptions) *IngestionJobEventHandler {
	return &IngestionJobEventHandler{
		tenantManager: options.TenantManager,
		service:       options.Service,
	}
}

func (h *IngestionJobEventHandler) Name() string {
	return "IngestionJobEventHandler"
}

func (h *IngestionJobEventHandler) CanHandleMessage(ctx context.Context, message *events.Message) bool {
	return message.Topic == events.IngestionJobRequestedTopic
}

func (h *IngestionJobEventHandler) Handle(ctx context.Context, message *events.Message) error {
	jobData, err := utils.ConvertType[any, schemas.EventIngestionJobData](message.Data)
	if err != nil {
		return fmt.Errorf("[%s] could not convert data to %T: %w", h.Name(), schemas.EventIngestionJobData{}, err)
	}

	t, err := h.tenantManager.GetTenantByID(ctx, message.TenantID)
	if err != nil {
		return fmt.Errorf("[%s] getting tenant %s: %w", h.Name(), message.TenantID, err)
	}
	ctx = tenant.SaveTenantInContext(ctx, t)

	if err := h.service.ProcessJob(ctx, jobData); err != nil {
		return fmt.Errorf("[%s] processing ingestion job %s: %w", h.Name(), jobData.JobID, err)
	}
	return nil
}
