package eventhandlers

import (
	"context"
	"fmt"

	"github.com/storelens/storelens-ingestion-backend/internal/events"
	"github.com/storelens/storelens-ingestion-backend/internal/events/schemas"
	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
	"github.com/storelens/storelens-ingestion-backend/internal/utils"
)

// ReportEmailProcessor runs one report-delivery job against the tenant carried in the context.
type ReportEmailProcessor interface {
	ProcessJob(ctx context.Context, jobData schemas.EventReportEmailJobData) error
}

type ReportEmailEventHandlerOptions struct {
	TenantManager tenant.ManagerInterface
	Service       ReportEmailProcessor
}

// ReportEmailEventHandler consumes report-email-requested messages and hands them to the email
// dispatch service under the message's tenant.
type ReportEmailEventHandler struct {
	tenantManager tenant.ManagerInterface
	service       ReportEmailProcessor
}

var _ events.EventHandler = new(ReportEmailEventHandler)

func NewReportEmailEventHandler(options ReportEmailEventHandlerOptions) *ReportEmailEventHandler {
	return &ReportEmailEventHandler{
		tenantManager: options.TenantManager,
		service:       options.Service,
	}
}

func (h *ReportEmailEventHandler) Name() string {
	return "ReportEmailEventHandler"
}

func (h *ReportEmailEventHandler) CanHandleMessage(ctx context.Context, message *events.Message) bool {
	return message.Topic == events.ReportEmailRequestedTopic
}

func (h *ReportEmailEventHandler) Handle(ctx context.Context, message *events.Message) error {
	jobData, err := utils.ConvertType[any, schemas.EventReportEmailJobData](message.Data)
	if err != nil {
		return fmt.Errorf("[%s] could not convert data to %T: %w", h.Name(), schemas.EventReportEmailJobData{}, err)
	}

	t, err := h.tenantManager.GetTenantByID(ctx, message.TenantID)
	if err != nil {
		return fmt.Errorf("[%s] getting tenant %s: %w", h.Name(), message.TenantID, err)
	}
	ctx = tenant.SaveTenantInContext(ctx, t)

	if err := h.service.ProcessJob(ctx, jobData); err != nil {
		return fmt.Errorf("[%s] processing report email job %s: %w", h.Name(), jobData.JobID, err)
	}
	return nil
}
