package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/storelens/storelens-ingestion-backend/internal/data"
	"github.com/storelens/storelens-ingestion-backend/internal/events"
	"github.com/storelens/storelens-ingestion-backend/internal/events/schemas"
	"github.com/storelens/storelens-ingestion-backend/internal/htmltemplate"
	"github.com/storelens/storelens-ingestion-backend/internal/message"
	"github.com/storelens/storelens-ingestion-backend/internal/monitor"
	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
	"github.com/storelens/storelens-ingestion-backend/internal/utils"
)

const emailSendAttempts = 3

// ReportEmailRequest is one request to deliver a daily report to a tenant's branch users.
type ReportEmailRequest struct {
	TenantID   string
	ReportDate string
	// BranchCodes restricts delivery to the given branches. Nil or empty means every branch.
	BranchCodes []string
}

func (r *ReportEmailRequest) Validate() error {
	if strings.TrimSpace(r.TenantID) == "" {
		return tenant.ErrEmptyTenantID
	}
	if _, err := utils.ParseDate(r.ReportDate); err != nil {
		return fmt.Errorf("validating report date: %w", err)
	}
	for i, code := range r.BranchCodes {
		if strings.TrimSpace(code) == "" {
			return fmt.Errorf("branch code %d is empty", i)
		}
	}
	return nil
}

// EmailDispatchService handles report-delivery jobs end to end: intake of the request and the
// per-recipient send loop, sharing the ingestion pipeline's state machine and monitor.
type EmailDispatchService struct {
	models          *data.Models
	tenantManager   tenant.ManagerInterface
	producer        events.Producer
	messengerClient message.MessengerClient
	monitorService  monitor.MonitorServiceInterface
}

type EmailDispatchServiceOptions struct {
	Models          *data.Models
	TenantManager   tenant.ManagerInterface
	Producer        events.Producer
	MessengerClient message.MessengerClient
	MonitorService  monitor.MonitorServiceInterface
}

func NewEmailDispatchService(opts EmailDispatchServiceOptions) (*EmailDispatchService, error) {
	if opts.Models == nil {
		return nil, fmt.Errorf("models are required for the email dispatch service")
	}
	if opts.TenantManager == nil {
		return nil, fmt.Errorf("tenant manager is required for the email dispatch service")
	}
	if opts.Producer == nil {
		return nil, fmt.Errorf("producer is required for the email dispatch service")
	}
	if opts.MessengerClient == nil {
		return nil, fmt.Errorf("messenger client is required for the email dispatch service")
	}

	return &EmailDispatchService{
		models:          opts.Models,
		tenantManager:   opts.TenantManager,
		producer:        opts.Producer,
		messengerClient: opts.MessengerClient,
		monitorService:  opts.MonitorService,
	}, nil
}

// EnqueueReportEmail validates the request, gates on the tenant's mail relay enablement, creates
// the queued job row and publishes the queue message. Same fail-fast semantics as ingestion
// intake: a rejected request leaves no row and no message behind.
func (s *EmailDispatchService) EnqueueReportEmail(ctx context.Context, req ReportEmailRequest) (*data.EmailSendingJob, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validating report email request: %w", err)
	}

	tnt, err := s.tenantManager.GetTenantByID(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("resolving tenant %s: %w", req.TenantID, err)
	}
	if tnt.Status == tenant.DeactivatedTenantStatus {
		return nil, fmt.Errorf("tenant %s is deactivated", tnt.ID)
	}

	if status := tnt.ServiceStatuses()[tenant.ServiceTypeMailRelay]; !status.Enabled {
		reason := ""
		if status.Error != nil {
			reason = *status.Error
		}
		return nil, &ServiceDisabledError{Service: tenant.ServiceTypeMailRelay, Reason: reason}
	}

	ctx = tenant.SaveTenantInContext(ctx, tnt)

	reportDate, err := utils.ParseDate(req.ReportDate)
	if err != nil {
		return nil, fmt.Errorf("parsing report date: %w", err)
	}

	job, err := s.models.EmailJobs.Create(ctx, s.models.DBConnectionPool, data.EmailSendingJobInsert{
		JobID:       uuid.NewString(),
		TenantID:    tnt.ID,
		ReportDate:  reportDate,
		BranchCodes: req.BranchCodes,
	})
	if err != nil {
		return nil, fmt.Errorf("creating email job row: %w", err)
	}

	msg, err := events.NewMessage(ctx, events.ReportEmailRequestedTopic, job.JobID, events.ReportEmailRequestedType, schemas.EventReportEmailJobData{
		JobID:       job.JobID,
		ReportDate:  req.ReportDate,
		BranchCodes: req.BranchCodes,
	})
	if err != nil {
		return job, fmt.Errorf("building queue message for email job %s: %w", job.JobID, err)
	}

	if err = s.producer.WriteMessages(ctx, *msg); err != nil {
		log.WithContext(ctx).WithError(err).Errorf("email job %s created but its queue message was not published, leaving it queued for reconciliation", job.JobID)
		return job, fmt.Errorf("publishing queue message for email job %s: %w", job.JobID, err)
	}

	log.WithContext(ctx).Infof("enqueued report email job %s for tenant %s (report date %s)", job.JobID, tnt.ID, req.ReportDate)
	return job, nil
}

// ProcessJob runs one report-delivery job: resolves the recipients of the targeted branches and
// sends the report email to each, updating the sent/failed counters as it goes. Individual send
// failures do not abort the loop; the job only fails when no email could be delivered at all.
func (s *EmailDispatchService) ProcessJob(ctx context.Context, jobData schemas.EventReportEmailJobData) error {
	proceed, err := s.markProcessing(ctx, jobData.JobID)
	if err != nil {
		return err
	}
	if !proceed {
		return nil
	}

	startedAt := time.Now()
	recipients, err := s.models.Dimensions.ListUserEmails(ctx, jobData.BranchCodes)
	if err != nil {
		return s.failJob(ctx, jobData.JobID, nil, fmt.Errorf("resolving report recipients: %w", err))
	}

	sent, failed := 0, 0
	for _, recipient := range recipients {
		if sendErr := s.sendReportEmail(ctx, recipient, jobData.ReportDate); sendErr != nil {
			log.WithContext(ctx).WithError(sendErr).Warnf("sending report email of job %s to %q", jobData.JobID, utils.TruncateString(recipient, 3))
			failed++
			_, err = s.models.EmailJobs.IncrementCounters(ctx, s.models.DBConnectionPool, jobData.JobID, 0, 1)
		} else {
			sent++
			_, err = s.models.EmailJobs.IncrementCounters(ctx, s.models.DBConnectionPool, jobData.JobID, 1, 0)
		}
		if err != nil {
			return fmt.Errorf("updating counters of email job %s: %w", jobData.JobID, err)
		}
	}

	total := len(recipients)
	if total > 0 && sent == 0 {
		return s.failJob(ctx, jobData.JobID, &total, fmt.Errorf("all %d report emails failed", total))
	}

	_, err = s.models.EmailJobs.UpdateStatus(ctx, s.models.DBConnectionPool, jobData.JobID, data.EmailSendingJobUpdate{
		Status:      data.CompletedJobStatus,
		TotalEmails: &total,
	})
	if err != nil {
		return fmt.Errorf("completing email job %s: %w", jobData.JobID, err)
	}

	s.reportJobOutcome(ctx, data.CompletedJobStatus, time.Since(startedAt))
	log.WithContext(ctx).Infof("email job %s completed: %d sent, %d failed of %d recipients", jobData.JobID, sent, failed, total)
	return nil
}

func (s *EmailDispatchService) sendReportEmail(ctx context.Context, recipient, reportDate string) error {
	tenantName := "StoreLens"
	if tnt, tntErr := tenant.GetTenantFromContext(ctx); tntErr == nil {
		tenantName = tnt.Name
	}
	body, err := htmltemplate.ExecuteHTMLTemplateForReportEmailMessage(htmltemplate.ReportEmailMessageTemplate{
		ReportDate: reportDate,
		TenantName: tenantName,
	})
	if err != nil {
		return fmt.Errorf("rendering report email body: %w", err)
	}

	msg := message.Message{
		ToEmail: recipient,
		Title:   fmt.Sprintf("Your StoreLens report for %s", reportDate),
		Body:    body,
	}

	return retry.Do(
		func() error {
			if err := s.messengerClient.SendMessage(ctx, msg); err != nil {
				return fmt.Errorf("sending report email: %w", err)
			}
			return nil
		},
		retry.Attempts(emailSendAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

func (s *EmailDispatchService) markProcessing(ctx context.Context, jobID string) (bool, error) {
	now := time.Now()
	_, err := s.models.EmailJobs.UpdateStatus(ctx, s.models.DBConnectionPool, jobID, data.EmailSendingJobUpdate{
		Status:    data.ProcessingJobStatus,
		StartedAt: &now,
	})
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, data.ErrInvalidStatusTransition) {
		return false, fmt.Errorf("marking email job %s as processing: %w", jobID, err)
	}

	job, getErr := s.models.EmailJobs.Get(ctx, s.models.DBConnectionPool, jobID)
	if getErr != nil {
		return false, fmt.Errorf("re-reading email job %s after a missed processing transition: %w", jobID, getErr)
	}
	if job.Status == data.ProcessingJobStatus {
		log.WithContext(ctx).Warnf("email job %s is already processing, continuing a redelivered message", jobID)
		return true, nil
	}

	log.WithContext(ctx).Infof("email job %s is already %s, skipping redelivered message", jobID, job.Status)
	return false, nil
}

func (s *EmailDispatchService) failJob(ctx context.Context, jobID string, totalEmails *int, jobErr error) error {
	log.WithContext(ctx).WithError(jobErr).Errorf("email job %s failed", jobID)

	_, err := s.models.EmailJobs.UpdateStatus(ctx, s.models.DBConnectionPool, jobID, data.EmailSendingJobUpdate{
		Status:       data.FailedJobStatus,
		ErrorMessage: utils.StringPtr(jobErr.Error()),
		TotalEmails:  totalEmails,
	})
	if err != nil {
		return fmt.Errorf("marking email job %s as failed: %w", jobID, err)
	}

	s.reportJobOutcome(ctx, data.FailedJobStatus, 0)
	return nil
}

func (s *EmailDispatchService) reportJobOutcome(ctx context.Context, status data.JobStatus, duration time.Duration) {
	if s.monitorService == nil {
		return
	}

	labels := monitor.JobLabels{Kind: "email", Status: string(status)}
	if err := s.monitorService.MonitorCounters(monitor.JobsProcessedCounterTag, labels.ToMap()); err != nil {
		log.WithContext(ctx).WithError(err).Error("recording job outcome metric")
	}
	if duration > 0 {
		if err := s.monitorService.MonitorDuration(duration, monitor.JobDurationTag, map[string]string{"kind": "email"}); err != nil {
			log.WithContext(ctx).WithError(err).Error("recording job duration metric")
		}
	}
}
