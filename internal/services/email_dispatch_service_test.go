package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens-ingestion-backend/db/dbtest"
	"github.com/storelens/storelens-ingestion-backend/internal/data"
	"github.com/storelens/storelens-ingestion-backend/internal/events"
	"github.com/storelens/storelens-ingestion-backend/internal/events/schemas"
	"github.com/storelens/storelens-ingestion-backend/internal/message"
	"github.com/storelens/storelens-ingestion-backend/internal/monitor"
	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
	"github.com/storelens/storelens-ingestion-backend/internal/utils"
)

type emailDispatchHarness struct {
	svc        *EmailDispatchService
	sqlMock    sqlmock.Sqlmock
	tm         *tenant.TenantManagerMock
	producer   *events.MockProducer
	messenger  *message.MessengerClientMock
	monitorSvc *monitor.MockMonitorService
}

func newEmailDispatchHarness(t *testing.T) *emailDispatchHarness {
	t.Helper()
	dbConnectionPool, sqlMock := dbtest.OpenMock(t)
	models, err := data.NewModels(dbConnectionPool)
	require.NoError(t, err)

	h := &emailDispatchHarness{
		sqlMock:    sqlMock,
		tm:         &tenant.TenantManagerMock{},
		producer:   &events.MockProducer{},
		messenger:  &message.MessengerClientMock{},
		monitorSvc: &monitor.MockMonitorService{},
	}
	h.svc, err = NewEmailDispatchService(EmailDispatchServiceOptions{
		Models:          models,
		TenantManager:   h.tm,
		Producer:        h.producer,
		MessengerClient: h.messenger,
		MonitorService:  h.monitorSvc,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		h.tm.AssertExpectations(t)
		h.producer.AssertExpectations(t)
		h.messenger.AssertExpectations(t)
		h.monitorSvc.AssertExpectations(t)
	})
	return h
}

func (h *emailDispatchHarness) expectStatusUpdate(status data.JobStatus, jobID string, rows *sqlmock.Rows) {
	h.sqlMock.ExpectQuery(`UPDATE email_jobs`).
		WithArgs(status, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), status.IsTerminal(), jobID, sqlmock.AnyArg()).
		WillReturnRows(rows)
}

func (h *emailDispatchHarness) expectOutcomeMetrics(status data.JobStatus, withDuration bool) {
	labels := monitor.JobLabels{Kind: "email", Status: string(status)}
	h.monitorSvc.On("MonitorCounters", monitor.JobsProcessedCounterTag, labels.ToMap()).Return(nil).Once()
	if withDuration {
		h.monitorSvc.On("MonitorDuration", mock.AnythingOfType("time.Duration"), monitor.JobDurationTag, map[string]string{"kind": "email"}).Return(nil).Once()
	}
}

func Test_EmailDispatchService_EnqueueReportEmail(t *testing.T) {
	ctx := context.Background()
	validRequest := ReportEmailRequest{
		TenantID:    intakeTenantID,
		ReportDate:  "2026-03-07",
		BranchCodes: []string{"BR-01"},
	}

	t.Run("🔴 rejects an invalid report date", func(t *testing.T) {
		h := newEmailDispatchHarness(t)

		req := validRequest
		req.ReportDate = "03/07/2026"
		_, err := h.svc.EnqueueReportEmail(ctx, req)
		require.ErrorContains(t, err, "validating report date")
	})

	t.Run("🔴 rejects an empty branch code", func(t *testing.T) {
		h := newEmailDispatchHarness(t)

		req := validRequest
		req.BranchCodes = []string{"BR-01", "  "}
		_, err := h.svc.EnqueueReportEmail(ctx, req)
		require.ErrorContains(t, err, "branch code 1 is empty")
	})

	t.Run("🔴 rejects when the mail relay is disabled, with no side effects", func(t *testing.T) {
		h := newEmailDispatchHarness(t)

		tnt := activeTenant()
		tnt.MailRelayEnabled = false
		tnt.MailRelayError = utils.StringPtr("sender address not verified")
		h.tm.On("GetTenantByID", ctx, intakeTenantID).Return(tnt, nil).Once()

		_, err := h.svc.EnqueueReportEmail(ctx, validRequest)
		require.True(t, IsServiceDisabled(err))
		var sdErr *ServiceDisabledError
		require.ErrorAs(t, err, &sdErr)
		assert.Equal(t, tenant.ServiceTypeMailRelay, sdErr.Service)
		assert.Contains(t, sdErr.Error(), "sender address not verified")
	})

	t.Run("🟢 creates a queued row and publishes the message", func(t *testing.T) {
		h := newEmailDispatchHarness(t)

		h.tm.On("GetTenantByID", ctx, intakeTenantID).Return(activeTenant(), nil).Once()
		h.sqlMock.ExpectQuery(`INSERT INTO email_jobs`).
			WillReturnRows(emailJobRow("email-job-new", data.QueuedJobStatus))

		h.producer.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []events.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			msg := msgs[0]
			jobData, ok := msg.Data.(schemas.EventReportEmailJobData)
			if !ok {
				return false
			}
			return msg.Topic == events.ReportEmailRequestedTopic &&
				msg.Type == events.ReportEmailRequestedType &&
				msg.TenantID == intakeTenantID &&
				jobData.ReportDate == "2026-03-07"
		})).Return(nil).Once()

		job, err := h.svc.EnqueueReportEmail(ctx, validRequest)
		require.NoError(t, err)
		assert.Equal(t, "email-job-new", job.JobID)
		assert.Equal(t, data.QueuedJobStatus, job.Status)
	})

	t.Run("🔴 returns the queued job alongside a publish failure", func(t *testing.T) {
		h := newEmailDispatchHarness(t)

		h.tm.On("GetTenantByID", ctx, intakeTenantID).Return(activeTenant(), nil).Once()
		h.sqlMock.ExpectQuery(`INSERT INTO email_jobs`).
			WillReturnRows(emailJobRow("email-job-new", data.QueuedJobStatus))
		h.producer.On("WriteMessages", mock.Anything, mock.Anything).
			Return(fmt.Errorf("broker unreachable")).Once()

		job, err := h.svc.EnqueueReportEmail(ctx, validRequest)
		require.ErrorContains(t, err, "publishing queue message")
		require.NotNil(t, job)
	})
}

func Test_EmailDispatchService_ProcessJob(t *testing.T) {
	ctx := tenant.SaveTenantInContext(context.Background(), activeTenant())
	jobData := schemas.EventReportEmailJobData{
		JobID:       "email-job-1",
		ReportDate:  "2026-03-07",
		BranchCodes: []string{"BR-01"},
	}

	sendTo := func(recipient string) interface{} {
		return mock.MatchedBy(func(msg message.Message) bool {
			return msg.ToEmail == recipient && msg.Title == "Your StoreLens report for 2026-03-07"
		})
	}
	expectCounterUpdate := func(h *emailDispatchHarness, sentDelta, failedDelta int) {
		h.sqlMock.ExpectQuery(`UPDATE email_jobs`).
			WithArgs(sentDelta, failedDelta, jobData.JobID, data.ProcessingJobStatus).
			WillReturnRows(emailJobRow(jobData.JobID, data.ProcessingJobStatus))
	}

	t.Run("🟢 sends to every recipient and tolerates individual failures", func(t *testing.T) {
		h := newEmailDispatchHarness(t)

		h.expectStatusUpdate(data.ProcessingJobStatus, jobData.JobID, emailJobRow(jobData.JobID, data.ProcessingJobStatus))
		h.sqlMock.ExpectQuery(`SELECT DISTINCT email`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"email"}).
				AddRow("ana@acme.test").AddRow("bruno@acme.test").AddRow("clara@acme.test"))

		h.messenger.On("SendMessage", mock.Anything, sendTo("ana@acme.test")).Return(nil).Once()
		h.messenger.On("SendMessage", mock.Anything, sendTo("bruno@acme.test")).
			Return(fmt.Errorf("mailbox unavailable")).Times(emailSendAttempts)
		h.messenger.On("SendMessage", mock.Anything, sendTo("clara@acme.test")).Return(nil).Once()

		expectCounterUpdate(h, 1, 0)
		expectCounterUpdate(h, 0, 1)
		expectCounterUpdate(h, 1, 0)

		h.expectStatusUpdate(data.CompletedJobStatus, jobData.JobID, emailJobRow(jobData.JobID, data.CompletedJobStatus))
		h.expectOutcomeMetrics(data.CompletedJobStatus, true)

		err := h.svc.ProcessJob(ctx, jobData)
		require.NoError(t, err)
	})

	t.Run("🟢 completes a job with no recipients", func(t *testing.T) {
		h := newEmailDispatchHarness(t)

		noBranches := jobData
		noBranches.BranchCodes = nil

		h.expectStatusUpdate(data.ProcessingJobStatus, jobData.JobID, emailJobRow(jobData.JobID, data.ProcessingJobStatus))
		h.sqlMock.ExpectQuery(`SELECT DISTINCT email`).
			WillReturnRows(sqlmock.NewRows([]string{"email"}))
		h.expectStatusUpdate(data.CompletedJobStatus, jobData.JobID, emailJobRow(jobData.JobID, data.CompletedJobStatus))
		h.expectOutcomeMetrics(data.CompletedJobStatus, true)

		err := h.svc.ProcessJob(ctx, noBranches)
		require.NoError(t, err)
	})

	t.Run("🔴 fails the job when every send fails", func(t *testing.T) {
		h := newEmailDispatchHarness(t)

		h.expectStatusUpdate(data.ProcessingJobStatus, jobData.JobID, emailJobRow(jobData.JobID, data.ProcessingJobStatus))
		h.sqlMock.ExpectQuery(`SELECT DISTINCT email`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"email"}).
				AddRow("ana@acme.test").AddRow("bruno@acme.test"))

		h.messenger.On("SendMessage", mock.Anything, mock.Anything).
			Return(fmt.Errorf("relay rejected the sender")).Times(2 * emailSendAttempts)
		expectCounterUpdate(h, 0, 1)
		expectCounterUpdate(h, 0, 1)

		h.sqlMock.ExpectQuery(`UPDATE email_jobs`).
			WithArgs(data.FailedJobStatus, nil, "all 2 report emails failed", 2, true, jobData.JobID, sqlmock.AnyArg()).
			WillReturnRows(emailJobRow(jobData.JobID, data.FailedJobStatus))
		h.expectOutcomeMetrics(data.FailedJobStatus, false)

		err := h.svc.ProcessJob(ctx, jobData)
		require.NoError(t, err)
	})

	t.Run("🟢 skips a redelivered message for a terminal job", func(t *testing.T) {
		h := newEmailDispatchHarness(t)

		h.sqlMock.ExpectQuery(`UPDATE email_jobs`).
			WillReturnRows(sqlmock.NewRows(emailJobColumns))
		h.sqlMock.ExpectQuery(`SELECT (.+) FROM email_jobs`).
			WillReturnRows(emailJobRow(jobData.JobID, data.CompletedJobStatus))

		err := h.svc.ProcessJob(ctx, jobData)
		require.NoError(t, err)
	})

	t.Run("🔴 aborts when a counter update fails", func(t *testing.T) {
		h := newEmailDispatchHarness(t)

		h.expectStatusUpdate(data.ProcessingJobStatus, jobData.JobID, emailJobRow(jobData.JobID, data.ProcessingJobStatus))
		h.sqlMock.ExpectQuery(`SELECT DISTINCT email`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("ana@acme.test"))
		h.messenger.On("SendMessage", mock.Anything, sendTo("ana@acme.test")).Return(nil).Once()
		h.sqlMock.ExpectQuery(`UPDATE email_jobs`).
			WillReturnError(fmt.Errorf("connection reset"))

		err := h.svc.ProcessJob(ctx, jobData)
		require.ErrorContains(t, err, "updating counters of email job email-job-1")
	})
}

func Test_NewEmailDispatchService_validation(t *testing.T) {
	dbConnectionPool, _ := dbtest.OpenMock(t)
	models, err := data.NewModels(dbConnectionPool)
	require.NoError(t, err)

	_, err = NewEmailDispatchService(EmailDispatchServiceOptions{})
	require.ErrorContains(t, err, "models are required")

	_, err = NewEmailDispatchService(EmailDispatchServiceOptions{Models: models})
	require.ErrorContains(t, err, "tenant manager is required")

	_, err = NewEmailDispatchService(EmailDispatchServiceOptions{Models: models, TenantManager: &tenant.TenantManagerMock{}})
	require.ErrorContains(t, err, "producer is required")

	_, err = NewEmailDispatchService(EmailDispatchServiceOptions{
		Models:        models,
		TenantManager: &tenant.TenantManagerMock{},
		Producer:      &events.MockProducer{},
	})
	require.ErrorContains(t, err, "messenger client is required")
}
