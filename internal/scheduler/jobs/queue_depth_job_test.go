package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens-ingestion-backend/db/dbtest"
	"github.com/storelens/storelens-ingestion-backend/internal/data"
	"github.com/storelens/storelens-ingestion-backend/internal/monitor"
	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
)

func Test_QueueDepthJob_Execute(t *testing.T) {
	ctx := context.Background()

	newJob := func(t *testing.T) (*QueueDepthJob, sqlmock.Sqlmock, *tenant.TenantManagerMock, *monitor.MockMonitorService) {
		t.Helper()
		dbConnectionPool, sqlMock := dbtest.OpenMock(t)
		models, err := data.NewModels(dbConnectionPool)
		require.NoError(t, err)

		tm := &tenant.TenantManagerMock{}
		monitorSvc := &monitor.MockMonitorService{}
		job, err := NewQueueDepthJob(QueueDepthJobOptions{
			Models:         models,
			TenantManager:  tm,
			MonitorService: monitorSvc,
		})
		require.NoError(t, err)

		t.Cleanup(func() {
			tm.AssertExpectations(t)
			monitorSvc.AssertExpectations(t)
		})
		return job, sqlMock, tm, monitorSvc
	}

	countRows := func(counts map[data.JobStatus]int) *sqlmock.Rows {
		rows := sqlmock.NewRows([]string{"status", "count"})
		for status, count := range counts {
			rows.AddRow(status, count)
		}
		return rows
	}

	t.Run("🟢 publishes one gauge per status summed across tenants", func(t *testing.T) {
		job, sqlMock, tm, monitorSvc := newJob(t)

		tm.On("GetAllTenants", ctx).Return([]tenant.Tenant{
			{ID: "tenant-a", Status: tenant.ActivatedTenantStatus},
			{ID: "tenant-b", Status: tenant.ActivatedTenantStatus},
		}, nil).Once()

		sqlMock.ExpectQuery(`SELECT status, COUNT\(\*\) AS count FROM processing_jobs`).
			WillReturnRows(countRows(map[data.JobStatus]int{data.QueuedJobStatus: 2, data.ProcessingJobStatus: 1}))
		sqlMock.ExpectQuery(`SELECT status, COUNT\(\*\) AS count FROM processing_jobs`).
			WillReturnRows(countRows(map[data.JobStatus]int{data.QueuedJobStatus: 3, data.CompletedJobStatus: 7}))

		monitorSvc.On("SetGauge", float64(5), monitor.QueueDepthGaugeTag, map[string]string{"status": "queued"}).Return(nil).Once()
		monitorSvc.On("SetGauge", float64(1), monitor.QueueDepthGaugeTag, map[string]string{"status": "processing"}).Return(nil).Once()
		monitorSvc.On("SetGauge", float64(7), monitor.QueueDepthGaugeTag, map[string]string{"status": "completed"}).Return(nil).Once()
		monitorSvc.On("SetGauge", float64(0), monitor.QueueDepthGaugeTag, map[string]string{"status": "failed"}).Return(nil).Once()

		require.NoError(t, job.Execute(ctx))
	})

	t.Run("🟢 a broken tenant database does not hide the others", func(t *testing.T) {
		job, sqlMock, tm, monitorSvc := newJob(t)

		tm.On("GetAllTenants", ctx).Return([]tenant.Tenant{
			{ID: "tenant-a", Status: tenant.ActivatedTenantStatus},
			{ID: "tenant-b", Status: tenant.ActivatedTenantStatus},
		}, nil).Once()

		sqlMock.ExpectQuery(`SELECT status, COUNT\(\*\) AS count FROM processing_jobs`).
			WillReturnError(fmt.Errorf("connection refused"))
		sqlMock.ExpectQuery(`SELECT status, COUNT\(\*\) AS count FROM processing_jobs`).
			WillReturnRows(countRows(map[data.JobStatus]int{data.QueuedJobStatus: 4}))

		monitorSvc.On("SetGauge", float64(4), monitor.QueueDepthGaugeTag, map[string]string{"status": "queued"}).Return(nil).Once()
		monitorSvc.On("SetGauge", float64(0), monitor.QueueDepthGaugeTag, mock.Anything).Return(nil).Times(3)

		require.NoError(t, job.Execute(ctx))
	})

	t.Run("🔴 fails when the tenant directory is unavailable", func(t *testing.T) {
		job, _, tm, _ := newJob(t)

		tm.On("GetAllTenants", ctx).Return(nil, fmt.Errorf("admin database down")).Once()

		err := job.Execute(ctx)
		require.ErrorContains(t, err, "getting all tenants")
	})

	t.Run("🟢 reports its scheduling contract", func(t *testing.T) {
		job, _, _, _ := newJob(t)

		assert.Equal(t, QueueDepthJobName, job.GetName())
		assert.Equal(t, time.Duration(DefaultQueueDepthJobIntervalSeconds)*time.Second, job.GetInterval())
		assert.False(t, job.IsJobMultiTenant())
	})
}
