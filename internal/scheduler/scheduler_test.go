package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens-ingestion-backend/internal/crashtracker"
	"github.com/storelens/storelens-ingestion-backend/internal/scheduler/jobs"
	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
)

func TestScheduler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	scheduler := newScheduler(cancel)

	mockCrashTrackerClient := &crashtracker.MockCrashTrackerClient{}
	scheduler.crashTrackerClient = mockCrashTrackerClient

	clone := crashtracker.MockCrashTrackerClient{}
	mockCrashTrackerClient.On("Clone").Return(&clone).Times(SchedulerWorkerCount)

	mockJob1 := &jobs.MockJob{
		Name:     "mock_job_1",
		Interval: 1 * time.Second,
	}

	mockJob2 := &jobs.MockJob{
		Name:     "mock_job_2",
		Interval: 20 * time.Second,
	}

	scheduler.addJob(mockJob1)
	scheduler.addJob(mockJob2)

	// Start the scheduler and wait for a short period to let the job run
	scheduler.start(ctx)
	time.Sleep(2 * time.Second)

	job1Executions := mockJob1.GetExecutions()
	require.True(t, job1Executions > 0, "Expected job to be executed at least once, but it was executed %d times", job1Executions)

	job2Executions := mockJob2.GetExecutions()
	require.True(t, job2Executions == 0, "Expected job to be executed 0 times, but it was executed %d times", job2Executions)

	// Test stopping the scheduler
	cancel()
	time.Sleep(1 * time.Second)

	mockCrashTrackerClient.AssertExpectations(t)
}

func TestScheduler_multiTenantJobRunsOncePerTenant(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	scheduler := newScheduler(cancel)

	mockCrashTrackerClient := &crashtracker.MockCrashTrackerClient{}
	scheduler.crashTrackerClient = mockCrashTrackerClient

	clone := crashtracker.MockCrashTrackerClient{}
	mockCrashTrackerClient.On("Clone").Return(&clone).Times(SchedulerWorkerCount)

	tenantManager := &tenant.TenantManagerMock{}
	scheduler.tenantManager = tenantManager
	tenantManager.On("GetAllTenants", mock.Anything).Return([]tenant.Tenant{
		{ID: "tenant-a", Status: tenant.ActivatedTenantStatus},
		{ID: "tenant-b", Status: tenant.ActivatedTenantStatus},
	}, nil)

	mockJob := &jobs.MockMultiTenantJob{
		Name:     "mock_multi_tenant_job",
		Interval: 1 * time.Second,
	}
	scheduler.addJob(mockJob)

	scheduler.start(ctx)
	time.Sleep(2 * time.Second)

	require.True(t, mockJob.GetExecutions("tenant-a") > 0, "Expected job to run for tenant-a")
	require.True(t, mockJob.GetExecutions("tenant-b") > 0, "Expected job to run for tenant-b")

	cancel()
	time.Sleep(1 * time.Second)

	mockCrashTrackerClient.AssertExpectations(t)
}
