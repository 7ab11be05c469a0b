package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_JobStatus_IsValid(t *testing.T) {
	for _, s := range JobStatuses() {
		assert.True(t, s.IsValid(), "expected %s to be valid", s)
	}
	assert.False(t, JobStatus("pending").IsValid())
	assert.False(t, JobStatus("QUEUED").IsValid())
	assert.False(t, JobStatus("").IsValid())
}

func Test_JobStatus_IsTerminal(t *testing.T) {
	assert.False(t, QueuedJobStatus.IsTerminal())
	assert.False(t, ProcessingJobStatus.IsTerminal())
	assert.True(t, CompletedJobStatus.IsTerminal())
	assert.True(t, FailedJobStatus.IsTerminal())
}

func Test_JobStatus_TransitionTo(t *testing.T) {
	testCases := []struct {
		from    JobStatus
		to      JobStatus
		wantErr bool
	}{
		{from: QueuedJobStatus, to: ProcessingJobStatus, wantErr: false},
		{from: QueuedJobStatus, to: FailedJobStatus, wantErr: false},
		{from: ProcessingJobStatus, to: CompletedJobStatus, wantErr: false},
		{from: ProcessingJobStatus, to: FailedJobStatus, wantErr: false},
		{from: QueuedJobStatus, to: CompletedJobStatus, wantErr: true},
		{from: ProcessingJobStatus, to: QueuedJobStatus, wantErr: true},
		{from: CompletedJobStatus, to: FailedJobStatus, wantErr: true},
		{from: CompletedJobStatus, to: ProcessingJobStatus, wantErr: true},
		{from: FailedJobStatus, to: CompletedJobStatus, wantErr: true},
		{from: FailedJobStatus, to: QueuedJobStatus, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			err := tc.from.TransitionTo(tc.to)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidStatusTransition)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func Test_JobStatus_SourceStatuses(t *testing.T) {
	assert.ElementsMatch(t, []JobStatus{QueuedJobStatus}, ProcessingJobStatus.SourceStatuses())
	assert.ElementsMatch(t, []JobStatus{ProcessingJobStatus}, CompletedJobStatus.SourceStatuses())
	assert.ElementsMatch(t, []JobStatus{ProcessingJobStatus, QueuedJobStatus}, FailedJobStatus.SourceStatuses())
	assert.Empty(t, QueuedJobStatus.SourceStatuses())
}
