package data

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// JobStatus is the lifecycle state shared by ingestion and report-delivery jobs.
type JobStatus string

const (
	QueuedJobStatus     JobStatus = "queued"
	ProcessingJobStatus JobStatus = "processing"
	CompletedJobStatus  JobStatus = "completed"
	FailedJobStatus     JobStatus = "failed"
)

// JobStatuses returns all job statuses.
func JobStatuses() []JobStatus {
	return []JobStatus{QueuedJobStatus, ProcessingJobStatus, CompletedJobStatus, FailedJobStatus}
}

func (s JobStatus) IsValid() bool {
	return slices.Contains(JobStatuses(), s)
}

// IsTerminal reports whether the status is a final one. Terminal states are immutable once
// written.
func (s JobStatus) IsTerminal() bool {
	return s == CompletedJobStatus || s == FailedJobStatus
}

// jobStatusTransitions encodes the monotonic state machine:
// queued -> processing -> {completed, failed}. The queued -> failed edge exists so intake
// reconciliation can abandon jobs whose queue message was never delivered.
func jobStatusTransitions() []StateTransition {
	return []StateTransition{
		{From: State(QueuedJobStatus), To: State(ProcessingJobStatus)},
		{From: State(ProcessingJobStatus), To: State(CompletedJobStatus)},
		{From: State(ProcessingJobStatus), To: State(FailedJobStatus)},
		{From: State(QueuedJobStatus), To: State(FailedJobStatus)},
	}
}

// TransitionTo validates the status transition from s to target.
func (s JobStatus) TransitionTo(target JobStatus) error {
	sm := NewStateMachine(State(s), jobStatusTransitions())
	if err := sm.TransitionTo(State(target)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStatusTransition, err)
	}
	return nil
}

// SourceStatuses returns the statuses from which target is reachable. Used to build the SQL
// guard that keeps status updates monotonic under concurrent writers.
func (s JobStatus) SourceStatuses() []JobStatus {
	var sources []JobStatus
	for _, t := range jobStatusTransitions() {
		if t.To == State(s) {
			sources = append(sources, JobStatus(t.From))
		}
	}
	return sources
}
