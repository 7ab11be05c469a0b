package monitor

type MetricTag string

const (
	SuccessfulQueryDurationTag MetricTag = "successful_queries_duration"
	FailureQueryDurationTag    MetricTag = "failure_queries_duration"
	// Jobs:
	JobsProcessedCounterTag MetricTag = "jobs_processed_counter"
	JobDurationTag          MetricTag = "job_duration_seconds"
	StuckJobsCounterTag     MetricTag = "stuck_jobs_counter"
	QueueDepthGaugeTag      MetricTag = "queue_depth"
)

func (m MetricTag) ListAll() []MetricTag {
	return []MetricTag{
		SuccessfulQueryDurationTag,
		FailureQueryDurationTag,
		JobsProcessedCounterTag,
		JobDurationTag,
		StuckJobsCounterTag,
		QueueDepthGaugeTag,
	}
}
