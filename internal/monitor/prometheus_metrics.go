package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

func PrometheusMetrics() map[MetricTag]prometheus.Collector {
	metrics := make(map[MetricTag]prometheus.Collector)

	for tag, summaryVec := range SummaryVecMetrics {
		metrics[tag] = summaryVec
	}

	for tag, counterVec := range CounterVecMetrics {
		metrics[tag] = counterVec
	}

	for tag, gaugeVec := range GaugeVecMetrics {
		metrics[tag] = gaugeVec
	}

	return metrics
}

var SummaryVecMetrics = map[MetricTag]*prometheus.SummaryVec{
	SuccessfulQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "storelens", Subsystem: "db", Name: string(SuccessfulQueryDurationTag),
		Help: "Successful DB query durations",
	},
		[]string{"query_type"},
	),
	FailureQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "storelens", Subsystem: "db", Name: string(FailureQueryDurationTag),
		Help: "Failure DB query durations",
	},
		[]string{"query_type"},
	),
	JobDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "storelens", Subsystem: "jobs", Name: string(JobDurationTag),
		Help: "Job processing durations by kind",
	},
		[]string{"kind"},
	),
}

var CounterVecMetrics = map[MetricTag]*prometheus.CounterVec{
	JobsProcessedCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storelens", Subsystem: "jobs", Name: string(JobsProcessedCounterTag),
		Help: "A counter of processed jobs by kind and terminal status",
	},
		[]string{"kind", "status"},
	),
	StuckJobsCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storelens", Subsystem: "jobs", Name: string(StuckJobsCounterTag),
		Help: "A counter of jobs force-failed by the stuck-job monitor",
	},
		[]string{"kind"},
	),
}

var GaugeVecMetrics = map[MetricTag]*prometheus.GaugeVec{
	QueueDepthGaugeTag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "storelens", Subsystem: "jobs", Name: string(QueueDepthGaugeTag),
		Help: "Number of non-terminal jobs by status across all tenants",
	},
		[]string{"status"},
	),
}
