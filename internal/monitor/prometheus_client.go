package monitor

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type prometheusClient struct {
	httpHandler http.Handler
}

func (prometheusClient) GetMetricType() MetricType {
	return MetricTypePrometheus
}

func (p *prometheusClient) GetMetricHttpHandler() http.Handler {
	return p.httpHandler
}

func (p *prometheusClient) MonitorDBQueryDuration(duration time.Duration, tag MetricTag, labels DBQueryLabels) {
	summary, ok := SummaryVecMetrics[tag]
	if !ok {
		log.Errorf("metric not registered in Prometheus SummaryVecMetrics: %s", tag)
		return
	}
	summary.With(prometheus.Labels{
		"query_type": labels.QueryType,
	}).Observe(duration.Seconds())
}

func (p *prometheusClient) MonitorDuration(duration time.Duration, tag MetricTag, labels map[string]string) {
	summary, ok := SummaryVecMetrics[tag]
	if !ok {
		log.Errorf("metric not registered in Prometheus SummaryVecMetrics: %s", tag)
		return
	}
	summary.With(labels).Observe(duration.Seconds())
}

func (p *prometheusClient) MonitorCounters(tag MetricTag, labels map[string]string) {
	counterVec, ok := CounterVecMetrics[tag]
	if !ok {
		log.Errorf("metric not registered in Prometheus CounterVecMetrics: %s", tag)
		return
	}
	counterVec.With(labels).Inc()
}

func (p *prometheusClient) SetGauge(value float64, tag MetricTag, labels map[string]string) {
	gaugeVec, ok := GaugeVecMetrics[tag]
	if !ok {
		log.Errorf("metric not registered in Prometheus GaugeVecMetrics: %s", tag)
		return
	}
	gaugeVec.With(labels).Set(value)
}

func NewPrometheusClient() (*prometheusClient, error) {
	metricsRegistry := prometheus.NewRegistry()

	var metricTag MetricTag
	for _, tag := range metricTag.ListAll() {
		if summaryVecMetric, ok := SummaryVecMetrics[tag]; ok {
			metricsRegistry.MustRegister(summaryVecMetric)
		} else if counterVecMetric, ok := CounterVecMetrics[tag]; ok {
			metricsRegistry.MustRegister(counterVecMetric)
		} else if gaugeVecMetric, ok := GaugeVecMetrics[tag]; ok {
			metricsRegistry.MustRegister(gaugeVecMetric)
		} else {
			return nil, fmt.Errorf("metric not registered in prometheus metrics: %s", tag)
		}
	}

	return &prometheusClient{httpHandler: promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})}, nil
}

var _ MonitorClient = (*prometheusClient)(nil)
