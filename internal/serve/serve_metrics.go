package serve

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/storelens/storelens-ingestion-backend/internal/monitor"
)

type MetricsServeOptions struct {
	Port        int
	Environment string

	MonitorService monitor.MonitorServiceInterface
	MetricType     monitor.MetricType
}

// HTTPServerInterface is the minimal server surface MetricsServe needs, so tests can intercept
// the blocking ListenAndServe call.
type HTTPServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// MetricsServe starts the metrics endpoint and blocks until the server stops. Pass a nil
// httpServer to listen on opts.Port.
func MetricsServe(opts MetricsServeOptions, httpServer HTTPServerInterface) error {
	handler, err := handleMetricsHTTP(opts)
	if err != nil {
		return fmt.Errorf("building metrics handler: %w", err)
	}

	metricsAddr := fmt.Sprintf(":%d", opts.Port)
	if httpServer == nil {
		httpServer = &http.Server{
			Addr:         metricsAddr,
			Handler:      handler,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  2 * time.Minute,
		}
	}

	log.Infof("Starting %s Metrics Server, listening on %s", opts.MetricType, metricsAddr)
	if err = httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("running metrics server: %w", err)
	}
	return nil
}

func handleMetricsHTTP(opts MetricsServeOptions) (http.Handler, error) {
	metricHTTPHandler, err := opts.MonitorService.GetMetricHttpHandler()
	if err != nil {
		return nil, fmt.Errorf("getting metric http handler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricHTTPHandler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "pass"}`))
	})
	return mux, nil
}
