package cmd

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/storelens/storelens-ingestion-backend/db"
	"github.com/storelens/storelens-ingestion-backend/internal/crashtracker"
	"github.com/storelens/storelens-ingestion-backend/internal/data"
	di "github.com/storelens/storelens-ingestion-backend/internal/dependencyinjection"
	"github.com/storelens/storelens-ingestion-backend/internal/events"
	"github.com/storelens/storelens-ingestion-backend/internal/events/eventhandlers"
	"github.com/storelens/storelens-ingestion-backend/internal/ingest"
	"github.com/storelens/storelens-ingestion-backend/internal/message"
	"github.com/storelens/storelens-ingestion-backend/internal/monitor"
	"github.com/storelens/storelens-ingestion-backend/internal/scheduler"
	"github.com/storelens/storelens-ingestion-backend/internal/scheduler/jobs"
	"github.com/storelens/storelens-ingestion-backend/internal/serve"
	"github.com/storelens/storelens-ingestion-backend/internal/services"
	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
)

func WorkerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the ingestion worker",
		Long:  "Run the ingestion worker: queue consumers for ingestion and report-email jobs, the background job monitor and the metrics endpoint. Blocks until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context())
		},
	}

	cmd.Flags().Int("metrics-port", 8002, "Port where the metrics server will be listening")
	cmd.Flags().Int("extraction-pool-workers", 4, "Number of workers in the bounded extraction pool")
	cmd.Flags().Int("extraction-pool-queue-depth", 8, "Depth of the extraction pool's task queue; a full queue rejects jobs for redelivery")
	cmd.Flags().String("consumer-group-id", "storelens-ingestion", "Kafka consumer group ID shared by the worker replicas")
	cmd.Flags().Int("stuck-job-timeout-seconds", 1800, "Age in seconds after which a processing job is considered stuck and failed")
	cmd.Flags().Int("queued-job-threshold-seconds", 900, "Age in seconds after which a queued job's message is considered lost and republished")
	cmd.Flags().Int("stuck-jobs-interval-seconds", jobs.DefaultStuckJobsJobIntervalSeconds, "Interval in seconds between stuck-job sweeps")
	cmd.Flags().Int("queued-jobs-reconciliation-interval-seconds", jobs.DefaultQueuedJobsReconciliationJobIntervalSeconds, "Interval in seconds between queued-job reconciliation sweeps")
	cmd.Flags().Int("queue-depth-interval-seconds", jobs.DefaultQueueDepthJobIntervalSeconds, "Interval in seconds between queue depth gauge refreshes")
	cmd.Flags().Int("credential-cache-size", 64, "Maximum number of tenant source credentials kept in the registry cache")
	cmd.Flags().Int("credential-cache-ttl-seconds", 300, "TTL in seconds of cached tenant source credentials")
	cmd.Flags().String("email-sender-type", string(message.MessengerTypeDryRun), "Email sender type. Options: \"AWS_EMAIL\", \"DRY_RUN\"")
	cmd.Flags().String("aws-region", "", "The AWS region of the SES service")
	cmd.Flags().String("aws-ses-sender-email", "", "The verified sender address used for report emails")
	cmd.Flags().String("aws-access-key-id", "", "The AWS IAM user's access key ID")
	cmd.Flags().String("aws-secret-access-key", "", "The AWS IAM user's secret access key")

	return cmd
}

func runWorker(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	adminDBConnectionPool, err := di.NewAdminDBConnectionPool(ctx, di.DBConnectionPoolOptions{AdminDatabaseURL: globalOptions.AdminDatabaseURL})
	if err != nil {
		return fmt.Errorf("getting admin DB connection pool: %w", err)
	}
	defer func() {
		if closeErr := adminDBConnectionPool.Close(); closeErr != nil {
			log.WithContext(ctx).WithError(closeErr).Error("closing admin DB connection pool")
		}
	}()

	crashTrackerOptions := crashtracker.CrashTrackerOptions{CrashTrackerType: globalOptions.CrashTrackerType}
	globalOptions.PopulateCrashTrackerOptions(&crashTrackerOptions)
	crashTrackerClient, err := di.NewCrashTracker(ctx, crashTrackerOptions)
	if err != nil {
		return fmt.Errorf("getting crash tracker client: %w", err)
	}

	mtnDBConnectionPool, err := di.NewMtnDBConnectionPool(ctx, di.DBConnectionPoolOptions{AdminDatabaseURL: globalOptions.AdminDatabaseURL})
	if err != nil {
		return fmt.Errorf("getting multi-tenant DB connection pool: %w", err)
	}

	monitorService := &monitor.MonitorService{}
	metricOptions := monitor.MetricOptions{MetricType: monitor.MetricTypePrometheus, Environment: globalOptions.Environment}
	if err = monitorService.Start(metricOptions); err != nil {
		return fmt.Errorf("starting monitor service: %w", err)
	}

	mtnDBConnectionPoolWithMetrics, err := db.NewDBConnectionPoolWithMetrics(mtnDBConnectionPool, monitorService)
	if err != nil {
		return fmt.Errorf("instrumenting multi-tenant DB connection pool: %w", err)
	}
	models, err := data.NewModels(mtnDBConnectionPoolWithMetrics)
	if err != nil {
		return fmt.Errorf("creating models: %w", err)
	}
	tenantManager := tenant.NewManager(tenant.WithDatabase(adminDBConnectionPool))
	credentials := tenant.NewSourceCredentialRegistry(
		tenantManager,
		viper.GetInt("credential-cache-size"),
		time.Duration(viper.GetInt("credential-cache-ttl-seconds"))*time.Second,
	)

	go func() {
		serveErr := serve.MetricsServe(serve.MetricsServeOptions{
			Port:           viper.GetInt("metrics-port"),
			Environment:    globalOptions.Environment,
			MonitorService: monitorService,
			MetricType:     metricOptions.MetricType,
		}, nil)
		if serveErr != nil {
			log.WithContext(ctx).Fatalf("running metrics server: %s", serveErr)
		}
	}()

	producer, err := di.NewEventProducer(ctx, di.EventProducerOptions{BrokerType: globalOptions.BrokerType, Brokers: globalOptions.Brokers})
	if err != nil {
		return fmt.Errorf("getting event producer: %w", err)
	}
	defer func() {
		if closeErr := producer.Close(ctx); closeErr != nil {
			log.WithContext(ctx).WithError(closeErr).Error("closing event producer")
		}
	}()

	messengerOptions, err := emailClientOptions()
	if err != nil {
		return err
	}
	emailClient, err := di.NewEmailClient(ctx, messengerOptions)
	if err != nil {
		return fmt.Errorf("getting email client: %w", err)
	}

	extractionPool, err := ingest.NewExtractionPool(viper.GetInt("extraction-pool-workers"), viper.GetInt("extraction-pool-queue-depth"))
	if err != nil {
		return fmt.Errorf("creating extraction pool: %w", err)
	}
	extractionPool.Start(ctx)

	ingestionWorker, err := ingest.NewWorker(ingest.WorkerOptions{
		Models:         models,
		Credentials:    credentials,
		Pool:           extractionPool,
		MonitorService: monitorService,
	})
	if err != nil {
		return fmt.Errorf("creating ingestion worker: %w", err)
	}

	emailDispatchService, err := services.NewEmailDispatchService(services.EmailDispatchServiceOptions{
		Models:          models,
		TenantManager:   tenantManager,
		Producer:        producer,
		MessengerClient: emailClient,
		MonitorService:  monitorService,
	})
	if err != nil {
		return fmt.Errorf("creating email dispatch service: %w", err)
	}

	if globalOptions.BrokerType == events.KafkaEventBrokerType {
		if err = startConsumers(ctx, tenantManager, ingestionWorker, emailDispatchService, producer, crashTrackerClient); err != nil {
			return err
		}
	} else {
		log.WithContext(ctx).Warn("event broker is NONE, running in scheduler-only mode")
	}

	stuckTimeout := time.Duration(viper.GetInt("stuck-job-timeout-seconds")) * time.Second
	queuedThreshold := time.Duration(viper.GetInt("queued-job-threshold-seconds")) * time.Second
	scheduler.StartScheduler(adminDBConnectionPool, crashTrackerClient.Clone(),
		scheduler.WithStuckJobsJobOption(jobs.StuckJobsJobOptions{
			JobIntervalSeconds: viper.GetInt("stuck-jobs-interval-seconds"),
			Models:             models,
			Producer:           producer,
			MonitorService:     monitorService,
			StuckTimeout:       stuckTimeout,
		}),
		scheduler.WithQueuedJobsReconciliationJobOption(jobs.QueuedJobsReconciliationJobOptions{
			JobIntervalSeconds: viper.GetInt("queued-jobs-reconciliation-interval-seconds"),
			Models:             models,
			Producer:           producer,
			QueuedThreshold:    queuedThreshold,
		}),
		scheduler.WithQueueDepthJobOption(jobs.QueueDepthJobOptions{
			JobIntervalSeconds: viper.GetInt("queue-depth-interval-seconds"),
			Models:             models,
			TenantManager:      tenantManager,
			MonitorService:     monitorService,
		}),
	)

	return nil
}

func emailClientOptions() (message.MessengerOptions, error) {
	messengerType, err := message.ParseMessengerType(viper.GetString("email-sender-type"))
	if err != nil {
		return message.MessengerOptions{}, fmt.Errorf("parsing email sender type: %w", err)
	}
	return message.MessengerOptions{
		MessengerType:      messengerType,
		AWSRegion:          viper.GetString("aws-region"),
		AWSSESSenderEmail:  viper.GetString("aws-ses-sender-email"),
		AWSAccessKeyID:     viper.GetString("aws-access-key-id"),
		AWSSecretAccessKey: viper.GetString("aws-secret-access-key"),
	}, nil
}

// startConsumers launches one consumer goroutine per topic. Each consumer gets its own clone of
// the crash tracker so panics are attributed to the right consume loop.
func startConsumers(
	ctx context.Context,
	tenantManager tenant.ManagerInterface,
	ingestionWorker *ingest.Worker,
	emailDispatchService *services.EmailDispatchService,
	producer events.Producer,
	crashTrackerClient crashtracker.CrashTrackerClient,
) error {
	consumerGroupID := viper.GetString("consumer-group-id")

	ingestionConsumer, err := events.NewKafkaConsumer(
		globalOptions.Brokers,
		events.IngestionJobRequestedTopic,
		consumerGroupID,
		eventhandlers.NewIngestionJobEventHandler(eventhandlers.IngestionJobEventHandlerOptions{
			TenantManager: tenantManager,
			Service:       ingestionWorker,
		}),
	)
	if err != nil {
		return fmt.Errorf("creating ingestion job consumer: %w", err)
	}
	go events.NewEventConsumer(ingestionConsumer, producer, crashTrackerClient.Clone()).Consume(ctx)

	emailConsumer, err := events.NewKafkaConsumer(
		globalOptions.Brokers,
		events.ReportEmailRequestedTopic,
		consumerGroupID,
		eventhandlers.NewReportEmailEventHandler(eventhandlers.ReportEmailEventHandlerOptions{
			TenantManager: tenantManager,
			Service:       emailDispatchService,
		}),
	)
	if err != nil {
		return fmt.Errorf("creating report email consumer: %w", err)
	}
	go events.NewEventConsumer(emailConsumer, producer, crashTrackerClient.Clone()).Consume(ctx)

	return nil
}
