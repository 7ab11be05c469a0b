package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/storelens/storelens-ingestion-backend/internal/data"
	di "github.com/storelens/storelens-ingestion-backend/internal/dependencyinjection"
	"github.com/storelens/storelens-ingestion-backend/internal/message"
	"github.com/storelens/storelens-ingestion-backend/internal/services"
	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
)

func EnqueueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Submit a job to the pipeline",
		Run: func(cmd *cobra.Command, args []string) {
			if err := cmd.Help(); err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}

	ingestionCmd := &cobra.Command{
		Use:   "ingestion",
		Short: "Submit an ingestion job for a tenant and date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnqueueIngestion(cmd.Context())
		},
	}
	ingestionCmd.Flags().String("tenant-id", "", "ID of the tenant the job belongs to")
	ingestionCmd.Flags().String("start-date", "", "First day of the range to ingest, inclusive (YYYY-MM-DD)")
	ingestionCmd.Flags().String("end-date", "", "Last day of the range to ingest, inclusive (YYYY-MM-DD)")
	ingestionCmd.Flags().StringSlice("data-types", []string{string(data.DataTypeEvents)}, "Data types to ingest. Options: \"events\", \"users\", \"locations\"")
	cmd.AddCommand(ingestionCmd)

	reportEmailCmd := &cobra.Command{
		Use:   "report-email",
		Short: "Submit a report email delivery job for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnqueueReportEmail(cmd.Context())
		},
	}
	reportEmailCmd.Flags().String("tenant-id", "", "ID of the tenant the report belongs to")
	reportEmailCmd.Flags().String("report-date", "", "Date of the report to deliver (YYYY-MM-DD)")
	reportEmailCmd.Flags().StringSlice("branch-codes", nil, "Branch codes to deliver to. Empty means every branch")
	cmd.AddCommand(reportEmailCmd)

	return cmd
}

// enqueueDependencies builds the shared intake wiring: the tenant directory manager, the
// tenant-routed models and the event producer behind both intake services.
func enqueueDependencies(ctx context.Context) (*services.IntakeService, *services.EmailDispatchService, error) {
	adminDBConnectionPool, err := di.NewAdminDBConnectionPool(ctx, di.DBConnectionPoolOptions{AdminDatabaseURL: globalOptions.AdminDatabaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("getting admin DB connection pool: %w", err)
	}
	mtnDBConnectionPool, err := di.NewMtnDBConnectionPool(ctx, di.DBConnectionPoolOptions{AdminDatabaseURL: globalOptions.AdminDatabaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("getting multi-tenant DB connection pool: %w", err)
	}
	producer, err := di.NewEventProducer(ctx, di.EventProducerOptions{BrokerType: globalOptions.BrokerType, Brokers: globalOptions.Brokers})
	if err != nil {
		return nil, nil, fmt.Errorf("getting event producer: %w", err)
	}

	models, err := data.NewModels(mtnDBConnectionPool)
	if err != nil {
		return nil, nil, fmt.Errorf("creating models: %w", err)
	}
	tenantManager := tenant.NewManager(tenant.WithDatabase(adminDBConnectionPool))

	intakeService, err := services.NewIntakeService(models, tenantManager, producer)
	if err != nil {
		return nil, nil, fmt.Errorf("creating intake service: %w", err)
	}

	// The enqueue path only creates the job row and publishes its message, so the messenger
	// client is never exercised. A dry-run client satisfies the service's wiring.
	emailClient, err := di.NewEmailClient(ctx, message.MessengerOptions{MessengerType: message.MessengerTypeDryRun})
	if err != nil {
		return nil, nil, fmt.Errorf("getting email client: %w", err)
	}
	emailDispatchService, err := services.NewEmailDispatchService(services.EmailDispatchServiceOptions{
		Models:          models,
		TenantManager:   tenantManager,
		Producer:        producer,
		MessengerClient: emailClient,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating email dispatch service: %w", err)
	}

	return intakeService, emailDispatchService, nil
}

func runEnqueueIngestion(ctx context.Context) error {
	intakeService, _, err := enqueueDependencies(ctx)
	if err != nil {
		return err
	}

	job, err := intakeService.EnqueueIngestionJob(ctx, services.IngestionJobRequest{
		TenantID:  viper.GetString("tenant-id"),
		StartDate: viper.GetString("start-date"),
		EndDate:   viper.GetString("end-date"),
		DataTypes: viper.GetStringSlice("data-types"),
	})
	if err != nil {
		if job != nil {
			log.WithContext(ctx).Warnf("job %s was created but its queue message was not published; the reconciliation sweep will pick it up", job.JobID)
		}
		return fmt.Errorf("enqueueing ingestion job: %w", err)
	}

	log.WithContext(ctx).Infof("enqueued ingestion job %s for tenant %s", job.JobID, job.TenantID)
	return nil
}

func runEnqueueReportEmail(ctx context.Context) error {
	_, emailDispatchService, err := enqueueDependencies(ctx)
	if err != nil {
		return err
	}

	job, err := emailDispatchService.EnqueueReportEmail(ctx, services.ReportEmailRequest{
		TenantID:    viper.GetString("tenant-id"),
		ReportDate:  viper.GetString("report-date"),
		BranchCodes: viper.GetStringSlice("branch-codes"),
	})
	if err != nil {
		if job != nil {
			log.WithContext(ctx).Warnf("job %s was created but its queue message was not published; the reconciliation sweep will pick it up", job.JobID)
		}
		return fmt.Errorf("enqueueing report email job: %w", err)
	}

	log.WithContext(ctx).Infof("enqueued report email job %s for tenant %s", job.JobID, job.TenantID)
	return nil
}
