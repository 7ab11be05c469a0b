package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdUtils "github.com/storelens/storelens-ingestion-backend/cmd/utils"
	"github.com/storelens/storelens-ingestion-backend/internal/crashtracker"
	"github.com/storelens/storelens-ingestion-backend/internal/events"
)

// globalOptions is a variable containing the global CLI options applicable to all commands.
var globalOptions cmdUtils.GlobalOptionsType

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "storelens-ingestion",
		Short:   "StoreLens ingestion backend",
		Long:    "Tenant-aware ingestion pipeline for StoreLens: job intake, queue consumption, extract/transform/load workers and background job monitoring.",
		Version: globalOptions.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmdUtils.BindFlagsToEnv(cmd); err != nil {
				return err
			}
			return populateGlobalOptions()
		},
		Run: func(cmd *cobra.Command, args []string) {
			if err := cmd.Help(); err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}

	cmd.PersistentFlags().String("log-level", "TRACE", "The log level used in this project. Options: \"TRACE\", \"DEBUG\", \"INFO\", \"WARN\", \"ERROR\", \"FATAL\", or \"PANIC\"")
	cmd.PersistentFlags().String("environment", "development", "The environment where the application is running. Example: \"development\", \"staging\", \"production\"")
	cmd.PersistentFlags().String("admin-database-url", "postgres://localhost:5432/storelens-admin?sslmode=disable", "Postgres DB URL of the admin database that holds the tenants directory")
	cmd.PersistentFlags().String("crash-tracker-type", string(crashtracker.CrashTrackerTypeDryRun), "Crash tracker type. Options: \"SENTRY\", \"DRY_RUN\"")
	cmd.PersistentFlags().String("sentry-dsn", "", "The DSN (client key) of the Sentry project. Only used when the crash tracker type is \"SENTRY\"")
	cmd.PersistentFlags().String("event-broker-type", string(events.KafkaEventBrokerType), "Event broker type. Options: \"KAFKA\", \"NONE\"")
	cmd.PersistentFlags().StringSlice("brokers", []string{"localhost:9092"}, "List of event broker addresses")

	return cmd
}

// populateGlobalOptions loads the bound persistent flag values into globalOptions and applies
// the log level.
func populateGlobalOptions() error {
	logLevel, err := log.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	log.SetLevel(logLevel)

	crashTrackerType, err := crashtracker.ParseCrashTrackerType(viper.GetString("crash-tracker-type"))
	if err != nil {
		return fmt.Errorf("parsing crash tracker type: %w", err)
	}

	brokerType, err := events.ParseEventBrokerType(viper.GetString("event-broker-type"))
	if err != nil {
		return fmt.Errorf("parsing event broker type: %w", err)
	}

	globalOptions.LogLevel = logLevel
	globalOptions.Environment = viper.GetString("environment")
	globalOptions.AdminDatabaseURL = viper.GetString("admin-database-url")
	globalOptions.CrashTrackerType = crashTrackerType
	globalOptions.SentryDSN = viper.GetString("sentry-dsn")
	globalOptions.BrokerType = brokerType
	globalOptions.Brokers = viper.GetStringSlice("brokers")
	return nil
}

// SetupCLI configures the root command and its subcommands.
func SetupCLI(version, gitCommit string) *cobra.Command {
	globalOptions.Version = version
	globalOptions.GitCommit = gitCommit

	cmd := rootCmd()
	cmd.AddCommand(WorkerCommand())
	cmd.AddCommand(EnqueueCommand())
	cmd.AddCommand(TenantsCommand())

	return cmd
}
