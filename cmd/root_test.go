package cmd

import (
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens-ingestion-backend/internal/crashtracker"
	"github.com/storelens/storelens-ingestion-backend/internal/events"
)

func Test_SetupCLI(t *testing.T) {
	t.Cleanup(viper.Reset)

	cli := SetupCLI("x.y.z", "1234567890abcdef")

	subcommands := make([]string, 0, len(cli.Commands()))
	for _, subcommand := range cli.Commands() {
		subcommands = append(subcommands, subcommand.Name())
	}
	assert.Contains(t, subcommands, "worker")
	assert.Contains(t, subcommands, "enqueue")
	assert.Contains(t, subcommands, "tenants")
	assert.Equal(t, "x.y.z", globalOptions.Version)
	assert.Equal(t, "1234567890abcdef", globalOptions.GitCommit)
}

func Test_rootCmd_globalOptionsFromFlags(t *testing.T) {
	t.Cleanup(viper.Reset)

	cli := SetupCLI("x.y.z", "1234567890abcdef")
	cli.SetOut(io.Discard)
	cli.SetErr(io.Discard)
	cli.SetArgs([]string{
		"--log-level", "DEBUG",
		"--environment", "test",
		"--admin-database-url", "postgres://localhost:5432/test-admin?sslmode=disable",
		"--crash-tracker-type", "DRY_RUN",
		"--event-broker-type", "NONE",
		"--brokers", "kafka-1:9092,kafka-2:9092",
	})

	err := cli.Execute()
	require.NoError(t, err)

	assert.Equal(t, log.DebugLevel, globalOptions.LogLevel)
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.Equal(t, "test", globalOptions.Environment)
	assert.Equal(t, "postgres://localhost:5432/test-admin?sslmode=disable", globalOptions.AdminDatabaseURL)
	assert.Equal(t, crashtracker.CrashTrackerTypeDryRun, globalOptions.CrashTrackerType)
	assert.Equal(t, events.NoneEventBrokerType, globalOptions.BrokerType)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, globalOptions.Brokers)
}

func Test_rootCmd_globalOptionsFromEnvironment(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("STORELENS_ENVIRONMENT", "staging")
	t.Setenv("STORELENS_EVENT_BROKER_TYPE", "NONE")

	cli := SetupCLI("x.y.z", "")
	cli.SetOut(io.Discard)
	cli.SetErr(io.Discard)
	cli.SetArgs([]string{})

	err := cli.Execute()
	require.NoError(t, err)

	assert.Equal(t, "staging", globalOptions.Environment)
	assert.Equal(t, events.NoneEventBrokerType, globalOptions.BrokerType)
}

func Test_rootCmd_invalidOptions(t *testing.T) {
	testCases := []struct {
		name            string
		args            []string
		wantErrContains string
	}{
		{
			name:            "invalid log level",
			args:            []string{"--log-level", "VERBOSE"},
			wantErrContains: "parsing log level",
		},
		{
			name:            "invalid crash tracker type",
			args:            []string{"--crash-tracker-type", "PAGERDUTY"},
			wantErrContains: "parsing crash tracker type",
		},
		{
			name:            "invalid event broker type",
			args:            []string{"--event-broker-type", "RABBITMQ"},
			wantErrContains: "parsing event broker type",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Cleanup(viper.Reset)

			cli := SetupCLI("x.y.z", "")
			cli.SetOut(io.Discard)
			cli.SetErr(io.Discard)
			cli.SetArgs(tc.args)

			err := cli.Execute()
			assert.ErrorContains(t, err, tc.wantErrContains)
		})
	}
}
