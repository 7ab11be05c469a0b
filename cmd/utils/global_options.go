package utils

import (
	"github.com/sirupsen/logrus"

	"github.com/storelens/storelens-ingestion-backend/internal/crashtracker"
	"github.com/storelens/storelens-ingestion-backend/internal/events"
)

// GlobalOptionsType holds the flag values shared by every subcommand.
type GlobalOptionsType struct {
	Version          string
	GitCommit        string
	LogLevel         logrus.Level
	Environment      string
	AdminDatabaseURL string

	CrashTrackerType crashtracker.CrashTrackerType
	SentryDSN        string

	BrokerType events.EventBrokerType
	Brokers    []string
}

// PopulateCrashTrackerOptions fills CrashTrackerOptions from the global options.
func (g GlobalOptionsType) PopulateCrashTrackerOptions(crashTrackerOptions *crashtracker.CrashTrackerOptions) {
	if crashTrackerOptions.CrashTrackerType == crashtracker.CrashTrackerTypeSentry {
		crashTrackerOptions.SentryDSN = g.SentryDSN
	}
	crashTrackerOptions.Environment = g.Environment
	crashTrackerOptions.GitCommit = g.GitCommit
}
