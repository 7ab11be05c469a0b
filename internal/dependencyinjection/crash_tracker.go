package dependencyinjection

import (
	"context"
	"fmt"

	"github.com/storelens/storelens-ingestion-backend/internal/crashtracker"
)

const CrashTrackerInstanceName = "crash_tracker_instance"

// buildCrashTrackerInstanceName sets up an instance name per crash tracker type, so instances of
// different types can coexist.
func buildCrashTrackerInstanceName(crashTrackerType crashtracker.CrashTrackerType) string {
	return fmt.Sprintf("%s-%s", CrashTrackerInstanceName, string(crashTrackerType))
}

// NewCrashTracker creates a new crash tracker instance, or retrieves an instance that was
// already created before.
func NewCrashTracker(ctx context.Context, opts crashtracker.CrashTrackerOptions) (crashtracker.CrashTrackerClient, error) {
	instanceName := buildCrashTrackerInstanceName(opts.CrashTrackerType)

	if instance, ok := GetInstance(instanceName); ok {
		if crashTrackerInstance, ok2 := instance.(crashtracker.CrashTrackerClient); ok2 {
			return crashTrackerInstance, nil
		}
		return nil, fmt.Errorf("trying to cast a crash tracker instance")
	}

	newCrashTracker, err := crashtracker.GetClient(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("creating a new crash tracker instance: %w", err)
	}

	SetInstance(instanceName, newCrashTracker)
	return newCrashTracker, nil
}
