package dependencyinjection

import (
	"context"
	"fmt"

	"github.com/storelens/storelens-ingestion-backend/internal/message"
)

const EmailClientInstanceName = "email_client_instance"

// NewEmailClient creates a new email client instance, or retrieves an instance that was already
// created before.
func NewEmailClient(ctx context.Context, opts message.MessengerOptions) (message.MessengerClient, error) {
	instanceName := EmailClientInstanceName
	if instance, ok := GetInstance(instanceName); ok {
		if messengerClientInstance, ok2 := instance.(message.MessengerClient); ok2 {
			return messengerClientInstance, nil
		}
		return nil, fmt.Errorf("trying to cast an email client instance")
	}

	messengerClient, err := message.GetClient(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("creating a new email client instance: %w", err)
	}

	SetInstance(instanceName, messengerClient)
	return messengerClient, nil
}
