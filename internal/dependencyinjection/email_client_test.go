package dependencyinjection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens-ingestion-backend/internal/message"
)

func Test_dependencyinjection_NewEmailClient(t *testing.T) {
	ctx := context.Background()

	t.Run("should create and return the same instance on the second call", func(t *testing.T) {
		ClearInstancesTestHelper(t)

		opts := message.MessengerOptions{MessengerType: message.MessengerTypeDryRun}

		gotClient, err := NewEmailClient(ctx, opts)
		require.NoError(t, err)
		assert.Equal(t, message.MessengerTypeDryRun, gotClient.MessengerType())

		gotClientDuplicate, err := NewEmailClient(ctx, opts)
		require.NoError(t, err)
		assert.Same(t, gotClient, gotClientDuplicate)
	})

	t.Run("should return an error on an unknown messenger type", func(t *testing.T) {
		ClearInstancesTestHelper(t)

		gotClient, err := NewEmailClient(ctx, message.MessengerOptions{})
		assert.Nil(t, gotClient)
		assert.ErrorContains(t, err, "creating a new email client instance")
	})

	t.Run("should return an error on a stored instance of the wrong type", func(t *testing.T) {
		ClearInstancesTestHelper(t)

		SetInstance(EmailClientInstanceName, "not an email client")

		gotClient, err := NewEmailClient(ctx, message.MessengerOptions{MessengerType: message.MessengerTypeDryRun})
		assert.Nil(t, gotClient)
		assert.ErrorContains(t, err, "trying to cast an email client instance")
	})
}
