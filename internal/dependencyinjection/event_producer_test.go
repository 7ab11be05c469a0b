package dependencyinjection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens-ingestion-backend/internal/events"
)

func Test_dependencyinjection_NewEventProducer(t *testing.T) {
	ctx := context.Background()

	t.Run("should create a noop producer and return the same instance on the second call", func(t *testing.T) {
		ClearInstancesTestHelper(t)

		opts := EventProducerOptions{BrokerType: events.NoneEventBrokerType}

		gotProducer, err := NewEventProducer(ctx, opts)
		require.NoError(t, err)
		assert.IsType(t, events.NoopProducer{}, gotProducer)

		gotProducerDuplicate, err := NewEventProducer(ctx, opts)
		require.NoError(t, err)
		assert.Equal(t, gotProducer, gotProducerDuplicate)
	})

	t.Run("should return an error on an unknown broker type", func(t *testing.T) {
		ClearInstancesTestHelper(t)

		gotProducer, err := NewEventProducer(ctx, EventProducerOptions{BrokerType: "CARRIER_PIGEON"})
		assert.Nil(t, gotProducer)
		assert.ErrorContains(t, err, `unknown event broker type "CARRIER_PIGEON"`)
	})

	t.Run("should return an error on a stored instance of the wrong type", func(t *testing.T) {
		ClearInstancesTestHelper(t)

		SetInstance(EventProducerInstanceName, "not a producer")

		gotProducer, err := NewEventProducer(ctx, EventProducerOptions{BrokerType: events.NoneEventBrokerType})
		assert.Nil(t, gotProducer)
		assert.ErrorContains(t, err, "trying to cast an event producer instance")
	})
}
