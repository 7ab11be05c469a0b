package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens-ingestion-backend/internal/crashtracker"
)

func Test_ShouldHandleMessage(t *testing.T) {
	ctx := context.Background()
	msg := &Message{Topic: IngestionJobRequestedTopic, Key: "job-1"}

	t.Run("🔴 handler cannot handle the message", func(t *testing.T) {
		handler := &MockEventHandler{}
		handler.On("CanHandleMessage", ctx, msg).Return(false).Once()
		defer handler.AssertExpectations(t)

		assert.False(t, ShouldHandleMessage(ctx, handler, msg))
	})

	t.Run("🔴 handler already executed for this message", func(t *testing.T) {
		executedMsg := &Message{Topic: IngestionJobRequestedTopic, Key: "job-1"}
		executedMsg.RecordSuccess("ingestion-handler")

		handler := &MockEventHandler{}
		handler.On("CanHandleMessage", ctx, executedMsg).Return(true).Once()
		handler.On("Name").Return("ingestion-handler")
		defer handler.AssertExpectations(t)

		assert.False(t, ShouldHandleMessage(ctx, handler, executedMsg))
	})

	t.Run("🟢 handler can handle and has not executed", func(t *testing.T) {
		handler := &MockEventHandler{}
		handler.On("CanHandleMessage", ctx, msg).Return(true).Once()
		handler.On("Name").Return("ingestion-handler")
		defer handler.AssertExpectations(t)

		assert.True(t, ShouldHandleMessage(ctx, handler, msg))
	})
}

func Test_EventConsumer_handleMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("🟢 all handlers succeed and are recorded", func(t *testing.T) {
		msg := &Message{Topic: IngestionJobRequestedTopic, Key: "job-1"}

		handler := &MockEventHandler{}
		handler.On("CanHandleMessage", ctx, msg).Return(true).Once()
		handler.On("Name").Return("ingestion-handler")
		handler.On("Handle", ctx, msg).Return(nil).Once()
		defer handler.AssertExpectations(t)

		consumer := &MockConsumer{}
		consumer.On("Handlers").Return([]EventHandler{handler}).Once()
		defer consumer.AssertExpectations(t)

		ec := NewEventConsumer(consumer, NoopProducer{}, &crashtracker.MockCrashTrackerClient{})
		require.True(t, ec.handleMessage(ctx, msg))
		require.Len(t, msg.SuccessfulExecutions, 1)
		assert.Equal(t, "ingestion-handler", msg.SuccessfulExecutions[0].HandlerName)
	})

	t.Run("🔴 a failing handler records the error and reports it", func(t *testing.T) {
		msg := &Message{Topic: IngestionJobRequestedTopic, Key: "job-1"}

		handler := &MockEventHandler{}
		handler.On("CanHandleMessage", ctx, msg).Return(true).Once()
		handler.On("Name").Return("ingestion-handler")
		handler.On("Handle", ctx, msg).Return(assert.AnError).Once()
		defer handler.AssertExpectations(t)

		consumer := &MockConsumer{}
		consumer.On("Handlers").Return([]EventHandler{handler}).Once()
		consumer.On("Topic").Return(IngestionJobRequestedTopic)
		defer consumer.AssertExpectations(t)

		crashTracker := &crashtracker.MockCrashTrackerClient{}
		crashTracker.On("LogAndReportErrors", ctx, assert.AnError, "handling message for topic ingestion-job-requested").Once()
		defer crashTracker.AssertExpectations(t)

		ec := NewEventConsumer(consumer, NoopProducer{}, crashTracker)
		require.False(t, ec.handleMessage(ctx, msg))
		require.Len(t, msg.Errors, 1)
		assert.Equal(t, "ingestion-handler", msg.Errors[0].HandlerName)
		assert.Empty(t, msg.SuccessfulExecutions)
	})

	t.Run("🟢 redelivery skips the handler that already succeeded", func(t *testing.T) {
		msg := &Message{Topic: IngestionJobRequestedTopic, Key: "job-1"}
		msg.RecordSuccess("ingestion-handler")

		handler := &MockEventHandler{}
		handler.On("CanHandleMessage", ctx, msg).Return(true).Once()
		handler.On("Name").Return("ingestion-handler")
		defer handler.AssertExpectations(t)

		consumer := &MockConsumer{}
		consumer.On("Handlers").Return([]EventHandler{handler}).Once()
		defer consumer.AssertExpectations(t)

		ec := NewEventConsumer(consumer, NoopProducer{}, &crashtracker.MockCrashTrackerClient{})
		require.True(t, ec.handleMessage(ctx, msg))
		handler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})
}

func Test_EventConsumer_sendMessageToDLQ(t *testing.T) {
	ctx := context.Background()
	msg := Message{Topic: IngestionJobRequestedTopic, Key: "job-1", TenantID: "t1", Type: IngestionJobRequestedType, Data: "d"}

	producer := &MockProducer{}
	producer.On("WriteMessages", ctx, mock.MatchedBy(func(messages []Message) bool {
		return len(messages) == 1 && messages[0].Topic == IngestionJobRequestedTopic+".dlq"
	})).Return(nil).Once()
	defer producer.AssertExpectations(t)

	consumer := &MockConsumer{}
	ec := NewEventConsumer(consumer, producer, &crashtracker.MockCrashTrackerClient{})
	require.NoError(t, ec.sendMessageToDLQ(ctx, msg))
}

func Test_EventConsumer_finalizeConsumer(t *testing.T) {
	ctx := context.Background()

	t.Run("🟢 nil message is a no-op", func(t *testing.T) {
		producer := &MockProducer{}
		defer producer.AssertExpectations(t)

		ec := NewEventConsumer(&MockConsumer{}, producer, &crashtracker.MockCrashTrackerClient{})
		ec.finalizeConsumer(ctx, nil)
		producer.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
	})

	t.Run("🟢 in-flight message is replayed to its topic", func(t *testing.T) {
		msg := &Message{Topic: IngestionJobRequestedTopic, Key: "job-1", TenantID: "t1", Type: IngestionJobRequestedType, Data: "d"}

		producer := &MockProducer{}
		producer.On("WriteMessages", ctx, []Message{*msg}).Return(nil).Once()
		defer producer.AssertExpectations(t)

		ec := NewEventConsumer(&MockConsumer{}, producer, &crashtracker.MockCrashTrackerClient{})
		ec.finalizeConsumer(ctx, msg)
	})
}
