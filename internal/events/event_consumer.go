package events

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/storelens/storelens-ingestion-backend/internal/crashtracker"
)

type EventConsumer struct {
	consumer     Consumer
	producer     Producer
	crashTracker crashtracker.CrashTrackerClient
	maxBackoff   int
}

func NewEventConsumer(consumer Consumer, producer Producer, crashTracker crashtracker.CrashTrackerClient) *EventConsumer {
	return &EventConsumer{
		consumer:     consumer,
		producer:     producer,
		crashTracker: crashTracker,
		maxBackoff:   DefaultMaxBackoffExponent,
	}
}

// Consume runs the read-handle loop until the context is canceled or an OS signal arrives. A
// message whose handler chain fails is retried with exponential backoff; after maxBackoff
// attempts it goes to the topic's DLQ so one poison message cannot stall the queue.
func (ec *EventConsumer) Consume(ctx context.Context) {
	log.WithContext(ctx).Infof("Starting consuming messages for topic %s...", ec.consumer.Topic())

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	backoffChan := make(chan struct{}, 1)
	defer close(backoffChan)
	backoffManager := NewBackoffManager(backoffChan, ec.maxBackoff)

	for {
		select {
		case <-ctx.Done():
			log.WithContext(ctx).Infof("Stopping consuming messages for topic %s due to context cancellation...", ec.consumer.Topic())
			ec.finalizeConsumer(ctx, backoffManager.GetMessage())
			return

		case sig := <-signalChan:
			log.WithContext(ctx).Infof("Stopping consuming messages for topic %s due to OS signal '%+v'", ec.consumer.Topic(), sig)
			ec.finalizeConsumer(ctx, backoffManager.GetMessage())
			return

		case <-backoffChan:
			backoff := backoffManager.GetBackoffDuration()
			if backoffManager.GetMessage() != nil {
				log.WithContext(ctx).Warnf("Waiting %s before retrying handling message with key %s", backoff, backoffManager.GetMessage().Key)
			} else {
				log.WithContext(ctx).Warnf("Waiting %s before retrying reading new messages", backoff)
			}
			time.Sleep(backoff)

		default:
			// 1. Attempt fetching the message from the backoff manager, in case it was already read.
			msg := backoffManager.GetMessage()

			// 2. If max backoff is reached, send the message to the DLQ and reset.
			if backoffManager.IsMaxBackoffReached() {
				log.WithContext(ctx).Warnf("Max backoff reached for topic %s.", ec.consumer.Topic())
				if msg != nil {
					if err := ec.sendMessageToDLQ(ctx, *msg); err != nil {
						ec.crashTracker.LogAndReportErrors(ctx, err, fmt.Sprintf("sending message to DLQ for topic %s", ec.consumer.Topic()))
					}
				}
				backoffManager.ResetBackoff()
				continue
			}

			// 3. If no message is being retried, read a new one.
			if msg == nil {
				var readErr error
				msg, readErr = ec.consumer.ReadMessage(ctx)
				if readErr != nil {
					ec.crashTracker.LogAndReportErrors(ctx, readErr, fmt.Sprintf("consuming messages for topic %s", ec.consumer.Topic()))
					backoffManager.TriggerBackoff()
					continue
				}
			} else {
				log.WithContext(ctx).Warnf("Retrying handling message with key %s", msg.Key)
			}

			// 4. Run the message through the handler chain.
			if handledOk := ec.handleMessage(ctx, msg); !handledOk {
				backoffManager.TriggerBackoffWithMessage(msg)
				continue
			}

			// 5. Message handled successfully, reset backoff.
			backoffManager.ResetBackoff()
		}
	}
}

// finalizeConsumer replays an in-flight message back to its topic so a shutdown mid-retry does
// not lose it.
func (ec *EventConsumer) finalizeConsumer(ctx context.Context, msg *Message) {
	if msg == nil {
		return
	}
	log.WithContext(ctx).Warnf("Replaying message with key %s to topic %s", msg.Key, msg.Topic)
	if err := ec.producer.WriteMessages(ctx, *msg); err != nil {
		ec.crashTracker.LogAndReportErrors(ctx, err, fmt.Sprintf("replaying message to topic %s", msg.Topic))
	}
}

func (ec *EventConsumer) sendMessageToDLQ(ctx context.Context, msg Message) error {
	msg.Topic = msg.Topic + ".dlq"
	log.WithContext(ctx).Errorf("Sending message with key %s to DLQ topic %s", msg.Key, msg.Topic)

	if err := ec.producer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("sending message %s to DLQ topic %s: %w", msg, msg.Topic, err)
	}
	return nil
}

func (ec *EventConsumer) handleMessage(ctx context.Context, msg *Message) bool {
	allHandlersSuccessful := true
	for _, handler := range ec.consumer.Handlers() {
		if ShouldHandleMessage(ctx, handler, msg) {
			if handleErr := handler.Handle(ctx, msg); handleErr != nil {
				ec.crashTracker.LogAndReportErrors(ctx, handleErr, fmt.Sprintf("handling message for topic %s", ec.consumer.Topic()))
				msg.RecordError(handler.Name(), handleErr)
				allHandlersSuccessful = false
			} else {
				msg.RecordSuccess(handler.Name())
			}
		}
	}
	return allHandlersSuccessful
}

// ShouldHandleMessage returns true if the handler can handle the message and has not already
// handled it in a previous delivery.
func ShouldHandleMessage(ctx context.Context, handler EventHandler, msg *Message) bool {
	if !handler.CanHandleMessage(ctx, msg) {
		return false
	}
	for _, execution := range msg.SuccessfulExecutions {
		if execution.HandlerName == handler.Name() {
			log.WithContext(ctx).Infof("Handler %s has already been executed for message with key %s. Skipping...", handler.Name(), msg.Key)
			return false
		}
	}
	return true
}
