package events

import (
	"context"
	"fmt"
	"strings"
)

// Topic names
const (
	IngestionJobRequestedTopic = "ingestion-job-requested"
	ReportEmailRequestedTopic  = "report-email-requested"
)

// Type names
const (
	IngestionJobRequestedType = "ingestion-job-requested"
	ReportEmailRequestedType  = "report-email-requested"
)

type EventBrokerType string

const (
	KafkaEventBrokerType EventBrokerType = "KAFKA"
	// NoneEventBrokerType disables publishing; queued jobs are then picked up by the scheduler's
	// reconciliation sweep instead of a consumer.
	NoneEventBrokerType EventBrokerType = "NONE"
)

func ParseEventBrokerType(ebType string) (EventBrokerType, error) {
	switch EventBrokerType(strings.ToUpper(ebType)) {
	case KafkaEventBrokerType:
		return KafkaEventBrokerType, nil
	case NoneEventBrokerType:
		return NoneEventBrokerType, nil
	default:
		return "", fmt.Errorf("invalid event broker type %q", ebType)
	}
}

type EventHandler interface {
	Name() string
	CanHandleMessage(ctx context.Context, message *Message) bool
	Handle(ctx context.Context, message *Message) error
}

type Producer interface {
	WriteMessages(ctx context.Context, messages ...Message) error
	Close(ctx context.Context) error
}

type Consumer interface {
	ReadMessage(ctx context.Context) (*Message, error)
	Topic() string
	Handlers() []EventHandler
	RegisterEventHandler(ctx context.Context, handlers ...EventHandler) error
	Close() error
}
