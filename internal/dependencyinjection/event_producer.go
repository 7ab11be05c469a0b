package dependencyinjection

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/storelens/storelens-ingestion-backend/internal/events"
)

const EventProducerInstanceName = "event_producer_instance"

type EventProducerOptions struct {
	BrokerType events.EventBrokerType
	Brokers    []string
}

// NewEventProducer creates a new event producer instance, or retrieves an instance that was
// already created before. With the NONE broker type the producer is a no-op and queued jobs are
// only picked up by the scheduler's reconciliation sweep.
func NewEventProducer(ctx context.Context, opts EventProducerOptions) (events.Producer, error) {
	instanceName := EventProducerInstanceName
	if instance, ok := GetInstance(instanceName); ok {
		if producerInstance, ok2 := instance.(events.Producer); ok2 {
			return producerInstance, nil
		}
		return nil, fmt.Errorf("trying to cast an event producer instance")
	}

	var producer events.Producer
	switch opts.BrokerType {
	case events.KafkaEventBrokerType:
		log.WithContext(ctx).Info("⚙️ Setting up Kafka event producer")
		kafkaProducer, err := events.NewKafkaProducer(opts.Brokers)
		if err != nil {
			return nil, fmt.Errorf("creating a new kafka producer instance: %w", err)
		}
		producer = kafkaProducer
	case events.NoneEventBrokerType:
		log.WithContext(ctx).Warn("⚙️ Event broker is NONE, messages will not be published")
		producer = events.NoopProducer{}
	default:
		return nil, fmt.Errorf("unknown event broker type %q", opts.BrokerType)
	}

	SetInstance(instanceName, producer)
	return producer, nil
}
