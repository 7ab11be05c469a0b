package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
)

// KafkaProducer writes messages to their topics with full-ISR acks.
type KafkaProducer struct {
	writer *kafka.Writer
}

var _ Producer = new(KafkaProducer)

func NewKafkaProducer(brokers []string) (*KafkaProducer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("brokers cannot be empty")
	}

	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.RoundRobin{},
			RequiredAcks: kafka.RequireAll,
		},
	}, nil
}

func (p *KafkaProducer) WriteMessages(ctx context.Context, messages ...Message) error {
	kafkaMessages := make([]kafka.Message, 0, len(messages))
	for _, msg := range messages {
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("validating message with key %s: %w", msg.Key, err)
		}

		msgJSON, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshalling message with key %s: %w", msg.Key, err)
		}

		kafkaMessages = append(kafkaMessages, kafka.Message{
			Topic: msg.Topic,
			Key:   []byte(msg.Key),
			Value: msgJSON,
		})
	}

	if err := p.writer.WriteMessages(ctx, kafkaMessages...); err != nil {
		return fmt.Errorf("writing messages on kafka: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close(ctx context.Context) error {
	log.WithContext(ctx).Info("closing kafka producer")
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("closing kafka producer: %w", err)
	}
	return nil
}

// KafkaConsumer reads one topic within a consumer group and carries the handler chain that
// processes its messages. Commits happen only after a successful read, so an unhandled crash
// redelivers the message.
type KafkaConsumer struct {
	handlers []EventHandler
	topic    string
	reader   *kafka.Reader
}

var _ Consumer = new(KafkaConsumer)

func NewKafkaConsumer(brokers []string, topic, consumerGroupID string, handlers ...EventHandler) (*KafkaConsumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("brokers cannot be empty")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if consumerGroupID == "" {
		return nil, fmt.Errorf("consumer group ID is required")
	}
	if len(handlers) == 0 {
		return nil, fmt.Errorf("handlers cannot be empty")
	}

	k := &KafkaConsumer{
		topic: topic,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: consumerGroupID,
			Topic:   topic,
		}),
	}
	if err := k.RegisterEventHandler(context.Background(), handlers...); err != nil {
		return nil, fmt.Errorf("registering event handlers: %w", err)
	}
	return k, nil
}

func (k *KafkaConsumer) Topic() string {
	return k.topic
}

func (k *KafkaConsumer) Handlers() []EventHandler {
	return k.handlers
}

func (k *KafkaConsumer) RegisterEventHandler(ctx context.Context, handlers ...EventHandler) error {
	ehMap := make(map[string]EventHandler, len(handlers))
	for _, handler := range handlers {
		log.WithContext(ctx).Infof("registering event handler %s for topic %s", handler.Name(), k.topic)
		ehMap[handler.Name()] = handler
	}
	k.handlers = maps.Values(ehMap)
	return nil
}

func (k *KafkaConsumer) ReadMessage(ctx context.Context) (*Message, error) {
	kafkaMessage, err := k.reader.FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching message from kafka: %w", err)
	}

	var msg Message
	if err = json.Unmarshal(kafkaMessage.Value, &msg); err != nil {
		return nil, fmt.Errorf("unmarshalling message with key %s: %w", string(kafkaMessage.Key), err)
	}

	if err = k.reader.CommitMessages(ctx, kafkaMessage); err != nil {
		return nil, fmt.Errorf("committing message with key %s: %w", msg.Key, err)
	}

	return &msg, nil
}

func (k *KafkaConsumer) Close() error {
	log.Infof("closing kafka consumer for topic %s", k.topic)
	if err := k.reader.Close(); err != nil {
		return fmt.Errorf("closing kafka consumer: %w", err)
	}
	return nil
}
