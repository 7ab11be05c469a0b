package events

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// NoopProducer logs and discards messages. It backs deployments without a broker, where the
// scheduler's reconciliation sweep drains queued jobs instead of a consumer.
type NoopProducer struct{}

func (p NoopProducer) WriteMessages(ctx context.Context, messages ...Message) error {
	log.WithContext(ctx).Debugf("NoopProducer: discarding messages, the scheduler will pick the jobs up: %+v", messages)
	return nil
}

func (p NoopProducer) Close(ctx context.Context) error {
	return nil
}

var _ Producer = NoopProducer{}
