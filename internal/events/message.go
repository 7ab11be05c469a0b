package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
)

// Message is the envelope every queue payload travels in. TenantID is part of the envelope, not
// the payload, so consumers can route to the tenant database before decoding Data.
type Message struct {
	Topic                string            `json:"topic"`
	Key                  string            `json:"key"`
	TenantID             string            `json:"tenant_id"`
	Type                 string            `json:"type"`
	Data                 any               `json:"data"`
	Errors               []*HandlerError   `json:"errors,omitempty"`
	SuccessfulExecutions []*HandlerSuccess `json:"successful_executions,omitempty"`
}

type HandlerError struct {
	FailedAt     time.Time `json:"failed_at"`
	ErrorMessage string    `json:"error_message"`
	HandlerName  string    `json:"handler_name"`
	Err          error     `json:"-"`
}

// HandlerSuccess marks a handler that already processed the message, so redeliveries skip it.
type HandlerSuccess struct {
	ExecutedAt  time.Time `json:"executed_at"`
	HandlerName string    `json:"handler_name"`
}

// NewMessage builds a message stamped with the tenant carried in the context. Returns an error
// if no tenant is in the context.
func NewMessage(ctx context.Context, topic, key, messageType string, data any) (*Message, error) {
	tnt, err := tenant.GetTenantFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting tenant from context: %w", err)
	}

	return &Message{
		Topic:    topic,
		Key:      key,
		TenantID: tnt.ID,
		Type:     messageType,
		Data:     data,
	}, nil
}

func (m Message) String() string {
	return fmt.Sprintf("Message{Topic: %s, Key: %s, Type: %s, TenantID: %s, Data: %v}", m.Topic, m.Key, m.Type, m.TenantID, m.Data)
}

func (m Message) Validate() error {
	if m.Topic == "" {
		return errors.New("message topic is required")
	}

	if m.Key == "" {
		return errors.New("message key is required")
	}

	if m.TenantID == "" {
		return errors.New("message tenant ID is required")
	}

	if m.Type == "" {
		return errors.New("message type is required")
	}

	if m.Data == nil {
		return errors.New("message data is required")
	}

	return nil
}

func (m *Message) RecordError(handlerName string, hErr error) {
	m.Errors = append(m.Errors, &HandlerError{
		FailedAt:     time.Now(),
		ErrorMessage: hErr.Error(),
		HandlerName:  handlerName,
		Err:          hErr,
	})
}

func (m *Message) RecordSuccess(handlerName string) {
	m.SuccessfulExecutions = append(m.SuccessfulExecutions, &HandlerSuccess{
		ExecutedAt:  time.Now(),
		HandlerName: handlerName,
	})
}
