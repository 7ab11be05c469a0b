package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
)

func Test_Message_Validate(t *testing.T) {
	m := Message{}
	assert.EqualError(t, m.Validate(), "message topic is required")

	m.Topic = IngestionJobRequestedTopic
	assert.EqualError(t, m.Validate(), "message key is required")

	m.Key = "job-1"
	assert.EqualError(t, m.Validate(), "message tenant ID is required")

	m.TenantID = "tenant-1"
	assert.EqualError(t, m.Validate(), "message type is required")

	m.Type = IngestionJobRequestedType
	assert.EqualError(t, m.Validate(), "message data is required")

	m.Data = map[string]string{"job_id": "job-1"}
	assert.NoError(t, m.Validate())
}

func Test_NewMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("🔴 fails without a tenant in the context", func(t *testing.T) {
		_, err := NewMessage(ctx, IngestionJobRequestedTopic, "job-1", IngestionJobRequestedType, "data")
		require.ErrorContains(t, err, "getting tenant from context")
	})

	t.Run("🟢 stamps the context tenant into the envelope", func(t *testing.T) {
		tenantCtx := tenant.SaveTenantInContext(ctx, &tenant.Tenant{ID: "tenant-1"})
		msg, err := NewMessage(tenantCtx, IngestionJobRequestedTopic, "job-1", IngestionJobRequestedType, "data")
		require.NoError(t, err)
		assert.Equal(t, "tenant-1", msg.TenantID)
		assert.Equal(t, IngestionJobRequestedTopic, msg.Topic)
	})
}

func Test_Message_RecordErrorAndSuccess(t *testing.T) {
	m := Message{}

	m.RecordError("handler-a", assert.AnError)
	require.Len(t, m.Errors, 1)
	assert.Equal(t, "handler-a", m.Errors[0].HandlerName)
	assert.Equal(t, assert.AnError.Error(), m.Errors[0].ErrorMessage)
	assert.False(t, m.Errors[0].FailedAt.IsZero())

	m.RecordSuccess("handler-b")
	require.Len(t, m.SuccessfulExecutions, 1)
	assert.Equal(t, "handler-b", m.SuccessfulExecutions[0].HandlerName)
}
