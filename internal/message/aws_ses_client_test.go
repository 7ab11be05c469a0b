package message

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSESAPI struct {
	lastInput *ses.SendEmailInput
	err       error
}

func (m *mockSESAPI) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.lastInput = params
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{}, nil
}

func Test_AWSSESClient_SendMessage(t *testing.T) {
	ctx := context.Background()
	validMessage := Message{ToEmail: "owner@example.com", Title: "Weekly report", Body: "<p>hello</p>"}

	t.Run("🔴 rejects an invalid message before calling SES", func(t *testing.T) {
		api := &mockSESAPI{}
		client := &awsSESClient{emailService: api, senderEmail: "reports@storelens.io"}

		err := client.SendMessage(ctx, Message{ToEmail: "bad"})
		require.ErrorContains(t, err, "validating message")
		assert.Nil(t, api.lastInput)
	})

	t.Run("🟢 sends the rendered email", func(t *testing.T) {
		api := &mockSESAPI{}
		client := &awsSESClient{emailService: api, senderEmail: "reports@storelens.io"}

		err := client.SendMessage(ctx, validMessage)
		require.NoError(t, err)
		require.NotNil(t, api.lastInput)
		assert.Equal(t, []string{"owner@example.com"}, api.lastInput.Destination.ToAddresses)
		assert.Equal(t, "Weekly report", *api.lastInput.Message.Subject.Data)
		assert.Equal(t, "<p>hello</p>", *api.lastInput.Message.Body.Html.Data)
		assert.Equal(t, "reports@storelens.io", *api.lastInput.Source)
	})

	t.Run("🔴 wraps SES failures", func(t *testing.T) {
		api := &mockSESAPI{err: fmt.Errorf("throttled")}
		client := &awsSESClient{emailService: api, senderEmail: "reports@storelens.io"}

		err := client.SendMessage(ctx, validMessage)
		require.ErrorContains(t, err, "sending AWS SES email")
	})
}

func Test_NewAWSSESClient_validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewAWSSESClient(ctx, "", "reports@storelens.io", "", "")
	require.ErrorContains(t, err, "aws region is empty")

	_, err = NewAWSSESClient(ctx, "eu-west-1", "not-an-email", "", "")
	require.ErrorContains(t, err, "sender email is invalid")
}
