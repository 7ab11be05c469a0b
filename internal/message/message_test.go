package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Message_Validate(t *testing.T) {
	valid := Message{ToEmail: "owner@example.com", Title: "Weekly report", Body: "<p>hello</p>"}

	t.Run("🟢 accepts a complete message", func(t *testing.T) {
		m := valid
		require.NoError(t, m.Validate())
	})

	t.Run("🔴 rejects an invalid recipient", func(t *testing.T) {
		m := valid
		m.ToEmail = "not-an-email"
		require.ErrorContains(t, m.Validate(), "not valid")
	})

	t.Run("🔴 rejects an empty title", func(t *testing.T) {
		m := valid
		m.Title = "   "
		require.ErrorContains(t, m.Validate(), "title is empty")
	})

	t.Run("🔴 rejects an empty body", func(t *testing.T) {
		m := valid
		m.Body = ""
		require.ErrorContains(t, m.Validate(), "body is empty")
	})
}

func Test_ParseMessengerType(t *testing.T) {
	mt, err := ParseMessengerType("aws_email")
	require.NoError(t, err)
	require.Equal(t, MessengerTypeAWSEmail, mt)

	mt, err = ParseMessengerType("DRY_RUN")
	require.NoError(t, err)
	require.Equal(t, MessengerTypeDryRun, mt)

	_, err = ParseMessengerType("CARRIER_PIGEON")
	require.ErrorContains(t, err, "invalid messenger type")
}
