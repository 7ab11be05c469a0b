package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_BackoffManager_TriggerBackoff(t *testing.T) {
	backoffChan := make(chan struct{}, 1)
	defer close(backoffChan)
	bm := NewBackoffManager(backoffChan, 3)

	bm.TriggerBackoff()
	<-backoffChan
	assert.Equal(t, 2*time.Second, bm.GetBackoffDuration())
	assert.False(t, bm.IsMaxBackoffReached())

	bm.TriggerBackoff()
	<-backoffChan
	bm.TriggerBackoff()
	<-backoffChan
	assert.Equal(t, 8*time.Second, bm.GetBackoffDuration())
	assert.True(t, bm.IsMaxBackoffReached())

	// Counter is capped at the max exponent.
	bm.TriggerBackoff()
	<-backoffChan
	assert.Equal(t, 8*time.Second, bm.GetBackoffDuration())
}

func Test_BackoffManager_TriggerBackoffWithMessage(t *testing.T) {
	backoffChan := make(chan struct{}, 1)
	defer close(backoffChan)
	bm := NewBackoffManager(backoffChan, 3)

	msg := &Message{Topic: IngestionJobRequestedTopic, Key: "job-1"}
	bm.TriggerBackoffWithMessage(msg)
	<-backoffChan
	require.NotNil(t, bm.GetMessage())
	assert.Equal(t, "job-1", bm.GetMessage().Key)

	bm.ResetBackoff()
	assert.Nil(t, bm.GetMessage())
	assert.Equal(t, time.Duration(0), bm.GetBackoffDuration())
	assert.False(t, bm.IsMaxBackoffReached())
}

func Test_NewBackoffManager_defaultsInvalidExponent(t *testing.T) {
	backoffChan := make(chan struct{}, 1)
	defer close(backoffChan)

	bm := NewBackoffManager(backoffChan, 0)
	assert.Equal(t, DefaultMaxBackoffExponent, bm.maxBackoffExponent)

	bm = NewBackoffManager(backoffChan, 1000)
	assert.Equal(t, DefaultMaxBackoffExponent, bm.maxBackoffExponent)
}
