package events

import (
	"time"

	"github.com/storelens/storelens-ingestion-backend/internal/utils"
)

const DefaultMaxBackoffExponent = 8

// ConsumerBackoffManager tracks the retry backoff of a consumer loop, optionally pinning the
// message whose handling keeps failing so it is retried instead of re-read.
type ConsumerBackoffManager struct {
	backoffCounter     int
	backoff            time.Duration
	backoffChan        chan<- struct{}
	message            *Message
	maxBackoffExponent int
}

func NewBackoffManager(backoffChan chan<- struct{}, maxBackoffExponent int) *ConsumerBackoffManager {
	if maxBackoffExponent <= 0 || maxBackoffExponent > utils.MaxRetryValue {
		maxBackoffExponent = DefaultMaxBackoffExponent
	}
	return &ConsumerBackoffManager{
		backoffChan:        backoffChan,
		maxBackoffExponent: maxBackoffExponent,
	}
}

func (bm *ConsumerBackoffManager) TriggerBackoff() {
	bm.backoffCounter++
	if bm.backoffCounter > bm.maxBackoffExponent {
		bm.backoffCounter = bm.maxBackoffExponent
	}
	// ExponentialBackoffInSeconds only errors outside [0, MaxRetryValue], guarded above.
	bm.backoff, _ = utils.ExponentialBackoffInSeconds(bm.backoffCounter)
	bm.backoffChan <- struct{}{}
}

// TriggerBackoffWithMessage pins msg so the next loop iteration retries it rather than reading
// a new message.
func (bm *ConsumerBackoffManager) TriggerBackoffWithMessage(msg *Message) {
	bm.message = msg
	bm.TriggerBackoff()
}

func (bm *ConsumerBackoffManager) IsMaxBackoffReached() bool {
	return bm.backoffCounter >= bm.maxBackoffExponent
}

func (bm *ConsumerBackoffManager) GetBackoffDuration() time.Duration {
	return bm.backoff
}

func (bm *ConsumerBackoffManager) GetMessage() *Message {
	return bm.message
}

func (bm *ConsumerBackoffManager) ResetBackoff() {
	bm.backoffCounter = 0
	bm.backoff = 0
	bm.message = nil
}
