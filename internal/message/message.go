package message

import (
	"fmt"
	"strings"

	"github.com/storelens/storelens-ingestion-backend/internal/utils"
)

// Message is one outbound report email.
type Message struct {
	ToEmail string
	Title   string
	Body    string
}

func (m *Message) Validate() error {
	if err := utils.ValidateEmail(m.ToEmail); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("title is empty")
	}

	if strings.TrimSpace(m.Body) == "" {
		return fmt.Errorf("body is empty")
	}

	return nil
}
