package notification

import (
	"context"
	"fmt"
	"strings"
)

// Kind tags why a message was sent.
type Kind string

const (
	KindWelcome  Kind = "welcome"
	KindRecall   Kind = "recall"
	KindSouvenir Kind = "souvenir"
)

// SMS is one outbound text message.
type SMS struct {
	To       string `json:"to"`
	Body     string `json:"body"`
	SenderID string `json:"sender_id"`
	Kind     Kind   `json:"kind"`
	PlayerID string `json:"player_id"`
}

func (m SMS) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("sms recipient is required")
	}
	if strings.TrimSpace(m.Body) == "" {
		return fmt.Errorf("sms body is required")
	}
	return nil
}

// Sender delivers an SMS through some gateway.
type Sender interface {
	Send(ctx context.Context, msg SMS) error
}
