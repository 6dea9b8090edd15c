package show

import (
	"fmt"
	"strings"
	"time"
)

// Show is one event session. Games default to the most recent show.
type Show struct {
	ID              string
	Name            string
	Date            time.Time
	WelcomeMessage  string
	RecallMessage   string
	SouvenirMessage string
}

func (s Show) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("show id is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("show name is required")
	}
	if s.Date.IsZero() {
		return fmt.Errorf("show date is required")
	}
	return nil
}

const (
	DefaultWelcomeMessage  = "Hi {first_name}, welcome to {show_name}! We will text you when it is your turn in the cage."
	DefaultRecallMessage   = "{first_name}, you're up! Head to the batting cage now."
	DefaultSouvenirMessage = "Thanks for playing, {first_name}! Your souvenir is ready: {link}"
)

// WithDefaults fills empty message templates.
func (s Show) WithDefaults() Show {
	if strings.TrimSpace(s.WelcomeMessage) == "" {
		s.WelcomeMessage = DefaultWelcomeMessage
	}
	if strings.TrimSpace(s.RecallMessage) == "" {
		s.RecallMessage = DefaultRecallMessage
	}
	if strings.TrimSpace(s.SouvenirMessage) == "" {
		s.SouvenirMessage = DefaultSouvenirMessage
	}
	return s
}
