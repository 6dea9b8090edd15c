package team

import (
	"fmt"
	"strings"
	"time"
)

// Team groups players for the event-wide competition.
type Team struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("team id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team name is required")
	}
	return nil
}

// MemberCount pairs a team with its current number of players.
type MemberCount struct {
	Team    Team
	Members int
}
