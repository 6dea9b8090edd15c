package game

import (
	"fmt"
	"strings"
	"time"
)

// Game is one player's single pass through the batting cage.
type Game struct {
	ID                string
	PlayerID          string
	ShowID            string
	State             State
	Distance          int
	Homeruns          int
	Score             int
	SouvenirImageRef  string
	SouvenirShareSlug string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DateQueued        *time.Time
	DateRecalled      *time.Time
	DateConfirmed     *time.Time
	DatePlaying       *time.Time
	DateCompleted     *time.Time
	DateCancelled     *time.Time
}

// New builds a game in the initial state.
func New(id, playerID, showID string, now time.Time) Game {
	return Game{
		ID:        id,
		PlayerID:  playerID,
		ShowID:    showID,
		State:     StateNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (g Game) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("game id is required")
	}
	if strings.TrimSpace(g.PlayerID) == "" {
		return fmt.Errorf("game player id is required")
	}
	if !g.State.Valid() {
		return fmt.Errorf("invalid game state: %s", g.State)
	}
	if g.CreatedAt.IsZero() {
		return fmt.Errorf("game created_at is required")
	}
	return nil
}

func (g Game) IsActive() bool {
	return !g.State.IsTerminal()
}

// Clone returns a copy that shares no timestamp pointers with g.
func (g Game) Clone() Game {
	out := g
	out.DateQueued = cloneTime(g.DateQueued)
	out.DateRecalled = cloneTime(g.DateRecalled)
	out.DateConfirmed = cloneTime(g.DateConfirmed)
	out.DatePlaying = cloneTime(g.DatePlaying)
	out.DateCompleted = cloneTime(g.DateCompleted)
	out.DateCancelled = cloneTime(g.DateCancelled)
	return out
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}

// Scores are the results written by the complete transition.
type Scores struct {
	Score    int
	Distance int
	Homeruns int
}

func (s Scores) Validate() error {
	if s.Score < 0 {
		return fmt.Errorf("%w: score must be >= 0", ErrInvalidScores)
	}
	if s.Distance < 0 {
		return fmt.Errorf("%w: distance must be >= 0", ErrInvalidScores)
	}
	if s.Homeruns < 0 {
		return fmt.Errorf("%w: homeruns must be >= 0", ErrInvalidScores)
	}
	return nil
}

// ApplyScores writes s onto g exactly as given.
func (g *Game) ApplyScores(s Scores) {
	g.Score = s.Score
	g.Distance = s.Distance
	g.Homeruns = s.Homeruns
}
