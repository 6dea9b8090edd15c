package lighting

import (
	"context"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
)

// Cue is a named lighting scene on the cage rig.
type Cue string

const (
	CueAttractor Cue = "attractor"
	CueRecall    Cue = "recall"
	CueInGame    Cue = "in-game"
)

// CueForState maps a state a game just entered to the scene to run.
func CueForState(s game.State) (Cue, bool) {
	switch s {
	case game.StatePlaying:
		return CueInGame, true
	case game.StateRecalled:
		return CueRecall, true
	case game.StateCompleted, game.StateCancelled:
		return CueAttractor, true
	default:
		return "", false
	}
}

// Controller drives the physical rig.
type Controller interface {
	Trigger(ctx context.Context, cue Cue) error
}
