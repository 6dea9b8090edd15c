package game

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrIllegalTransition      = errors.New("illegal state transition")
	ErrConcurrentModification = errors.New("game was modified concurrently")
	ErrActiveGameExists       = errors.New("player already has an active game")
	ErrInvalidScores          = errors.New("invalid scores")
)

// IllegalTransitionError is returned when a transition is attempted from a
// state that does not permit it.
type IllegalTransitionError struct {
	From State
	To   State
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal state change %s -> %s", e.From, e.To)
}

func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}
