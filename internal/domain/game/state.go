package game

import "fmt"

// State is the lifecycle position of a game in the cage.
type State string

const (
	StateNew       State = "new"
	StateQueued    State = "queued"
	StateRecalled  State = "recalled"
	StateConfirmed State = "confirmed"
	StatePlaying   State = "playing"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

var AllStates = []State{
	StateNew,
	StateQueued,
	StateRecalled,
	StateConfirmed,
	StatePlaying,
	StateCompleted,
	StateCancelled,
}

// ActiveStates lists every non-terminal state.
var ActiveStates = []State{
	StateNew,
	StateQueued,
	StateRecalled,
	StateConfirmed,
	StatePlaying,
}

func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

func (s State) Valid() bool {
	for _, candidate := range AllStates {
		if s == candidate {
			return true
		}
	}
	return false
}

func ParseState(raw string) (State, error) {
	s := State(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown game state %q", raw)
	}
	return s, nil
}
