package game

import "time"

// Transition names an operation that moves a game between states.
type Transition string

const (
	TransitionQueue    Transition = "queue"
	TransitionConfirm  Transition = "confirm"
	TransitionRecall   Transition = "recall"
	TransitionPlay     Transition = "play"
	TransitionComplete Transition = "complete"
	TransitionCancel   Transition = "cancel"
)

type rule struct {
	target  State
	sources []State
}

var rules = map[Transition]rule{
	TransitionQueue:    {target: StateQueued, sources: []State{StateNew, StateRecalled}},
	TransitionConfirm:  {target: StateConfirmed, sources: []State{StateNew, StateQueued, StateRecalled}},
	TransitionRecall:   {target: StateRecalled, sources: []State{StateQueued}},
	TransitionPlay:     {target: StatePlaying, sources: []State{StateConfirmed}},
	TransitionComplete: {target: StateCompleted, sources: []State{StatePlaying}},
	TransitionCancel:   {target: StateCancelled, sources: ActiveStates},
}

// Transitions returns every known transition in declaration order.
func Transitions() []Transition {
	return []Transition{
		TransitionQueue,
		TransitionConfirm,
		TransitionRecall,
		TransitionPlay,
		TransitionComplete,
		TransitionCancel,
	}
}

func (t Transition) Valid() bool {
	_, ok := rules[t]
	return ok
}

// Target returns the state a successful transition lands in.
func (t Transition) Target() State {
	return rules[t].target
}

// Sources returns a copy of the states the transition may start from.
func (t Transition) Sources() []State {
	return append([]State(nil), rules[t].sources...)
}

// Allowed reports whether t may fire while a game is in from.
func (t Transition) Allowed(from State) bool {
	r, ok := rules[t]
	if !ok {
		return false
	}
	for _, s := range r.sources {
		if s == from {
			return true
		}
	}
	return false
}

// Guard returns an *IllegalTransitionError when t cannot fire from the game's
// current state.
func Guard(g Game, t Transition) error {
	if !t.Allowed(g.State) {
		return &IllegalTransitionError{From: g.State, To: t.Target()}
	}
	return nil
}

// TransitionEvent describes a committed state change.
type TransitionEvent struct {
	GameID     string     `json:"game_id"`
	PlayerID   string     `json:"player_id"`
	ShowID     string     `json:"show_id"`
	Transition Transition `json:"transition"`
	From       State      `json:"from"`
	To         State      `json:"to"`
	OccurredAt time.Time  `json:"occurred_at"`
}
