package game

import (
	"errors"
	"testing"
	"time"
)

func TestTransition_AllowedMatchesTable(t *testing.T) {
	t.Parallel()

	allowed := map[Transition][]State{
		TransitionQueue:    {StateNew, StateRecalled},
		TransitionConfirm:  {StateNew, StateQueued, StateRecalled},
		TransitionRecall:   {StateQueued},
		TransitionPlay:     {StateConfirmed},
		TransitionComplete: {StatePlaying},
		TransitionCancel:   {StateNew, StateQueued, StateRecalled, StateConfirmed, StatePlaying},
	}

	for _, tr := range Transitions() {
		sources := make(map[State]bool, len(allowed[tr]))
		for _, s := range allowed[tr] {
			sources[s] = true
		}
		for _, from := range AllStates {
			if got := tr.Allowed(from); got != sources[from] {
				t.Fatalf("%s from %s: got allowed=%t want %t", tr, from, got, sources[from])
			}
		}
	}
}

func TestTransition_Targets(t *testing.T) {
	t.Parallel()

	want := map[Transition]State{
		TransitionQueue:    StateQueued,
		TransitionConfirm:  StateConfirmed,
		TransitionRecall:   StateRecalled,
		TransitionPlay:     StatePlaying,
		TransitionComplete: StateCompleted,
		TransitionCancel:   StateCancelled,
	}
	for tr, target := range want {
		if tr.Target() != target {
			t.Fatalf("%s target: got=%s want=%s", tr, tr.Target(), target)
		}
	}
}

func TestTransition_TerminalStatesAcceptNothing(t *testing.T) {
	t.Parallel()

	for _, from := range []State{StateCompleted, StateCancelled} {
		for _, tr := range Transitions() {
			if tr.Allowed(from) {
				t.Fatalf("%s must not be allowed from terminal state %s", tr, from)
			}
		}
	}
}

func TestGuard_ReturnsIllegalTransition(t *testing.T) {
	t.Parallel()

	g := New("g1", "p1", "s1", time.Now())
	err := Guard(g, TransitionPlay)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	var illegal *IllegalTransitionError
	if !errors.As(err, &illegal) {
		t.Fatalf("expected *IllegalTransitionError, got %T", err)
	}
	if illegal.From != StateNew || illegal.To != StatePlaying {
		t.Fatalf("unexpected edge: %s -> %s", illegal.From, illegal.To)
	}
	if illegal.Error() != "illegal state change new -> playing" {
		t.Fatalf("unexpected message: %q", illegal.Error())
	}

	if err := Guard(g, TransitionQueue); err != nil {
		t.Fatalf("queue from new should pass guard: %v", err)
	}
}

func TestParseState(t *testing.T) {
	t.Parallel()

	if s, err := ParseState("recalled"); err != nil || s != StateRecalled {
		t.Fatalf("parse recalled: got=%s err=%v", s, err)
	}
	if _, err := ParseState("finished"); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}
