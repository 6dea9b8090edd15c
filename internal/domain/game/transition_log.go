package game

import "time"

// StampFirstEntry records at as the first time g entered s. An existing stamp
// is never overwritten. It reports whether a stamp was written.
func StampFirstEntry(g *Game, s State, at time.Time) bool {
	field := g.dateField(s)
	if field == nil || *field != nil {
		return false
	}
	stamped := at
	*field = &stamped
	return true
}

func (g *Game) dateField(s State) **time.Time {
	switch s {
	case StateQueued:
		return &g.DateQueued
	case StateRecalled:
		return &g.DateRecalled
	case StateConfirmed:
		return &g.DateConfirmed
	case StatePlaying:
		return &g.DatePlaying
	case StateCompleted:
		return &g.DateCompleted
	case StateCancelled:
		return &g.DateCancelled
	default:
		return nil
	}
}

// EnteredAt returns when g first entered s, if it ever did.
func (g Game) EnteredAt(s State) (time.Time, bool) {
	field := g.dateField(s)
	if field == nil || *field == nil {
		return time.Time{}, false
	}
	return **field, true
}
