package game

import (
	"testing"
	"time"
)

func TestStampFirstEntry_NeverOverwrites(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, time.March, 1, 18, 0, 0, 0, time.UTC)
	t1 := t0.Add(5 * time.Minute)
	g := New("g1", "p1", "s1", t0)

	if !StampFirstEntry(&g, StateQueued, t0) {
		t.Fatalf("expected first queued stamp to be written")
	}
	if StampFirstEntry(&g, StateQueued, t1) {
		t.Fatalf("expected second queued stamp to be ignored")
	}

	got, ok := g.EnteredAt(StateQueued)
	if !ok || !got.Equal(t0) {
		t.Fatalf("unexpected date_queued: got=%v ok=%t want=%v", got, ok, t0)
	}
}

func TestStampFirstEntry_NewStateHasNoStamp(t *testing.T) {
	t.Parallel()

	g := New("g1", "p1", "s1", time.Now())
	if StampFirstEntry(&g, StateNew, time.Now()) {
		t.Fatalf("new state has no date field")
	}
	if _, ok := g.EnteredAt(StateNew); ok {
		t.Fatalf("expected no stamp for new state")
	}
}

func TestClone_DoesNotShareTimestamps(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, time.March, 1, 18, 0, 0, 0, time.UTC)
	g := New("g1", "p1", "s1", at)
	StampFirstEntry(&g, StateQueued, at)

	cp := g.Clone()
	*cp.DateQueued = at.Add(time.Hour)

	if !g.DateQueued.Equal(at) {
		t.Fatalf("clone mutated source timestamp: %v", *g.DateQueued)
	}
}

func TestScores_Validate(t *testing.T) {
	t.Parallel()

	if err := (Scores{Score: 10, Distance: 300, Homeruns: 2}).Validate(); err != nil {
		t.Fatalf("valid scores rejected: %v", err)
	}
	if err := (Scores{Score: -1}).Validate(); err == nil {
		t.Fatalf("expected negative score to be rejected")
	}
}
