package recall

import (
	"sort"
	"time"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
)

// ActiveRecalls returns the recalled games still holding a slot at now: those
// whose last update is newer than now minus the window. Expired recalls stay
// recalled but no longer count against capacity.
func ActiveRecalls(games []game.Game, now time.Time, s Settings) []game.Game {
	cutoff := now.Add(-s.Window())
	out := make([]game.Game, 0, len(games))
	for _, g := range games {
		if g.State != game.StateRecalled {
			continue
		}
		if g.UpdatedAt.After(cutoff) {
			out = append(out, g)
		}
	}
	return out
}

// FreeSlots is max(size - active, 0).
func FreeSlots(size, active int) int {
	free := size - active
	if free < 0 {
		return 0
	}
	return free
}

// NextRecalls picks the oldest queued games, by creation time, that fit in the
// free capacity. The result is in ascending created_at order.
func NextRecalls(games []game.Game, activeCount, size int) []game.Game {
	free := FreeSlots(size, activeCount)
	if free == 0 {
		return nil
	}

	queued := make([]game.Game, 0, len(games))
	for _, g := range games {
		if g.State == game.StateQueued {
			queued = append(queued, g)
		}
	}
	sort.SliceStable(queued, func(i, j int) bool {
		if !queued[i].CreatedAt.Equal(queued[j].CreatedAt) {
			return queued[i].CreatedAt.Before(queued[j].CreatedAt)
		}
		return queued[i].ID < queued[j].ID
	})

	if len(queued) > free {
		queued = queued[:free]
	}
	return queued
}

// Plan is the admission decision for one snapshot of the store.
type Plan struct {
	Active []game.Game
	Next   []game.Game
}

// BuildPlan evaluates both window queries over the same snapshot.
func BuildPlan(games []game.Game, now time.Time, s Settings) Plan {
	active := ActiveRecalls(games, now, s)
	return Plan{
		Active: active,
		Next:   NextRecalls(games, len(active), s.WindowSize),
	}
}
