package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
)

var t0 = time.Date(2026, time.March, 1, 18, 0, 0, 0, time.UTC)

func TestGameRepository_CreateRejectsSecondActiveGame(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGameRepository()

	require.NoError(t, repo.Create(ctx, game.New("g1", "p1", "s1", t0)))

	err := repo.Create(ctx, game.New("g2", "p1", "s1", t0.Add(time.Minute)))
	require.ErrorIs(t, err, game.ErrActiveGameExists)

	require.NoError(t, repo.Create(ctx, game.New("g3", "p2", "s1", t0)))
}

func TestGameRepository_CreateAllowedAfterTerminal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGameRepository()
	first := game.New("g1", "p1", "s1", t0)
	require.NoError(t, repo.Create(ctx, first))

	cancelled := first.Clone()
	cancelled.State = game.StateCancelled
	require.NoError(t, repo.CommitTransition(ctx, cancelled, game.StateNew))

	require.NoError(t, repo.Create(ctx, game.New("g2", "p1", "s1", t0.Add(time.Hour))))

	active, ok, err := repo.FindActiveByPlayer(ctx, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "g2", active.ID)
}

func TestGameRepository_CommitTransitionComparesState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGameRepository()
	g := game.New("g1", "p1", "s1", t0)
	require.NoError(t, repo.Create(ctx, g))

	queued := g.Clone()
	queued.State = game.StateQueued
	require.NoError(t, repo.CommitTransition(ctx, queued, game.StateNew))

	stale := g.Clone()
	stale.State = game.StateConfirmed
	err := repo.CommitTransition(ctx, stale, game.StateNew)
	if !errors.Is(err, game.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}

	stored, _, _ := repo.GetByID(ctx, "g1")
	if stored.State != game.StateQueued {
		t.Fatalf("stale commit must not change state, got %s", stored.State)
	}
}

func TestGameRepository_CommitTransitionSingleWinner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGameRepository()
	g := game.New("g1", "p1", "s1", t0)
	g.State = game.StateQueued
	require.NoError(t, repo.Create(ctx, g))

	const racers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func() {
			defer wg.Done()
			next := g.Clone()
			next.State = game.StateRecalled
			if err := repo.CommitTransition(ctx, next, game.StateQueued); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("expected exactly one winning commit, got %d", got)
	}
}

func TestGameRepository_ListByStateOrdersByCreation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGameRepository()
	for i, id := range []string{"c", "a", "b"} {
		g := game.New(id, "p-"+id, "s1", t0.Add(time.Duration(2-i)*time.Minute))
		g.State = game.StateQueued
		require.NoError(t, repo.Create(ctx, g))
	}
	tied := game.New("0", "p-0", "s1", t0)
	tied.State = game.StateRecalled
	require.NoError(t, repo.Create(ctx, tied))

	items, err := repo.ListByState(ctx, game.StateQueued, game.StateRecalled)
	require.NoError(t, err)

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	require.Equal(t, []string{"0", "b", "a", "c"}, ids)

	all, err := repo.ListByState(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
}

func TestGameRepository_ReturnsClones(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGameRepository()
	g := game.New("g1", "p1", "s1", t0)
	game.StampFirstEntry(&g, game.StateQueued, t0)
	g.State = game.StateQueued
	require.NoError(t, repo.Create(ctx, g))

	got, _, _ := repo.GetByID(ctx, "g1")
	*got.DateQueued = t0.Add(time.Hour)

	again, _, _ := repo.GetByID(ctx, "g1")
	require.True(t, again.DateQueued.Equal(t0))
}

func TestGameRepository_AttachSouvenir(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGameRepository()
	require.NoError(t, repo.Create(ctx, game.New("g1", "p1", "s1", t0)))

	require.NoError(t, repo.AttachSouvenir(ctx, "g1", "img://1", "abc123", t0.Add(time.Minute)))
	got, _, _ := repo.GetByID(ctx, "g1")
	require.Equal(t, "img://1", got.SouvenirImageRef)
	require.Equal(t, "abc123", got.SouvenirShareSlug)

	require.Error(t, repo.AttachSouvenir(ctx, "missing", "x", "y", t0))
}
