package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/recall"
	"github.com/riskibarqy/homerun-cage/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

func TestRecallScheduler_FillRecallsOldestQueuedFirst(t *testing.T) {
	c := newCage(t, recall.Settings{WindowSize: 2, WindowMinutes: 20})
	now := c.clock.Now()
	newest := c.addGame(game.StateQueued, now.Add(-time.Minute))
	oldest := c.addGame(game.StateQueued, now.Add(-3*time.Minute))
	middle := c.addGame(game.StateQueued, now.Add(-2*time.Minute))

	result, err := c.scheduler.Fill(context.Background(), RecallTriggerManual)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}

	if diff := cmp.Diff([]string{oldest.ID, middle.ID}, result.Recalled); diff != "" {
		t.Fatalf("unexpected recalled games (-want +got):\n%s", diff)
	}
	if stored := c.game(newest.ID); stored.State != game.StateQueued {
		t.Fatalf("newest game must stay queued, got %s", stored.State)
	}
	if got := c.queue.ofKind(JobKindSendSMS); len(got) != 2 {
		t.Fatalf("expected one recall text per recalled player, got %d", len(got))
	}
}

func TestRecallScheduler_FullWindowRecallsNobody(t *testing.T) {
	c := newCage(t, recall.Settings{WindowSize: 1, WindowMinutes: 20})
	now := c.clock.Now()
	c.addGame(game.StateRecalled, now.Add(-5*time.Minute))
	waiting := c.addGame(game.StateQueued, now.Add(-time.Hour))

	result, err := c.scheduler.Fill(context.Background(), RecallTriggerPeriodic)
	require.NoError(t, err)
	if result.Active != 1 || len(result.Recalled) != 0 {
		t.Fatalf("expected a full window, got active=%d recalled=%v", result.Active, result.Recalled)
	}
	if stored := c.game(waiting.ID); stored.State != game.StateQueued {
		t.Fatalf("expected queued, got %s", stored.State)
	}

	// Once the recall ages out of the window its slot frees up.
	c.clock.Advance(16 * time.Minute)
	result, err = c.scheduler.Fill(context.Background(), RecallTriggerPeriodic)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{waiting.ID}, result.Recalled); diff != "" {
		t.Fatalf("unexpected recalled games (-want +got):\n%s", diff)
	}
}

func TestRecallScheduler_DisabledIsNoop(t *testing.T) {
	c := newCage(t, recall.Settings{WindowSize: 5, WindowMinutes: 20, Disabled: true})
	g := c.addGame(game.StateQueued, c.clock.Now())

	result, err := c.scheduler.Fill(context.Background(), RecallTriggerManual)
	require.NoError(t, err)
	if !result.Disabled || len(result.Recalled) != 0 {
		t.Fatalf("disabled scheduler must not recall: %+v", result)
	}
	if stored := c.game(g.ID); stored.State != game.StateQueued {
		t.Fatalf("expected queued, got %s", stored.State)
	}
}

func TestRecallScheduler_ReadsSettingsOnEveryFill(t *testing.T) {
	c := newCage(t, recall.Settings{WindowSize: 0, WindowMinutes: 20})
	g := c.addGame(game.StateQueued, c.clock.Now())

	result, err := c.scheduler.Fill(context.Background(), RecallTriggerManual)
	require.NoError(t, err)
	require.Empty(t, result.Recalled)

	c.settings.Set(recall.Settings{WindowSize: 1, WindowMinutes: 20})
	result, err = c.scheduler.Fill(context.Background(), RecallTriggerManual)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{g.ID}, result.Recalled); diff != "" {
		t.Fatalf("unexpected recalled games (-want +got):\n%s", diff)
	}
}

func TestRecallScheduler_CompletionCascadesIntoNextRecall(t *testing.T) {
	c := newCage(t, recall.Settings{WindowSize: 1, WindowMinutes: 20})
	now := c.clock.Now()
	playing := c.addGame(game.StatePlaying, now.Add(-time.Hour))
	c.addGame(game.StateRecalled, now.Add(-time.Minute))
	waiting := c.addGame(game.StateQueued, now.Add(-30*time.Minute))

	// The cascade alone cannot free a slot held by a fresh recall.
	_, err := c.machine.Complete(context.Background(), playing.ID, game.Scores{Score: 1})
	require.NoError(t, err)
	if stored := c.game(waiting.ID); stored.State != game.StateQueued {
		t.Fatalf("window is still full, got %s", stored.State)
	}

	recalled := c.recalledIDs()
	require.Len(t, recalled, 1)
	_, err = c.machine.Cancel(context.Background(), recalled[0])
	require.NoError(t, err)
	if stored := c.game(waiting.ID); stored.State != game.StateRecalled {
		t.Fatalf("cancel must cascade into a recall, got %s", stored.State)
	}
}

type scriptedRecaller struct {
	mu     sync.Mutex
	errs   map[string]error
	called []string
}

func (r *scriptedRecaller) Recall(_ context.Context, gameID string) (TransitionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.called = append(r.called, gameID)
	return TransitionResult{}, r.errs[gameID]
}

func TestRecallScheduler_SkipsFailuresAndContinues(t *testing.T) {
	games := memory.NewGameRepository()
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	for i, id := range []string{"g1", "g2", "g3"} {
		g := game.New(id, "player-"+id, "show", now.Add(time.Duration(i)*time.Second))
		g.State = game.StateQueued
		require.NoError(t, games.Create(context.Background(), g))
	}

	recaller := &scriptedRecaller{errs: map[string]error{
		"g1": &game.IllegalTransitionError{From: game.StateConfirmed, To: game.StateRecalled},
		"g2": errors.Join(errors.New("commit recall"), game.ErrConcurrentModification),
	}}
	scheduler := NewRecallScheduler(games, recaller, recall.NewSettingsStore(recall.Settings{WindowSize: 3, WindowMinutes: 20}), nil, logging.NewNop())
	scheduler.now = func() time.Time { return now.Add(time.Minute) }

	result, err := scheduler.Fill(context.Background(), RecallTriggerManual)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"g1", "g2", "g3"}, recaller.called); diff != "" {
		t.Fatalf("every candidate must be attempted (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"g3"}, result.Recalled); diff != "" {
		t.Fatalf("unexpected recalled (-want +got):\n%s", diff)
	}
	require.Len(t, result.Skipped, 2)
	if result.Skipped[0].Reason != recallSkipIllegal || result.Skipped[1].Reason != recallSkipConflict {
		t.Fatalf("unexpected skip reasons: %+v", result.Skipped)
	}
}

func TestRecallScheduler_ConcurrentFillsRespectCapacity(t *testing.T) {
	c := newCage(t, recall.Settings{WindowSize: 1, WindowMinutes: 20})
	now := c.clock.Now()
	first := c.addGame(game.StateQueued, now.Add(-2*time.Minute))
	c.addGame(game.StateQueued, now.Add(-time.Minute))

	const fills = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < fills; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := c.scheduler.Fill(context.Background(), RecallTriggerPeriodic); err != nil {
				t.Errorf("fill: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	recalled := c.recalledIDs()
	sort.Strings(recalled)
	if diff := cmp.Diff([]string{first.ID}, recalled); diff != "" {
		t.Fatalf("exactly the oldest game may be recalled (-want +got):\n%s", diff)
	}
	if got := c.queue.ofKind(JobKindSendSMS); len(got) != 1 {
		t.Fatalf("expected exactly one recall text, got %d", len(got))
	}
}

func TestRecallScheduler_Preview(t *testing.T) {
	c := newCage(t, recall.Settings{WindowSize: 2, WindowMinutes: 20})
	now := c.clock.Now()
	active := c.addGame(game.StateRecalled, now.Add(-time.Minute))
	next := c.addGame(game.StateQueued, now.Add(-time.Hour))

	plan, settings, err := c.scheduler.Preview(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, settings.WindowSize)
	require.Len(t, plan.Active, 1)
	require.Len(t, plan.Next, 1)
	if plan.Active[0].ID != active.ID || plan.Next[0].ID != next.ID {
		t.Fatalf("unexpected plan: active=%s next=%s", plan.Active[0].ID, plan.Next[0].ID)
	}
	if stored := c.game(next.ID); stored.State != game.StateQueued {
		t.Fatalf("preview must not change state, got %s", stored.State)
	}
}
