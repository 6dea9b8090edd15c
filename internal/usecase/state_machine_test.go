package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/recall"
	gamemock "github.com/riskibarqy/homerun-cage/internal/mocks/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

func TestGameStateMachine_RecallFromNewIsRejected(t *testing.T) {
	c := newCage(t, recall.DefaultSettings())
	g := c.addGame(game.StateNew, c.clock.Now())

	_, err := c.machine.Recall(context.Background(), g.ID)
	if !errors.Is(err, game.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
	var illegal *game.IllegalTransitionError
	if !errors.As(err, &illegal) {
		t.Fatalf("expected *IllegalTransitionError, got %T", err)
	}
	if illegal.From != game.StateNew || illegal.To != game.StateRecalled {
		t.Fatalf("unexpected illegal change: %s", illegal.Error())
	}

	stored := c.game(g.ID)
	if stored.State != game.StateNew {
		t.Fatalf("state must be unchanged, got %s", stored.State)
	}
	if stored.DateRecalled != nil {
		t.Fatalf("rejected transition must not stamp date_recalled")
	}
	if len(c.publisher.events) != 0 {
		t.Fatalf("rejected transition must not publish, got %d events", len(c.publisher.events))
	}
}

func TestGameStateMachine_CompleteRecordsScoresAndCapturesSouvenir(t *testing.T) {
	c := newCage(t, recall.DefaultSettings())
	g := c.addGame(game.StatePlaying, c.clock.Now())
	c.clock.Advance(3 * time.Minute)

	result, err := c.machine.Complete(context.Background(), g.ID, game.Scores{Score: 100, Distance: 50, Homeruns: 3})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(result.SideEffectErrors) != 0 {
		t.Fatalf("unexpected side effect errors: %v", result.SideEffectErrors)
	}

	stored := c.game(g.ID)
	if stored.State != game.StateCompleted {
		t.Fatalf("expected completed, got %s", stored.State)
	}
	if stored.Score != 100 || stored.Distance != 50 || stored.Homeruns != 3 {
		t.Fatalf("unexpected scores: score=%d distance=%d homeruns=%d", stored.Score, stored.Distance, stored.Homeruns)
	}
	if stored.DateCompleted == nil || !stored.DateCompleted.Equal(c.clock.Now()) {
		t.Fatalf("expected date_completed=%s, got %v", c.clock.Now(), stored.DateCompleted)
	}
	if !stored.UpdatedAt.Equal(c.clock.Now()) {
		t.Fatalf("expected updated_at=%s, got %s", c.clock.Now(), stored.UpdatedAt)
	}

	captures := c.queue.ofKind(JobKindCaptureSouvenir)
	if len(captures) != 1 {
		t.Fatalf("expected exactly one souvenir capture, got %d", len(captures))
	}
	payload, ok := captures[0].Payload.(CaptureSouvenirPayload)
	if !ok || payload.GameID != g.ID {
		t.Fatalf("unexpected capture payload: %#v", captures[0].Payload)
	}
	if captures[0].DedupID != "souvenir-"+g.ID {
		t.Fatalf("unexpected dedup id %q", captures[0].DedupID)
	}
}

func TestGameStateMachine_CompleteWithoutMobileSkipsSouvenir(t *testing.T) {
	c := newCage(t, recall.DefaultSettings())
	p := c.addPlayer(c.fx.PlayerWithoutMobile())
	g := c.addGameFor(p, game.StatePlaying, c.clock.Now())

	if _, err := c.machine.Complete(context.Background(), g.ID, game.Scores{Score: 10}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := c.queue.ofKind(JobKindCaptureSouvenir); len(got) != 0 {
		t.Fatalf("expected no souvenir capture, got %d", len(got))
	}
}

func TestGameStateMachine_CompleteRejectsNegativeScores(t *testing.T) {
	c := newCage(t, recall.DefaultSettings())
	g := c.addGame(game.StatePlaying, c.clock.Now())

	_, err := c.machine.Complete(context.Background(), g.ID, game.Scores{Score: -1})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if stored := c.game(g.ID); stored.State != game.StatePlaying {
		t.Fatalf("state must be unchanged, got %s", stored.State)
	}
}

func TestGameStateMachine_TransitionTable(t *testing.T) {
	for _, tr := range game.Transitions() {
		for _, from := range game.AllStates {
			tr, from := tr, from
			t.Run(string(tr)+"_from_"+string(from), func(t *testing.T) {
				c := newCage(t, recall.Settings{WindowSize: 0, WindowMinutes: 20})
				g := c.addGame(from, c.clock.Now())

				var err error
				if tr == game.TransitionComplete {
					_, err = c.machine.Complete(context.Background(), g.ID, game.Scores{})
				} else {
					_, err = c.machine.Fire(context.Background(), g.ID, tr)
				}

				stored := c.game(g.ID)
				if tr.Allowed(from) {
					if err != nil {
						t.Fatalf("expected %s from %s to succeed, got %v", tr, from, err)
					}
					if stored.State != tr.Target() {
						t.Fatalf("expected %s, got %s", tr.Target(), stored.State)
					}
					return
				}
				if !errors.Is(err, game.ErrIllegalTransition) {
					t.Fatalf("expected illegal transition for %s from %s, got %v", tr, from, err)
				}
				if stored.State != from {
					t.Fatalf("state must stay %s, got %s", from, stored.State)
				}
			})
		}
	}
}

func TestGameStateMachine_FirstEntryTimestampsAreKept(t *testing.T) {
	c := newCage(t, recall.Settings{WindowSize: 0, WindowMinutes: 20})
	g := c.addGame(game.StateNew, c.clock.Now())
	ctx := context.Background()

	firstQueued := c.clock.Now()
	_, err := c.machine.Queue(ctx, g.ID)
	require.NoError(t, err)

	c.clock.Advance(time.Minute)
	firstRecalled := c.clock.Now()
	_, err = c.machine.Recall(ctx, g.ID)
	require.NoError(t, err)

	c.clock.Advance(time.Minute)
	_, err = c.machine.Queue(ctx, g.ID)
	require.NoError(t, err)

	c.clock.Advance(time.Minute)
	_, err = c.machine.Recall(ctx, g.ID)
	require.NoError(t, err)

	stored := c.game(g.ID)
	require.NotNil(t, stored.DateQueued)
	require.NotNil(t, stored.DateRecalled)
	if !stored.DateQueued.Equal(firstQueued) {
		t.Fatalf("date_queued moved: want %s got %s", firstQueued, stored.DateQueued)
	}
	if !stored.DateRecalled.Equal(firstRecalled) {
		t.Fatalf("date_recalled moved: want %s got %s", firstRecalled, stored.DateRecalled)
	}
	if !stored.UpdatedAt.Equal(c.clock.Now()) {
		t.Fatalf("updated_at must follow the latest transition, got %s", stored.UpdatedAt)
	}
}

func TestGameStateMachine_ConfirmAssignsLeastPopulatedTeamOnce(t *testing.T) {
	c := newCage(t, recall.DefaultSettings())
	ctx := context.Background()

	first := c.addGame(game.StateQueued, c.clock.Now())
	second := c.addGame(game.StateQueued, c.clock.Now().Add(time.Second))
	third := c.addGame(game.StateRecalled, c.clock.Now().Add(2*time.Second))

	for _, g := range []game.Game{first, second, third} {
		if _, err := c.machine.Confirm(ctx, g.ID); err != nil {
			t.Fatalf("confirm %s: %v", g.ID, err)
		}
	}

	if got := c.player(first.PlayerID).TeamID; got != c.teamA.ID {
		t.Fatalf("first player: want %s got %s", c.teamA.ID, got)
	}
	if got := c.player(second.PlayerID).TeamID; got != c.teamB.ID {
		t.Fatalf("second player: want %s got %s", c.teamB.ID, got)
	}
	if got := c.player(third.PlayerID).TeamID; got != c.teamA.ID {
		t.Fatalf("third player: want %s got %s", c.teamA.ID, got)
	}

	// A returning player keeps the team even when it is now the larger one.
	_, err := c.machine.Complete(ctx, mustPlay(t, c, second.ID), game.Scores{Score: 5})
	require.NoError(t, err)
	p := c.player(third.PlayerID)
	_, err = c.machine.Cancel(ctx, third.ID)
	require.NoError(t, err)
	again := c.addGameFor(p, game.StateNew, c.clock.Now().Add(time.Hour))
	_, err = c.machine.Confirm(ctx, again.ID)
	require.NoError(t, err)
	if got := c.player(p.ID).TeamID; got != c.teamA.ID {
		t.Fatalf("team must be sticky: want %s got %s", c.teamA.ID, got)
	}
}

func mustPlay(t *testing.T, c *cage, gameID string) string {
	t.Helper()
	if _, err := c.machine.Play(context.Background(), gameID); err != nil {
		t.Fatalf("play %s: %v", gameID, err)
	}
	return gameID
}

func TestGameStateMachine_SideEffectFailureKeepsTransition(t *testing.T) {
	c := newCage(t, recall.Settings{WindowSize: 0, WindowMinutes: 20})
	g := c.addGame(game.StateQueued, c.clock.Now())
	c.queue.err = errors.New("queue down")

	result, err := c.machine.Recall(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("recall must succeed despite side effect failure: %v", err)
	}
	if len(result.SideEffectErrors) != 1 || result.SideEffectErrors[0].Handler != "recall-notification" {
		t.Fatalf("unexpected side effect errors: %v", result.SideEffectErrors)
	}
	if stored := c.game(g.ID); stored.State != game.StateRecalled {
		t.Fatalf("transition must stay committed, got %s", stored.State)
	}
	if len(c.publisher.events) != 1 {
		t.Fatalf("later handlers must still run, got %d events", len(c.publisher.events))
	}
}

type panickingHandler struct{}

func (panickingHandler) Name() string { return "boom" }

func (panickingHandler) Handle(context.Context, Change) error {
	panic("handler exploded")
}

type countingHandler struct{ calls int }

func (h *countingHandler) Name() string { return "counter" }

func (h *countingHandler) Handle(context.Context, Change) error {
	h.calls++
	return nil
}

func TestGameStateMachine_HandlerPanicIsRecovered(t *testing.T) {
	c := newCage(t, recall.DefaultSettings())
	after := &countingHandler{}
	c.machine.SetHandlers(panickingHandler{}, after)
	g := c.addGame(game.StateNew, c.clock.Now())

	result, err := c.machine.Queue(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(result.SideEffectErrors) != 1 || result.SideEffectErrors[0].Handler != "boom" {
		t.Fatalf("expected recovered panic as side effect error, got %v", result.SideEffectErrors)
	}
	if after.calls != 1 {
		t.Fatalf("handlers after a panic must still run, got %d calls", after.calls)
	}
	if stored := c.game(g.ID); stored.State != game.StateQueued {
		t.Fatalf("expected queued, got %s", stored.State)
	}
}

func TestGameStateMachine_FireValidatesInput(t *testing.T) {
	c := newCage(t, recall.DefaultSettings())
	ctx := context.Background()

	if _, err := c.machine.Fire(ctx, "game-x", game.Transition("teleport")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown transition, got %v", err)
	}
	if _, err := c.machine.Fire(ctx, "game-x", game.TransitionComplete); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for complete without scores, got %v", err)
	}
	if _, err := c.machine.Queue(ctx, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for blank id, got %v", err)
	}
	if _, err := c.machine.Queue(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGameStateMachine_LostRaceReturnsConcurrentModification(t *testing.T) {
	games := gamemock.NewRepository(t)
	current := game.New("game-1", "player-1", "show-1", time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))
	current.State = game.StateQueued

	games.On("GetByID", mock.Anything, "game-1").Return(current, true, nil).Once()
	games.On("CommitTransition", mock.Anything, mock.MatchedBy(func(next game.Game) bool {
		return next.State == game.StateRecalled && next.DateRecalled != nil
	}), game.StateQueued).Return(game.ErrConcurrentModification).Once()

	machine := NewGameStateMachine(games, nil, nil, logging.NewNop())
	after := &countingHandler{}
	machine.SetHandlers(after)

	result, err := machine.Recall(context.Background(), "game-1")
	if !errors.Is(err, game.ErrConcurrentModification) {
		t.Fatalf("expected concurrent modification, got %v", err)
	}
	if result.Game.State != game.StateQueued {
		t.Fatalf("result must carry the unchanged game, got %s", result.Game.State)
	}
	if after.calls != 0 {
		t.Fatalf("handlers must not run for a lost race")
	}
}

func TestGameStateMachine_PublishesEveryTransition(t *testing.T) {
	c := newCage(t, recall.Settings{WindowSize: 0, WindowMinutes: 20})
	g := c.addGame(game.StateNew, c.clock.Now())
	ctx := context.Background()

	_, err := c.machine.Confirm(ctx, g.ID)
	require.NoError(t, err)
	_, err = c.machine.Play(ctx, g.ID)
	require.NoError(t, err)

	require.Len(t, c.publisher.events, 2)
	first, second := c.publisher.events[0], c.publisher.events[1]
	if first.From != game.StateNew || first.To != game.StateConfirmed || first.Transition != game.TransitionConfirm {
		t.Fatalf("unexpected first event: %+v", first)
	}
	if second.From != game.StateConfirmed || second.To != game.StatePlaying || second.GameID != g.ID {
		t.Fatalf("unexpected second event: %+v", second)
	}
}
