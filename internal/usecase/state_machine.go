package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/player"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
	"github.com/riskibarqy/homerun-cage/internal/platform/metrics"
)

// Change is what post-commit handlers see. Player is nil when the owner could
// not be loaded.
type Change struct {
	Event  game.TransitionEvent
	Game   game.Game
	Player *player.Player
}

// TransitionHandler runs after a transition is committed. Failures never undo
// the transition.
type TransitionHandler interface {
	Name() string
	Handle(ctx context.Context, change Change) error
}

// SideEffectError names the handler that failed.
type SideEffectError struct {
	Handler string
	Err     error
}

func (e SideEffectError) Error() string {
	return e.Handler + ": " + e.Err.Error()
}

func (e SideEffectError) Unwrap() error {
	return e.Err
}

type TransitionResult struct {
	Game             game.Game
	Event            game.TransitionEvent
	SideEffectErrors []SideEffectError
}

// GameStateMachine is the only writer of game state.
type GameStateMachine struct {
	games    game.Repository
	players  player.Repository
	handlers []TransitionHandler
	metrics  *metrics.Recorder
	logger   *logging.Logger
	now      func() time.Time
}

func NewGameStateMachine(
	games game.Repository,
	players player.Repository,
	recorder *metrics.Recorder,
	logger *logging.Logger,
) *GameStateMachine {
	if logger == nil {
		logger = logging.Default()
	}
	return &GameStateMachine{
		games:   games,
		players: players,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// SetHandlers replaces the post-commit handler list. Handlers run in the given
// order on every committed transition.
func (m *GameStateMachine) SetHandlers(handlers ...TransitionHandler) {
	m.handlers = append([]TransitionHandler(nil), handlers...)
}

func (m *GameStateMachine) Queue(ctx context.Context, gameID string) (TransitionResult, error) {
	return m.apply(ctx, gameID, game.TransitionQueue, nil)
}

func (m *GameStateMachine) Confirm(ctx context.Context, gameID string) (TransitionResult, error) {
	return m.apply(ctx, gameID, game.TransitionConfirm, nil)
}

func (m *GameStateMachine) Recall(ctx context.Context, gameID string) (TransitionResult, error) {
	return m.apply(ctx, gameID, game.TransitionRecall, nil)
}

func (m *GameStateMachine) Play(ctx context.Context, gameID string) (TransitionResult, error) {
	return m.apply(ctx, gameID, game.TransitionPlay, nil)
}

func (m *GameStateMachine) Cancel(ctx context.Context, gameID string) (TransitionResult, error) {
	return m.apply(ctx, gameID, game.TransitionCancel, nil)
}

// Complete finishes a playing game and records its scores in the same commit.
func (m *GameStateMachine) Complete(ctx context.Context, gameID string, scores game.Scores) (TransitionResult, error) {
	if err := scores.Validate(); err != nil {
		return TransitionResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return m.apply(ctx, gameID, game.TransitionComplete, func(g *game.Game) {
		g.ApplyScores(scores)
	})
}

// Fire runs any transition that takes no arguments.
func (m *GameStateMachine) Fire(ctx context.Context, gameID string, t game.Transition) (TransitionResult, error) {
	if !t.Valid() {
		return TransitionResult{}, fmt.Errorf("%w: unknown transition %q", ErrInvalidInput, t)
	}
	if t == game.TransitionComplete {
		return TransitionResult{}, fmt.Errorf("%w: complete requires scores", ErrInvalidInput)
	}
	return m.apply(ctx, gameID, t, nil)
}

func (m *GameStateMachine) apply(ctx context.Context, gameID string, t game.Transition, mutate func(*game.Game)) (_ TransitionResult, err error) {
	gameID = strings.TrimSpace(gameID)
	ctx, span := startUsecaseSpan(ctx, "usecase.GameStateMachine."+string(t),
		attribute.String("game.id", gameID),
		attribute.String("game.transition", string(t)),
	)
	defer endSpan(span, &err)

	if gameID == "" {
		return TransitionResult{}, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}

	current, exists, err := m.games.GetByID(ctx, gameID)
	if err != nil {
		return TransitionResult{}, fmt.Errorf("get game: %w", err)
	}
	if !exists {
		return TransitionResult{}, fmt.Errorf("%w: game=%s", ErrNotFound, gameID)
	}

	if err := game.Guard(current, t); err != nil {
		m.metrics.IllegalTransition(string(t), string(current.State))
		m.logger.InfoContext(ctx, "illegal game transition rejected",
			"game_id", gameID,
			"transition", t,
			"state", current.State,
		)
		return TransitionResult{Game: current}, err
	}

	now := m.now().UTC()
	next := current.Clone()
	next.State = t.Target()
	next.UpdatedAt = now
	game.StampFirstEntry(&next, next.State, now)
	if mutate != nil {
		mutate(&next)
	}

	if err := m.games.CommitTransition(ctx, next, current.State); err != nil {
		if errors.Is(err, game.ErrConcurrentModification) {
			m.metrics.ConcurrentModification(string(t))
			m.logger.InfoContext(ctx, "game transition lost race",
				"game_id", gameID,
				"transition", t,
				"expected_state", current.State,
			)
		}
		return TransitionResult{Game: current}, fmt.Errorf("commit %s: %w", t, err)
	}

	m.metrics.Transition(string(t), string(current.State), string(next.State))
	event := game.TransitionEvent{
		GameID:     next.ID,
		PlayerID:   next.PlayerID,
		ShowID:     next.ShowID,
		Transition: t,
		From:       current.State,
		To:         next.State,
		OccurredAt: now,
	}
	m.logger.InfoContext(ctx, "game transition committed",
		"game_id", next.ID,
		"player_id", next.PlayerID,
		"from", event.From,
		"to", event.To,
	)

	result := TransitionResult{Game: next, Event: event}
	change := Change{Event: event, Game: next.Clone()}
	if m.players != nil && next.PlayerID != "" {
		owner, found, err := m.players.GetByID(ctx, next.PlayerID)
		switch {
		case err != nil:
			result.SideEffectErrors = append(result.SideEffectErrors, m.sideEffectFailed(ctx, "player-lookup", event, err))
		case found:
			change.Player = &owner
		}
	}

	for _, h := range m.handlers {
		if err := runHandler(ctx, h, change); err != nil {
			result.SideEffectErrors = append(result.SideEffectErrors, m.sideEffectFailed(ctx, h.Name(), event, err))
		}
	}

	return result, nil
}

func (m *GameStateMachine) sideEffectFailed(ctx context.Context, handler string, event game.TransitionEvent, err error) SideEffectError {
	m.metrics.SideEffectFailure(handler)
	m.logger.WarnContext(ctx, "transition side effect failed",
		"handler", handler,
		"game_id", event.GameID,
		"to", event.To,
		"error", err,
	)
	return SideEffectError{Handler: handler, Err: err}
}

func runHandler(ctx context.Context, h TransitionHandler, change Change) error {
	var err error
	var catcher panics.Catcher
	catcher.Try(func() {
		err = h.Handle(ctx, change)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		return recovered.AsError()
	}
	return err
}
