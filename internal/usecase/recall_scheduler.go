package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/recall"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
	"github.com/riskibarqy/homerun-cage/internal/platform/metrics"
)

const (
	RecallTriggerPeriodic = "periodic"
	RecallTriggerCascade  = "cascade"
	RecallTriggerManual   = "manual"
	RecallTriggerJob      = "job"
)

const (
	recallSkipIllegal    = "illegal_transition"
	recallSkipConflict   = "concurrent_modification"
	recallSkipCapacity   = "capacity"
	recallSkipError      = "error"
	recallOutcomeOK      = "ok"
	recallOutcomeOff     = "disabled"
	recallOutcomeFailure = "error"
)

// RecallSettingsSource is read once at the start of every fill.
type RecallSettingsSource interface {
	RecallSettings(ctx context.Context) recall.Settings
}

// Recaller performs the recall transition for one game.
type Recaller interface {
	Recall(ctx context.Context, gameID string) (TransitionResult, error)
}

type RecallSkip struct {
	GameID string `json:"game_id"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}

type RecallFillResult struct {
	Trigger  string          `json:"trigger"`
	Settings recall.Settings `json:"settings"`
	Disabled bool            `json:"disabled"`
	Active   int             `json:"active"`
	Selected []string        `json:"selected"`
	Recalled []string        `json:"recalled"`
	Skipped  []RecallSkip    `json:"skipped"`
}

// RecallScheduler admits queued games into the recall window. It holds no
// lock: concurrent fills are reconciled per game by the store's conditional
// update.
type RecallScheduler struct {
	games    game.Repository
	recaller Recaller
	settings RecallSettingsSource
	metrics  *metrics.Recorder
	logger   *logging.Logger
	now      func() time.Time
}

func NewRecallScheduler(
	games game.Repository,
	recaller Recaller,
	settings RecallSettingsSource,
	recorder *metrics.Recorder,
	logger *logging.Logger,
) *RecallScheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if settings == nil {
		settings = recall.NewSettingsStore(recall.DefaultSettings())
	}
	return &RecallScheduler{
		games:    games,
		recaller: recaller,
		settings: settings,
		metrics:  recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Fill recalls as many of the oldest queued games as the window has room for.
// Per-game failures are skipped; only a failed snapshot read is returned.
func (s *RecallScheduler) Fill(ctx context.Context, trigger string) (_ RecallFillResult, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RecallScheduler.Fill", attribute.String("recall.trigger", trigger))
	defer endSpan(span, &err)

	settings := s.settings.RecallSettings(ctx)
	result := RecallFillResult{
		Trigger:  trigger,
		Settings: settings,
		Selected: []string{},
		Recalled: []string{},
		Skipped:  []RecallSkip{},
	}
	if settings.Disabled {
		result.Disabled = true
		s.metrics.RecallRun(trigger, recallOutcomeOff)
		s.logger.DebugContext(ctx, "recall fill skipped, scheduler disabled", "trigger", trigger)
		return result, nil
	}

	plan, err := s.plan(ctx, settings)
	if err != nil {
		s.metrics.RecallRun(trigger, recallOutcomeFailure)
		return result, err
	}
	result.Active = len(plan.Active)
	for _, g := range plan.Next {
		result.Selected = append(result.Selected, g.ID)
	}

	for i, candidate := range plan.Next {
		if i > 0 {
			current, err := s.plan(ctx, settings)
			if err == nil && recall.FreeSlots(settings.WindowSize, len(current.Active)) == 0 {
				for _, rest := range plan.Next[i:] {
					result.Skipped = append(result.Skipped, RecallSkip{GameID: rest.ID, Reason: recallSkipCapacity})
					s.metrics.RecallSkipped(trigger, recallSkipCapacity)
				}
				break
			}
		}

		if _, err := s.recaller.Recall(ctx, candidate.ID); err != nil {
			reason := recallSkipReason(err)
			result.Skipped = append(result.Skipped, RecallSkip{GameID: candidate.ID, Reason: reason, Error: err.Error()})
			s.metrics.RecallSkipped(trigger, reason)
			if reason == recallSkipError {
				s.logger.WarnContext(ctx, "recall failed, skipping game",
					"trigger", trigger,
					"game_id", candidate.ID,
					"error", err,
				)
			} else {
				s.logger.DebugContext(ctx, "recall skipped",
					"trigger", trigger,
					"game_id", candidate.ID,
					"reason", reason,
				)
			}
			continue
		}

		result.Recalled = append(result.Recalled, candidate.ID)
		s.metrics.RecallIssued(trigger)
	}

	s.metrics.RecallRun(trigger, recallOutcomeOK)
	if len(result.Recalled) > 0 || len(result.Skipped) > 0 {
		s.logger.InfoContext(ctx, "recall fill finished",
			"trigger", trigger,
			"active", result.Active,
			"recalled", len(result.Recalled),
			"skipped", len(result.Skipped),
		)
	}
	return result, nil
}

// Preview evaluates the window without changing anything.
func (s *RecallScheduler) Preview(ctx context.Context) (recall.Plan, recall.Settings, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RecallScheduler.Preview")
	defer span.End()

	settings := s.settings.RecallSettings(ctx)
	plan, err := s.plan(ctx, settings)
	if err != nil {
		return recall.Plan{}, settings, err
	}
	return plan, settings, nil
}

func (s *RecallScheduler) plan(ctx context.Context, settings recall.Settings) (recall.Plan, error) {
	snapshot, err := s.games.ListByState(ctx, game.StateRecalled, game.StateQueued)
	if err != nil {
		return recall.Plan{}, fmt.Errorf("list recall candidates: %w", err)
	}
	return recall.BuildPlan(snapshot, s.now().UTC(), settings), nil
}

func recallSkipReason(err error) string {
	switch {
	case errors.Is(err, game.ErrIllegalTransition):
		return recallSkipIllegal
	case errors.Is(err, game.ErrConcurrentModification):
		return recallSkipConflict
	default:
		return recallSkipError
	}
}
