package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/recall"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

const maxRecallWindowSize = 100

type UpdateRecallSettingsInput struct {
	WindowSize    *int
	WindowMinutes *int
	Disabled      *bool
}

type RecallOverview struct {
	Settings recall.Settings
	Active   []game.Game
	Next     []game.Game
}

// RecallService is the operator surface over the scheduler and its live
// settings.
type RecallService struct {
	scheduler *RecallScheduler
	settings  *recall.SettingsStore
	logger    *logging.Logger
}

func NewRecallService(scheduler *RecallScheduler, settings *recall.SettingsStore, logger *logging.Logger) *RecallService {
	if logger == nil {
		logger = logging.Default()
	}
	return &RecallService{
		scheduler: scheduler,
		settings:  settings,
		logger:    logger,
	}
}

func (s *RecallService) Overview(ctx context.Context) (RecallOverview, error) {
	plan, settings, err := s.scheduler.Preview(ctx)
	if err != nil {
		return RecallOverview{}, err
	}
	return RecallOverview{Settings: settings, Active: plan.Active, Next: plan.Next}, nil
}

func (s *RecallService) Fill(ctx context.Context, trigger string) (RecallFillResult, error) {
	if trigger == "" {
		trigger = RecallTriggerManual
	}
	return s.scheduler.Fill(ctx, trigger)
}

func (s *RecallService) Settings() recall.Settings {
	return s.settings.Get()
}

// UpdateSettings applies the given fields. Zero and negative sizes or minutes
// are accepted and close or expire the window.
func (s *RecallService) UpdateSettings(ctx context.Context, input UpdateRecallSettingsInput) (recall.Settings, error) {
	next := s.settings.Get()
	if input.WindowSize != nil {
		if *input.WindowSize > maxRecallWindowSize {
			return recall.Settings{}, fmt.Errorf("%w: window_size must be <= %d", ErrInvalidInput, maxRecallWindowSize)
		}
		next.WindowSize = *input.WindowSize
	}
	if input.WindowMinutes != nil {
		next.WindowMinutes = *input.WindowMinutes
	}
	if input.Disabled != nil {
		next.Disabled = *input.Disabled
	}

	s.settings.Set(next)
	s.logger.InfoContext(ctx, "recall settings updated",
		"window_size", next.WindowSize,
		"window_minutes", next.WindowMinutes,
		"disabled", next.Disabled,
	)
	return next, nil
}
