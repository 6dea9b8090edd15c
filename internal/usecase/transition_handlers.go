package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/player"
	"github.com/riskibarqy/homerun-cage/internal/domain/show"
	"github.com/riskibarqy/homerun-cage/internal/domain/team"
)

// Notifier sends player-facing messages.
type Notifier interface {
	SendWelcomeMessage(ctx context.Context, p player.Player, s show.Show) error
	SendRecallMessage(ctx context.Context, p player.Player, s show.Show, gameID string) error
	SendSouvenirMessage(ctx context.Context, p player.Player, s show.Show, link string) error
}

// SouvenirPipeline starts souvenir capture for a completed game.
type SouvenirPipeline interface {
	Capture(ctx context.Context, gameID string) error
}

// TransitionPublisher fans committed transitions out to in-process listeners.
type TransitionPublisher interface {
	PublishTransition(ctx context.Context, event game.TransitionEvent) error
}

// ScoreCache drops derived team scores.
type ScoreCache interface {
	InvalidateScores(ctx context.Context)
}

// RecallFiller runs one recall admission pass.
type RecallFiller interface {
	Fill(ctx context.Context, trigger string) (RecallFillResult, error)
}

type TransitionHandlerDeps struct {
	Players   player.Repository
	Teams     team.Repository
	Shows     show.Repository
	Notifier  Notifier
	Souvenirs SouvenirPipeline
	Publisher TransitionPublisher
	Recalls   RecallFiller
	Scores    ScoreCache
	Now       func() time.Time
}

// DefaultTransitionHandlers builds the post-commit chain in its fixed order:
// team assignment, recall notification, souvenir capture, event publication,
// recall cascade, then score cache invalidation. Handlers whose dependency is
// nil are left out.
func DefaultTransitionHandlers(deps TransitionHandlerDeps) []TransitionHandler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	out := make([]TransitionHandler, 0, 6)
	if deps.Players != nil && deps.Teams != nil {
		out = append(out, &TeamAssignmentHandler{players: deps.Players, teams: deps.Teams, now: now})
	}
	if deps.Notifier != nil && deps.Shows != nil {
		out = append(out, &RecallNotificationHandler{notifier: deps.Notifier, shows: deps.Shows})
	}
	if deps.Souvenirs != nil {
		out = append(out, &SouvenirCaptureHandler{pipeline: deps.Souvenirs})
	}
	if deps.Publisher != nil {
		out = append(out, &EventPublishHandler{publisher: deps.Publisher})
	}
	if deps.Recalls != nil {
		out = append(out, &RecallCascadeHandler{recalls: deps.Recalls})
	}
	if deps.Scores != nil {
		out = append(out, &ScoreCacheHandler{scores: deps.Scores})
	}
	return out
}

// TeamAssignmentHandler gives a confirming player the least populated team.
// A player who already has a team keeps it.
type TeamAssignmentHandler struct {
	players player.Repository
	teams   team.Repository
	now     func() time.Time
}

func NewTeamAssignmentHandler(players player.Repository, teams team.Repository) *TeamAssignmentHandler {
	return &TeamAssignmentHandler{players: players, teams: teams, now: time.Now}
}

func (h *TeamAssignmentHandler) Name() string { return "team-assignment" }

func (h *TeamAssignmentHandler) Handle(ctx context.Context, change Change) error {
	if change.Event.To != game.StateConfirmed || change.Player == nil || change.Player.TeamID != "" {
		return nil
	}

	teams, err := h.teams.List(ctx)
	if err != nil {
		return fmt.Errorf("list teams: %w", err)
	}
	counts, err := h.players.CountByTeam(ctx)
	if err != nil {
		return fmt.Errorf("count team members: %w", err)
	}

	candidates := make([]team.MemberCount, 0, len(teams))
	for _, t := range teams {
		candidates = append(candidates, team.MemberCount{Team: t, Members: counts[t.ID]})
	}
	picked, ok := team.PickLeastPopulated(candidates)
	if !ok {
		return fmt.Errorf("%w: no teams configured", ErrDependencyUnavailable)
	}

	if _, err := h.players.AssignTeamIfUnset(ctx, change.Player.ID, picked.ID, h.now().UTC()); err != nil {
		return fmt.Errorf("assign team: %w", err)
	}
	return nil
}

// RecallNotificationHandler texts a recalled player.
type RecallNotificationHandler struct {
	notifier Notifier
	shows    show.Repository
}

func (h *RecallNotificationHandler) Name() string { return "recall-notification" }

func (h *RecallNotificationHandler) Handle(ctx context.Context, change Change) error {
	if change.Event.To != game.StateRecalled || change.Player == nil || !change.Player.HasMobileNumber() {
		return nil
	}

	s, err := resolveShow(ctx, h.shows, change.Game.ShowID)
	if err != nil {
		return err
	}
	return h.notifier.SendRecallMessage(ctx, *change.Player, s, change.Game.ID)
}

// SouvenirCaptureHandler starts the souvenir pipeline for completed games.
type SouvenirCaptureHandler struct {
	pipeline SouvenirPipeline
}

func (h *SouvenirCaptureHandler) Name() string { return "souvenir-capture" }

func (h *SouvenirCaptureHandler) Handle(ctx context.Context, change Change) error {
	if change.Event.To != game.StateCompleted || change.Player == nil || !change.Player.HasMobileNumber() {
		return nil
	}
	return h.pipeline.Capture(ctx, change.Game.ID)
}

// EventPublishHandler forwards every transition to the event bus.
type EventPublishHandler struct {
	publisher TransitionPublisher
}

func (h *EventPublishHandler) Name() string { return "event-publish" }

func (h *EventPublishHandler) Handle(ctx context.Context, change Change) error {
	return h.publisher.PublishTransition(ctx, change.Event)
}

// RecallCascadeHandler refills the recall window when a game leaves the cage.
type RecallCascadeHandler struct {
	recalls RecallFiller
}

func (h *RecallCascadeHandler) Name() string { return "recall-cascade" }

func (h *RecallCascadeHandler) Handle(ctx context.Context, change Change) error {
	if change.Event.To != game.StateCompleted && change.Event.To != game.StateCancelled {
		return nil
	}
	_, err := h.recalls.Fill(ctx, RecallTriggerCascade)
	return err
}

// ScoreCacheHandler clears cached team scores when membership or totals may
// have moved.
type ScoreCacheHandler struct {
	scores ScoreCache
}

func (h *ScoreCacheHandler) Name() string { return "score-cache" }

func (h *ScoreCacheHandler) Handle(ctx context.Context, change Change) error {
	if change.Event.To == game.StateCompleted || change.Event.To == game.StateConfirmed {
		h.scores.InvalidateScores(ctx)
	}
	return nil
}

func resolveShow(ctx context.Context, shows show.Repository, showID string) (show.Show, error) {
	if showID != "" {
		s, ok, err := shows.GetByID(ctx, showID)
		if err != nil {
			return show.Show{}, fmt.Errorf("get show: %w", err)
		}
		if ok {
			return s.WithDefaults(), nil
		}
	}

	s, ok, err := shows.Latest(ctx)
	if err != nil {
		return show.Show{}, fmt.Errorf("get latest show: %w", err)
	}
	if !ok {
		return show.Show{}, fmt.Errorf("%w: no show configured", ErrNotFound)
	}
	return s.WithDefaults(), nil
}
