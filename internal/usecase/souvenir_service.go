package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/player"
	"github.com/riskibarqy/homerun-cage/internal/domain/show"
	"github.com/riskibarqy/homerun-cage/internal/domain/souvenir"
	"github.com/riskibarqy/homerun-cage/internal/platform/id"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

type SouvenirConfig struct {
	PublicBaseURL string
}

// SouvenirService captures a card for a completed game, attaches it, and
// texts the player a share link.
type SouvenirService struct {
	games    game.Repository
	players  player.Repository
	shows    show.Repository
	renderer souvenir.Renderer
	notifier Notifier
	queue    JobQueue
	slugs    id.Generator
	cfg      SouvenirConfig
	logger   *logging.Logger
	now      func() time.Time
}

func NewSouvenirService(
	games game.Repository,
	players player.Repository,
	shows show.Repository,
	renderer souvenir.Renderer,
	notifier Notifier,
	queue JobQueue,
	slugs id.Generator,
	cfg SouvenirConfig,
	logger *logging.Logger,
) *SouvenirService {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if slugs == nil {
		slugs = id.NewSlugGenerator(0)
	}
	if logger == nil {
		logger = logging.Default()
	}
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	return &SouvenirService{
		games:    games,
		players:  players,
		shows:    shows,
		renderer: renderer,
		notifier: notifier,
		queue:    queue,
		slugs:    slugs,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Capture schedules souvenir processing for gameID.
func (s *SouvenirService) Capture(ctx context.Context, gameID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.SouvenirService.Capture")
	defer span.End()

	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}

	payload := CaptureSouvenirPayload{GameID: gameID}
	if err := s.queue.Enqueue(ctx, JobKindCaptureSouvenir, payload, 0, "souvenir-"+sanitizeDedupSegment(gameID)); err != nil {
		return fmt.Errorf("enqueue souvenir capture: %w", err)
	}
	return nil
}

// ProcessCapture is the worker side of Capture. A game that already carries a
// souvenir is left alone.
func (s *SouvenirService) ProcessCapture(ctx context.Context, payload CaptureSouvenirPayload) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.SouvenirService.ProcessCapture")
	defer span.End()

	gameID := strings.TrimSpace(payload.GameID)
	if gameID == "" {
		return fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}

	g, exists, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return fmt.Errorf("get game: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: game=%s", ErrNotFound, gameID)
	}
	if g.State != game.StateCompleted {
		return fmt.Errorf("%w: game %s is %s, souvenirs need a completed game", ErrInvalidInput, gameID, g.State)
	}
	if g.SouvenirImageRef != "" {
		s.logger.InfoContext(ctx, "souvenir already attached", "game_id", gameID)
		return nil
	}
	if s.renderer == nil {
		return fmt.Errorf("%w: souvenir renderer is not configured", ErrDependencyUnavailable)
	}

	owner, exists, err := s.players.GetByID(ctx, g.PlayerID)
	if err != nil {
		return fmt.Errorf("get player: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: player=%s", ErrNotFound, g.PlayerID)
	}
	sh, err := resolveShow(ctx, s.shows, g.ShowID)
	if err != nil {
		return err
	}

	imageRef, err := s.renderer.Render(ctx, souvenir.RenderRequest{
		GameID:     g.ID,
		PlayerName: owner.FullName(),
		ShowName:   sh.Name,
		Score:      g.Score,
		Distance:   g.Distance,
		Homeruns:   g.Homeruns,
	})
	if err != nil {
		return fmt.Errorf("render souvenir: %w", err)
	}

	slug, err := s.slugs.NewID()
	if err != nil {
		return fmt.Errorf("generate share slug: %w", err)
	}
	if err := s.games.AttachSouvenir(ctx, g.ID, imageRef, slug, s.now().UTC()); err != nil {
		return fmt.Errorf("attach souvenir: %w", err)
	}
	s.logger.InfoContext(ctx, "souvenir attached", "game_id", g.ID, "share_slug", slug)

	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.SendSouvenirMessage(ctx, owner, sh, s.ShareLink(slug)); err != nil {
		return fmt.Errorf("send souvenir message: %w", err)
	}
	return nil
}

// ShareLink is the public URL for a souvenir slug.
func (s *SouvenirService) ShareLink(slug string) string {
	return s.cfg.PublicBaseURL + "/s/" + slug
}
