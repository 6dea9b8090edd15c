package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/player"
	"github.com/riskibarqy/homerun-cage/internal/domain/show"
	"github.com/riskibarqy/homerun-cage/internal/platform/id"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

type CreateGameInput struct {
	PlayerID string
	ShowID   string
}

type GameService struct {
	games   game.Repository
	players player.Repository
	shows   show.Repository
	ids     id.Generator
	logger  *logging.Logger
	now     func() time.Time
}

func NewGameService(
	games game.Repository,
	players player.Repository,
	shows show.Repository,
	ids id.Generator,
	logger *logging.Logger,
) *GameService {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GameService{
		games:   games,
		players: players,
		shows:   shows,
		ids:     ids,
		logger:  logger,
		now:     time.Now,
	}
}

// Create opens a new game for a returning player. It fails with ErrConflict
// while the player still has a non-terminal game.
func (s *GameService) Create(ctx context.Context, input CreateGameInput) (game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameService.Create")
	defer span.End()

	playerID := strings.TrimSpace(input.PlayerID)
	if playerID == "" {
		return game.Game{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}

	p, exists, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return game.Game{}, fmt.Errorf("get player: %w", err)
	}
	if !exists {
		return game.Game{}, fmt.Errorf("%w: player=%s", ErrNotFound, playerID)
	}

	active, hasActive, err := s.games.FindActiveByPlayer(ctx, p.ID)
	if err != nil {
		return game.Game{}, fmt.Errorf("find active game: %w", err)
	}
	if hasActive {
		return game.Game{}, fmt.Errorf("%w: player=%s has active game=%s in state %s", ErrConflict, p.ID, active.ID, active.State)
	}

	sh, err := resolveShow(ctx, s.shows, strings.TrimSpace(input.ShowID))
	if err != nil {
		return game.Game{}, err
	}

	gameID, err := s.ids.NewID()
	if err != nil {
		return game.Game{}, fmt.Errorf("generate game id: %w", err)
	}
	now := s.now().UTC()
	g := game.New(gameID, p.ID, sh.ID, now)
	if err := s.games.Create(ctx, g); err != nil {
		if errors.Is(err, game.ErrActiveGameExists) {
			return game.Game{}, fmt.Errorf("%w: player=%s already has an active game", ErrConflict, p.ID)
		}
		return game.Game{}, fmt.Errorf("create game: %w", err)
	}
	if err := s.players.SetActiveGame(ctx, p.ID, g.ID, now); err != nil {
		return game.Game{}, fmt.Errorf("set active game: %w", err)
	}

	s.logger.InfoContext(ctx, "game created", "game_id", g.ID, "player_id", p.ID, "show_id", sh.ID)
	return g, nil
}

func (s *GameService) Get(ctx context.Context, gameID string) (game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameService.Get")
	defer span.End()

	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return game.Game{}, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}

	g, exists, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return game.Game{}, fmt.Errorf("get game: %w", err)
	}
	if !exists {
		return game.Game{}, fmt.Errorf("%w: game=%s", ErrNotFound, gameID)
	}
	return g, nil
}

// List returns games in any of states, oldest first. No states lists all.
func (s *GameService) List(ctx context.Context, states ...game.State) ([]game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameService.List")
	defer span.End()

	for _, st := range states {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: invalid state %q", ErrInvalidInput, st)
		}
	}

	items, err := s.games.ListByState(ctx, states...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return items, nil
}
