package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/player"
	"github.com/riskibarqy/homerun-cage/internal/domain/show"
	"github.com/riskibarqy/homerun-cage/internal/platform/id"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

const (
	PlayerOrderGameUpdated = "game_updated"
	PlayerOrderGameCreated = "game_created"
	PlayerOrderScore       = "score"
	PlayerOrderCreated     = "date_created"
	PlayerOrderUpdated     = "date_updated"
)

type RegisterPlayerInput struct {
	FirstName    string
	LastName     string
	Email        string
	MobileNumber string
	Handedness   string
	SignedWaiver bool
	IsFinalist   bool
	ShowID       string
}

type Registration struct {
	Player player.Player
	Game   game.Game
}

// PlayerDetails is a player with the current game and lifetime score.
type PlayerDetails struct {
	Player     player.Player
	ActiveGame *game.Game
	TotalScore int
}

type ListPlayersInput struct {
	Filter      player.Filter
	State       game.State
	GameCreated *time.Time
	GameUpdated *time.Time
	// OrderBy is one of the PlayerOrder constants, optionally prefixed with
	// "-" for descending order.
	OrderBy string
}

type PlayerService struct {
	players  player.Repository
	games    game.Repository
	shows    show.Repository
	notifier Notifier
	ids      id.Generator
	logger   *logging.Logger
	now      func() time.Time
}

func NewPlayerService(
	players player.Repository,
	games game.Repository,
	shows show.Repository,
	notifier Notifier,
	ids id.Generator,
	logger *logging.Logger,
) *PlayerService {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PlayerService{
		players:  players,
		games:    games,
		shows:    shows,
		notifier: notifier,
		ids:      ids,
		logger:   logger,
		now:      time.Now,
	}
}

// Register creates a player together with their first game and sends the
// welcome text when a mobile number was given.
func (s *PlayerService) Register(ctx context.Context, input RegisterPlayerInput) (Registration, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.Register")
	defer span.End()

	sh, err := resolveShow(ctx, s.shows, strings.TrimSpace(input.ShowID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Registration{}, fmt.Errorf("%w: no show available for registration", ErrInvalidInput)
		}
		return Registration{}, err
	}

	playerID, err := s.ids.NewID()
	if err != nil {
		return Registration{}, fmt.Errorf("generate player id: %w", err)
	}
	gameID, err := s.ids.NewID()
	if err != nil {
		return Registration{}, fmt.Errorf("generate game id: %w", err)
	}

	now := s.now().UTC()
	p := player.Player{
		ID:           playerID,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        strings.TrimSpace(input.Email),
		MobileNumber: strings.TrimSpace(input.MobileNumber),
		Handedness:   player.Handedness(strings.ToLower(strings.TrimSpace(input.Handedness))),
		SignedWaiver: input.SignedWaiver,
		IsFinalist:   input.IsFinalist,
		ActiveGameID: gameID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.Validate(); err != nil {
		return Registration{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.players.Create(ctx, p); err != nil {
		return Registration{}, fmt.Errorf("create player: %w", err)
	}

	g := game.New(gameID, p.ID, sh.ID, now)
	if err := s.games.Create(ctx, g); err != nil {
		if errors.Is(err, game.ErrActiveGameExists) {
			return Registration{}, fmt.Errorf("%w: player=%s already has an active game", ErrConflict, p.ID)
		}
		return Registration{}, fmt.Errorf("create game: %w", err)
	}

	s.logger.InfoContext(ctx, "player registered", "player_id", p.ID, "game_id", g.ID, "show_id", sh.ID)

	if s.notifier != nil && p.HasMobileNumber() {
		if err := s.notifier.SendWelcomeMessage(ctx, p, sh); err != nil {
			s.logger.WarnContext(ctx, "welcome message failed", "player_id", p.ID, "error", err)
		}
	}

	return Registration{Player: p, Game: g}, nil
}

func (s *PlayerService) Get(ctx context.Context, playerID string) (PlayerDetails, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.Get")
	defer span.End()

	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return PlayerDetails{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}

	p, exists, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return PlayerDetails{}, fmt.Errorf("get player: %w", err)
	}
	if !exists {
		return PlayerDetails{}, fmt.Errorf("%w: player=%s", ErrNotFound, playerID)
	}

	scores, err := s.totalScores(ctx, []string{p.ID})
	if err != nil {
		return PlayerDetails{}, err
	}
	return s.details(ctx, p, scores)
}

// List returns players matching input, ordered by their active game's last
// update unless another order is requested.
func (s *PlayerService) List(ctx context.Context, input ListPlayersInput) ([]PlayerDetails, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.List")
	defer span.End()

	if input.State != "" && !input.State.Valid() {
		return nil, fmt.Errorf("%w: invalid state %q", ErrInvalidInput, input.State)
	}
	order, desc, err := parsePlayerOrder(input.OrderBy)
	if err != nil {
		return nil, err
	}

	players, err := s.players.List(ctx, input.Filter)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	scores, err := s.totalScores(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]PlayerDetails, 0, len(players))
	for _, p := range players {
		item, err := s.details(ctx, p, scores)
		if err != nil {
			return nil, err
		}
		if !matchActiveGame(item.ActiveGame, input) {
			continue
		}
		out = append(out, item)
	}

	sortPlayerDetails(out, order, desc)
	return out, nil
}

func (s *PlayerService) details(ctx context.Context, p player.Player, scores map[string]int) (PlayerDetails, error) {
	item := PlayerDetails{Player: p, TotalScore: scores[p.ID]}
	if p.ActiveGameID == "" {
		return item, nil
	}

	g, exists, err := s.games.GetByID(ctx, p.ActiveGameID)
	if err != nil {
		return PlayerDetails{}, fmt.Errorf("get active game: %w", err)
	}
	if exists {
		item.ActiveGame = &g
	}
	return item, nil
}

func (s *PlayerService) totalScores(ctx context.Context, playerIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(playerIDs))
	if len(playerIDs) == 0 {
		return out, nil
	}
	completed, err := s.games.ListCompletedByPlayers(ctx, playerIDs)
	if err != nil {
		return nil, fmt.Errorf("list completed games: %w", err)
	}
	for _, g := range completed {
		out[g.PlayerID] += g.Score
	}
	return out, nil
}

func matchActiveGame(g *game.Game, input ListPlayersInput) bool {
	if input.State == "" && input.GameCreated == nil && input.GameUpdated == nil {
		return true
	}
	if g == nil {
		return false
	}
	if input.State != "" && g.State != input.State {
		return false
	}
	if input.GameCreated != nil && !sameDay(g.CreatedAt, *input.GameCreated) {
		return false
	}
	if input.GameUpdated != nil && !sameDay(g.UpdatedAt, *input.GameUpdated) {
		return false
	}
	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func parsePlayerOrder(raw string) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	desc := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")
	switch raw {
	case "":
		return PlayerOrderGameUpdated, desc, nil
	case PlayerOrderGameUpdated, PlayerOrderGameCreated, PlayerOrderScore, PlayerOrderCreated, PlayerOrderUpdated:
		return raw, desc, nil
	default:
		return "", false, fmt.Errorf("%w: unsupported ordering %q", ErrInvalidInput, raw)
	}
}

func sortPlayerDetails(items []PlayerDetails, order string, desc bool) {
	key := func(item PlayerDetails) (time.Time, int) {
		switch order {
		case PlayerOrderScore:
			return time.Time{}, item.TotalScore
		case PlayerOrderCreated:
			return item.Player.CreatedAt, 0
		case PlayerOrderUpdated:
			return item.Player.UpdatedAt, 0
		case PlayerOrderGameCreated:
			if item.ActiveGame != nil {
				return item.ActiveGame.CreatedAt, 0
			}
		default:
			if item.ActiveGame != nil {
				return item.ActiveGame.UpdatedAt, 0
			}
		}
		return time.Time{}, 0
	}

	sort.SliceStable(items, func(i, j int) bool {
		ti, si := key(items[i])
		tj, sj := key(items[j])
		var less, equal bool
		if order == PlayerOrderScore {
			less, equal = si < sj, si == sj
		} else {
			less, equal = ti.Before(tj), ti.Equal(tj)
		}
		if equal {
			return items[i].Player.ID < items[j].Player.ID
		}
		if desc {
			return !less
		}
		return less
	})
}
