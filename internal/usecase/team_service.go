package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/player"
	"github.com/riskibarqy/homerun-cage/internal/domain/team"
	"github.com/riskibarqy/homerun-cage/internal/platform/cache"
)

const teamScoresCachePrefix = "team-daily-scores:"

type TeamSummary struct {
	Team    team.Team
	Members int
}

type TeamScores struct {
	Team  team.Team
	Daily []team.DailyScore
	Total int
}

type TeamService struct {
	teams   team.Repository
	players player.Repository
	games   game.Repository
	cache   *cache.Store
	workers int
}

func NewTeamService(
	teams team.Repository,
	players player.Repository,
	games game.Repository,
	store *cache.Store,
) *TeamService {
	return &TeamService{
		teams:   teams,
		players: players,
		games:   games,
		cache:   store,
		workers: 4,
	}
}

func (s *TeamService) List(ctx context.Context) ([]TeamSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.List")
	defer span.End()

	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	counts, err := s.players.CountByTeam(ctx)
	if err != nil {
		return nil, fmt.Errorf("count team members: %w", err)
	}

	out := make([]TeamSummary, 0, len(teams))
	for _, t := range teams {
		out = append(out, TeamSummary{Team: t, Members: counts[t.ID]})
	}
	return out, nil
}

// DailyScores sums the completed games of a team's members per day. Results
// are cached for the store's TTL.
func (s *TeamService) DailyScores(ctx context.Context, teamID string) ([]team.DailyScore, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.DailyScores")
	defer span.End()

	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}

	_, exists, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: team=%s", ErrNotFound, teamID)
	}

	return cache.Load(ctx, s.cache, teamScoresCachePrefix+teamID, func(ctx context.Context) ([]team.DailyScore, error) {
		return s.loadDailyScores(ctx, teamID)
	})
}

// Leaderboard computes every team's scores concurrently, best total first.
func (s *TeamService) Leaderboard(ctx context.Context) ([]TeamScores, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.Leaderboard")
	defer span.End()

	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	if len(teams) == 0 {
		return []TeamScores{}, nil
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu       sync.Mutex
		firstErr error
		out      = make([]TeamScores, 0, len(teams))
		workers  sync.WaitGroup
	)
	for _, t := range teams {
		t := t
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			daily, err := s.DailyScores(ctx, t.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			row := TeamScores{Team: t, Daily: daily}
			for _, d := range daily {
				row.Total += d.Score
			}
			out = append(out, row)
		}); err != nil {
			workers.Done()
			workers.Wait()
			return nil, fmt.Errorf("submit team scores task: %w", err)
		}
	}
	workers.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Team.Name < out[j].Team.Name
	})
	return out, nil
}

// InvalidateScores drops cached aggregates after a team's totals change.
func (s *TeamService) InvalidateScores(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cache.DeletePrefix(ctx, teamScoresCachePrefix)
}

func (s *TeamService) loadDailyScores(ctx context.Context, teamID string) ([]team.DailyScore, error) {
	members, err := s.players.List(ctx, player.Filter{TeamID: teamID})
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	if len(members) == 0 {
		return []team.DailyScore{}, nil
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	completed, err := s.games.ListCompletedByPlayers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list completed games: %w", err)
	}

	entries := make([]team.ScoreEntry, 0, len(completed))
	for _, g := range completed {
		at, ok := g.EnteredAt(game.StateCompleted)
		if !ok {
			at = g.UpdatedAt
		}
		entries = append(entries, team.ScoreEntry{
			CompletedAt: at,
			Score:       g.Score,
			Distance:    g.Distance,
			Homeruns:    g.Homeruns,
		})
	}
	return team.AggregateDaily(entries), nil
}
