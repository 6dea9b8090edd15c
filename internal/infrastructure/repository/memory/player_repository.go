package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/riskibarqy/homerun-cage/internal/domain/player"
)

type PlayerRepository struct {
	mu    sync.RWMutex
	items map[string]player.Player
}

func NewPlayerRepository(players ...player.Player) *PlayerRepository {
	items := make(map[string]player.Player, len(players))
	for _, p := range players {
		items[p.ID] = p
	}
	return &PlayerRepository{items: items}
}

func (r *PlayerRepository) Create(_ context.Context, p player.Player) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[p.ID]; exists {
		return errors.Newf("player %s already exists", p.ID)
	}
	r.items[p.ID] = p
	return nil
}

func (r *PlayerRepository) GetByID(_ context.Context, id string) (player.Player, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	return p, ok, nil
}

func (r *PlayerRepository) List(_ context.Context, filter player.Filter) ([]player.Player, error) {
	r.mu.RLock()
	out := make([]player.Player, 0, len(r.items))
	for _, p := range r.items {
		if filter.Match(p) {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *PlayerRepository) SetActiveGame(_ context.Context, playerID, gameID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[playerID]
	if !ok {
		return errors.Newf("player %s not found", playerID)
	}
	p.ActiveGameID = gameID
	p.UpdatedAt = at
	r.items[playerID] = p
	return nil
}

func (r *PlayerRepository) AssignTeamIfUnset(_ context.Context, playerID, teamID string, at time.Time) (player.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[playerID]
	if !ok {
		return player.Player{}, errors.Newf("player %s not found", playerID)
	}
	if p.TeamID != "" {
		return p, nil
	}
	p.TeamID = teamID
	p.UpdatedAt = at
	r.items[playerID] = p
	return p, nil
}

func (r *PlayerRepository) CountByTeam(_ context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int)
	for _, p := range r.items {
		if p.TeamID != "" {
			out[p.TeamID]++
		}
	}
	return out, nil
}
