package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
)

type GameRepository struct {
	mu    sync.RWMutex
	items map[string]game.Game
}

func NewGameRepository() *GameRepository {
	return &GameRepository{items: make(map[string]game.Game)}
}

func (r *GameRepository) Create(_ context.Context, g game.Game) error {
	if err := g.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[g.ID]; exists {
		return errors.Newf("game %s already exists", g.ID)
	}
	if g.IsActive() {
		for _, existing := range r.items {
			if existing.PlayerID == g.PlayerID && existing.IsActive() {
				return errors.Wrapf(game.ErrActiveGameExists, "player=%s game=%s", g.PlayerID, existing.ID)
			}
		}
	}

	r.items[g.ID] = g.Clone()
	return nil
}

func (r *GameRepository) GetByID(_ context.Context, id string) (game.Game, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return game.Game{}, false, nil
	}
	return item.Clone(), true, nil
}

func (r *GameRepository) ListByState(_ context.Context, states ...game.State) ([]game.Game, error) {
	want := make(map[game.State]struct{}, len(states))
	for _, s := range states {
		want[s] = struct{}{}
	}

	r.mu.RLock()
	out := make([]game.Game, 0, len(r.items))
	for _, item := range r.items {
		if len(want) > 0 {
			if _, ok := want[item.State]; !ok {
				continue
			}
		}
		out = append(out, item.Clone())
	}
	r.mu.RUnlock()

	sortByCreation(out)
	return out, nil
}

func (r *GameRepository) FindActiveByPlayer(_ context.Context, playerID string) (game.Game, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.PlayerID == playerID && item.IsActive() {
			return item.Clone(), true, nil
		}
	}
	return game.Game{}, false, nil
}

func (r *GameRepository) ListCompletedByPlayers(_ context.Context, playerIDs []string) ([]game.Game, error) {
	want := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		want[id] = struct{}{}
	}

	r.mu.RLock()
	out := make([]game.Game, 0)
	for _, item := range r.items {
		if item.State != game.StateCompleted {
			continue
		}
		if _, ok := want[item.PlayerID]; ok {
			out = append(out, item.Clone())
		}
	}
	r.mu.RUnlock()

	sortByCreation(out)
	return out, nil
}

// CommitTransition swaps in next only while the stored state still equals
// expected.
func (r *GameRepository) CommitTransition(_ context.Context, next game.Game, expected game.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[next.ID]
	if !ok {
		return errors.Newf("game %s not found", next.ID)
	}
	if current.State != expected {
		return errors.Wrapf(game.ErrConcurrentModification, "game=%s expected=%s actual=%s", next.ID, expected, current.State)
	}

	r.items[next.ID] = next.Clone()
	return nil
}

func (r *GameRepository) AttachSouvenir(_ context.Context, id, imageRef, shareSlug string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]
	if !ok {
		return errors.Newf("game %s not found", id)
	}
	current.SouvenirImageRef = imageRef
	current.SouvenirShareSlug = shareSlug
	current.UpdatedAt = at
	r.items[id] = current
	return nil
}

func sortByCreation(items []game.Game) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}
