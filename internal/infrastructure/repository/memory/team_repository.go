package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/riskibarqy/homerun-cage/internal/domain/team"
)

type TeamRepository struct {
	mu    sync.RWMutex
	items map[string]team.Team
}

func NewTeamRepository(teams ...team.Team) *TeamRepository {
	items := make(map[string]team.Team, len(teams))
	for _, t := range teams {
		items[t.ID] = t
	}
	return &TeamRepository{items: items}
}

func (r *TeamRepository) Create(_ context.Context, t team.Team) error {
	if err := t.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[t.ID]; exists {
		return errors.Newf("team %s already exists", t.ID)
	}
	for _, existing := range r.items {
		if strings.EqualFold(existing.Name, t.Name) {
			return errors.Newf("team name %q already taken", t.Name)
		}
	}
	r.items[t.ID] = t
	return nil
}

// List returns teams in creation order.
func (r *TeamRepository) List(_ context.Context) ([]team.Team, error) {
	r.mu.RLock()
	out := make([]team.Team, 0, len(r.items))
	for _, t := range r.items {
		out = append(out, t)
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

func (r *TeamRepository) GetByID(_ context.Context, id string) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.items[id]
	return t, ok, nil
}
