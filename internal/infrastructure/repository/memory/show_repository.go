package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/riskibarqy/homerun-cage/internal/domain/show"
)

type ShowRepository struct {
	mu    sync.RWMutex
	items map[string]show.Show
}

func NewShowRepository(shows ...show.Show) *ShowRepository {
	items := make(map[string]show.Show, len(shows))
	for _, s := range shows {
		items[s.ID] = s
	}
	return &ShowRepository{items: items}
}

func (r *ShowRepository) Create(_ context.Context, s show.Show) error {
	if err := s.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[s.ID]; exists {
		return errors.Newf("show %s already exists", s.ID)
	}
	r.items[s.ID] = s
	return nil
}

func (r *ShowRepository) GetByID(_ context.Context, id string) (show.Show, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[id]
	return s, ok, nil
}

func (r *ShowRepository) Latest(ctx context.Context) (show.Show, bool, error) {
	items, _ := r.List(ctx)
	if len(items) == 0 {
		return show.Show{}, false, nil
	}
	return items[0], true, nil
}

// List returns shows newest first.
func (r *ShowRepository) List(_ context.Context) ([]show.Show, error) {
	r.mu.RLock()
	out := make([]show.Show, 0, len(r.items))
	for _, s := range r.items {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
