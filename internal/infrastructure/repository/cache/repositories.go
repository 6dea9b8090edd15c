package cache

import (
	"context"

	"github.com/riskibarqy/homerun-cage/internal/domain/show"
	"github.com/riskibarqy/homerun-cage/internal/domain/team"
	basecache "github.com/riskibarqy/homerun-cage/internal/platform/cache"
)

const (
	showKeyPrefix = "show:"
	teamKeyPrefix = "team:"
)

// ShowRepository serves show reads from the store. Shows change rarely and
// every recall or souvenir SMS looks one up.
type ShowRepository struct {
	next  show.Repository
	cache *basecache.Store
}

func NewShowRepository(next show.Repository, cache *basecache.Store) *ShowRepository {
	return &ShowRepository{next: next, cache: cache}
}

func (r *ShowRepository) Create(ctx context.Context, s show.Show) error {
	if err := r.next.Create(ctx, s); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, showKeyPrefix)
	return nil
}

func (r *ShowRepository) GetByID(ctx context.Context, id string) (show.Show, bool, error) {
	cached, err := basecache.Load(ctx, r.cache, showKeyPrefix+"id:"+id, func(ctx context.Context) (cachedShow, error) {
		item, exists, err := r.next.GetByID(ctx, id)
		return cachedShow{value: item, exists: exists}, err
	})
	if err != nil {
		return show.Show{}, false, err
	}
	return cached.value, cached.exists, nil
}

func (r *ShowRepository) Latest(ctx context.Context) (show.Show, bool, error) {
	cached, err := basecache.Load(ctx, r.cache, showKeyPrefix+"latest", func(ctx context.Context) (cachedShow, error) {
		item, exists, err := r.next.Latest(ctx)
		return cachedShow{value: item, exists: exists}, err
	})
	if err != nil {
		return show.Show{}, false, err
	}
	return cached.value, cached.exists, nil
}

func (r *ShowRepository) List(ctx context.Context) ([]show.Show, error) {
	items, err := basecache.Load(ctx, r.cache, showKeyPrefix+"list", func(ctx context.Context) ([]show.Show, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]show.Show(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]show.Show(nil), items...), nil
}

type cachedShow struct {
	value  show.Show
	exists bool
}

// TeamRepository serves team reads from the store. Team assignment lists
// every team on each confirm.
type TeamRepository struct {
	next  team.Repository
	cache *basecache.Store
}

func NewTeamRepository(next team.Repository, cache *basecache.Store) *TeamRepository {
	return &TeamRepository{next: next, cache: cache}
}

func (r *TeamRepository) Create(ctx context.Context, t team.Team) error {
	if err := r.next.Create(ctx, t); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, teamKeyPrefix)
	return nil
}

func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	items, err := basecache.Load(ctx, r.cache, teamKeyPrefix+"list", func(ctx context.Context) ([]team.Team, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]team.Team(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]team.Team(nil), items...), nil
}

func (r *TeamRepository) GetByID(ctx context.Context, id string) (team.Team, bool, error) {
	cached, err := basecache.Load(ctx, r.cache, teamKeyPrefix+"id:"+id, func(ctx context.Context) (cachedTeam, error) {
		item, exists, err := r.next.GetByID(ctx, id)
		return cachedTeam{value: item, exists: exists}, err
	})
	if err != nil {
		return team.Team{}, false, err
	}
	return cached.value, cached.exists, nil
}

type cachedTeam struct {
	value  team.Team
	exists bool
}
