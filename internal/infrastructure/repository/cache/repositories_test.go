package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/homerun-cage/internal/domain/show"
	"github.com/riskibarqy/homerun-cage/internal/domain/team"
	"github.com/riskibarqy/homerun-cage/internal/infrastructure/repository/memory"
	basecache "github.com/riskibarqy/homerun-cage/internal/platform/cache"
)

type countingShows struct {
	show.Repository
	latest int
	byID   int
}

func (c *countingShows) Latest(ctx context.Context) (show.Show, bool, error) {
	c.latest++
	return c.Repository.Latest(ctx)
}

func (c *countingShows) GetByID(ctx context.Context, id string) (show.Show, bool, error) {
	c.byID++
	return c.Repository.GetByID(ctx, id)
}

type countingTeams struct {
	team.Repository
	list int
}

func (c *countingTeams) List(ctx context.Context) ([]team.Team, error) {
	c.list++
	return c.Repository.List(ctx)
}

func TestShowRepository_CachesLatestUntilCreate(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 7, 4, 19, 0, 0, 0, time.UTC)
	inner := &countingShows{Repository: memory.NewShowRepository(show.Show{ID: "show-1", Name: "Opening Night", Date: day})}
	repo := NewShowRepository(inner, basecache.NewStore(time.Minute))

	for i := 0; i < 3; i++ {
		got, ok, err := repo.Latest(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "show-1", got.ID)
	}
	require.Equal(t, 1, inner.latest)

	require.NoError(t, repo.Create(ctx, show.Show{ID: "show-2", Name: "Finals", Date: day.AddDate(0, 0, 1)}))

	got, ok, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "show-2", got.ID)
	require.Equal(t, 2, inner.latest)
}

func TestShowRepository_CachesMisses(t *testing.T) {
	ctx := context.Background()
	inner := &countingShows{Repository: memory.NewShowRepository()}
	repo := NewShowRepository(inner, basecache.NewStore(time.Minute))

	for i := 0; i < 2; i++ {
		_, ok, err := repo.GetByID(ctx, "missing")
		require.NoError(t, err)
		require.False(t, ok)
	}
	require.Equal(t, 1, inner.byID)
}

func TestTeamRepository_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	inner := &countingTeams{Repository: memory.NewTeamRepository(
		team.Team{ID: "team-red", Name: "Red"},
		team.Team{ID: "team-blue", Name: "Blue"},
	)}
	repo := NewTeamRepository(inner, basecache.NewStore(time.Minute))

	first, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	first[0].Name = "mutated"

	second, err := repo.List(ctx)
	require.NoError(t, err)
	require.NotEqual(t, "mutated", second[0].Name)
	require.Equal(t, 1, inner.list)

	require.NoError(t, repo.Create(ctx, team.Team{ID: "team-gold", Name: "Gold"}))
	third, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, third, 3)
	require.Equal(t, 2, inner.list)
}
