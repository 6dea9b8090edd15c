package app

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/riskibarqy/homerun-cage/internal/config"
	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/jobscheduler"
	"github.com/riskibarqy/homerun-cage/internal/domain/player"
	"github.com/riskibarqy/homerun-cage/internal/domain/recall"
	"github.com/riskibarqy/homerun-cage/internal/domain/show"
	"github.com/riskibarqy/homerun-cage/internal/domain/team"
	repocache "github.com/riskibarqy/homerun-cage/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/homerun-cage/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/homerun-cage/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/homerun-cage/internal/platform/cache"
)

type stores struct {
	games      game.Repository
	players    player.Repository
	teams      team.Repository
	shows      show.Repository
	dispatches jobscheduler.Repository
}

func (a *App) openStores(ctx context.Context) (stores, error) {
	if a.cfg.StoreDriver != config.StorePostgres {
		a.logger.Info("using in-memory store")
		return stores{
			games:      memory.NewGameRepository(),
			players:    memory.NewPlayerRepository(),
			teams:      memory.NewTeamRepository(),
			shows:      memory.NewShowRepository(),
			dispatches: memory.NewJobDispatchRepository(),
		}, nil
	}

	db, target, err := openPostgres(ctx, a.cfg)
	if err != nil {
		return stores{}, err
	}
	a.db = db
	a.logger.Info("using postgres store", "database", target.name)

	lookups := cache.NewStore(a.cfg.CacheTTL)
	return stores{
		games:      postgres.NewGameRepository(db),
		players:    postgres.NewPlayerRepository(db),
		teams:      repocache.NewTeamRepository(postgres.NewTeamRepository(db), lookups),
		shows:      repocache.NewShowRepository(postgres.NewShowRepository(db), lookups),
		dispatches: postgres.NewJobDispatchRepository(db),
	}, nil
}

func loadSeed(cfg config.Config) (memory.Seed, error) {
	seed, err := memory.LoadSeedFile(cfg.SeedFile)
	if err != nil {
		return memory.Seed{}, errors.Wrap(err, "load seed")
	}
	return seed, nil
}

func recallSettingsStore(cfg config.Config) *recall.SettingsStore {
	return recall.NewSettingsStore(cfg.RecallSettings())
}
