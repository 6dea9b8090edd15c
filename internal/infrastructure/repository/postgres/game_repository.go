package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	qb "github.com/riskibarqy/homerun-cage/internal/platform/querybuilder"
)

type GameRepository struct {
	db *sqlx.DB
}

func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

// Create inserts g. The partial unique index on active games turns a second
// active game for the same player into game.ErrActiveGameExists.
func (r *GameRepository) Create(ctx context.Context, g game.Game) error {
	if err := g.Validate(); err != nil {
		return err
	}

	query, args, err := qb.InsertModel("games", gameModelFromDomain(g), "")
	if err != nil {
		return errors.Wrap(err, "build insert game query")
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err, gameActivePlayerConstraint) {
			return errors.Wrapf(game.ErrActiveGameExists, "player=%s", g.PlayerID)
		}
		return errors.Wrapf(err, "insert game game_id=%s", g.ID)
	}
	return nil
}

func (r *GameRepository) GetByID(ctx context.Context, id string) (game.Game, bool, error) {
	query, args, err := qb.Select(gameColumns...).From("games").
		Where(qb.Eq("public_id", id)).
		Limit(1).
		ToSQL()
	if err != nil {
		return game.Game{}, false, errors.Wrap(err, "build select game query")
	}

	var row gameTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.Game{}, false, nil
		}
		return game.Game{}, false, errors.Wrapf(err, "select game game_id=%s", id)
	}
	return row.toDomain(), true, nil
}

func (r *GameRepository) ListByState(ctx context.Context, states ...game.State) ([]game.Game, error) {
	builder := qb.Select(gameColumns...).From("games")
	if len(states) > 0 {
		values := make([]any, 0, len(states))
		for _, s := range states {
			values = append(values, string(s))
		}
		builder = builder.Where(qb.In("state", values))
	}
	query, args, err := builder.OrderBy("created_at", "public_id").ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "build select games by state query")
	}

	return r.selectGames(ctx, query, args)
}

func (r *GameRepository) FindActiveByPlayer(ctx context.Context, playerID string) (game.Game, bool, error) {
	query, args, err := qb.Select(gameColumns...).From("games").
		Where(
			qb.Eq("player_public_id", playerID),
			qb.NotIn("state", []any{string(game.StateCompleted), string(game.StateCancelled)}),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return game.Game{}, false, errors.Wrap(err, "build select active game query")
	}

	var row gameTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.Game{}, false, nil
		}
		return game.Game{}, false, errors.Wrapf(err, "select active game player_id=%s", playerID)
	}
	return row.toDomain(), true, nil
}

func (r *GameRepository) ListCompletedByPlayers(ctx context.Context, playerIDs []string) ([]game.Game, error) {
	if len(playerIDs) == 0 {
		return []game.Game{}, nil
	}

	query, args, err := qb.Select(gameColumns...).From("games").
		Where(
			qb.In("player_public_id", stringArgs(playerIDs)),
			qb.Eq("state", string(game.StateCompleted)),
		).
		OrderBy("created_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "build select completed games query")
	}

	return r.selectGames(ctx, query, args)
}

// CommitTransition writes next with a single conditional update keyed on the
// expected state. Zero affected rows means another writer got there first.
func (r *GameRepository) CommitTransition(ctx context.Context, next game.Game, expected game.State) error {
	m := gameModelFromDomain(next)
	query, args, err := qb.Update("games").
		Set("state", m.State).
		Set("distance", m.Distance).
		Set("homeruns", m.Homeruns).
		Set("score", m.Score).
		Set("date_queued", m.DateQueued).
		Set("date_recalled", m.DateRecalled).
		Set("date_confirmed", m.DateConfirmed).
		Set("date_playing", m.DatePlaying).
		Set("date_completed", m.DateCompleted).
		Set("date_cancelled", m.DateCancelled).
		Set("updated_at", m.UpdatedAt).
		Where(
			qb.Eq("public_id", next.ID),
			qb.Eq("state", string(expected)),
		).
		ToSQL()
	if err != nil {
		return errors.Wrap(err, "build commit transition query")
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "commit transition game_id=%s", next.ID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "read commit transition result")
	}
	if affected == 0 {
		return errors.Wrapf(game.ErrConcurrentModification, "game=%s expected=%s", next.ID, expected)
	}
	return nil
}

func (r *GameRepository) AttachSouvenir(ctx context.Context, id, imageRef, shareSlug string, at time.Time) error {
	query, args, err := qb.Update("games").
		Set("souvenir_image_ref", imageRef).
		Set("souvenir_share_slug", shareSlug).
		Set("updated_at", at.UTC()).
		Where(qb.Eq("public_id", id)).
		ToSQL()
	if err != nil {
		return errors.Wrap(err, "build attach souvenir query")
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "attach souvenir game_id=%s", id)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return errors.Newf("game %s not found", id)
	}
	return nil
}

func (r *GameRepository) selectGames(ctx context.Context, query string, args []any) ([]game.Game, error) {
	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select games")
	}

	out := make([]game.Game, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
