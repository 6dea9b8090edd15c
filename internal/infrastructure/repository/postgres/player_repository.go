package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/homerun-cage/internal/domain/player"
	qb "github.com/riskibarqy/homerun-cage/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) Create(ctx context.Context, p player.Player) error {
	if err := p.Validate(); err != nil {
		return err
	}

	query, args, err := qb.InsertModel("players", playerModelFromDomain(p), "")
	if err != nil {
		return errors.Wrap(err, "build insert player query")
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err, "") {
			return errors.Newf("player %s already exists", p.ID)
		}
		return errors.Wrapf(err, "insert player player_id=%s", p.ID)
	}
	return nil
}

func (r *PlayerRepository) GetByID(ctx context.Context, id string) (player.Player, bool, error) {
	query, args, err := qb.Select(playerColumns...).From("players").
		Where(
			qb.Eq("public_id", id),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return player.Player{}, false, errors.Wrap(err, "build select player query")
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, errors.Wrapf(err, "select player player_id=%s", id)
	}
	return row.toDomain(), true, nil
}

func (r *PlayerRepository) List(ctx context.Context, filter player.Filter) ([]player.Player, error) {
	conditions := []qb.Condition{qb.IsNull("deleted_at")}
	if filter.TeamID != "" {
		conditions = append(conditions, qb.Eq("team_public_id", filter.TeamID))
	}
	if filter.IsFinalist != nil {
		conditions = append(conditions, qb.Eq("is_finalist", *filter.IsFinalist))
	}
	if filter.SignedWaiver != nil {
		conditions = append(conditions, qb.Eq("signed_waiver", *filter.SignedWaiver))
	}
	if filter.Handedness != "" {
		conditions = append(conditions, qb.Eq("handedness", string(filter.Handedness)))
	}

	query, args, err := qb.Select(playerColumns...).From("players").
		Where(conditions...).
		OrderBy("created_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "build select players query")
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select players")
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *PlayerRepository) SetActiveGame(ctx context.Context, playerID, gameID string, at time.Time) error {
	query, args, err := qb.Update("players").
		Set("active_game_public_id", nullString(gameID)).
		Set("updated_at", at.UTC()).
		Where(
			qb.Eq("public_id", playerID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return errors.Wrap(err, "build set active game query")
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "set active game player_id=%s", playerID)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return errors.Newf("player %s not found", playerID)
	}
	return nil
}

// AssignTeamIfUnset only writes when team_public_id is still NULL, so a
// player racing through two confirms keeps the first team.
func (r *PlayerRepository) AssignTeamIfUnset(ctx context.Context, playerID, teamID string, at time.Time) (player.Player, error) {
	query, args, err := qb.Update("players").
		Set("team_public_id", teamID).
		Set("updated_at", at.UTC()).
		Where(
			qb.Eq("public_id", playerID),
			qb.IsNull("team_public_id"),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return player.Player{}, errors.Wrap(err, "build assign team query")
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return player.Player{}, errors.Wrapf(err, "assign team player_id=%s team_id=%s", playerID, teamID)
	}

	p, ok, err := r.GetByID(ctx, playerID)
	if err != nil {
		return player.Player{}, err
	}
	if !ok {
		return player.Player{}, errors.Newf("player %s not found", playerID)
	}
	return p, nil
}

func (r *PlayerRepository) CountByTeam(ctx context.Context) (map[string]int, error) {
	query, args, err := qb.Select("team_public_id", "COUNT(*) AS members").From("players").
		Where(
			qb.NotNull("team_public_id"),
			qb.IsNull("deleted_at"),
		).
		GroupBy("team_public_id").
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "build count players by team query")
	}

	var rows []teamMemberCountRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "count players by team")
	}

	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.TeamID] = row.Members
	}
	return out, nil
}
