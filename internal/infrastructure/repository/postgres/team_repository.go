package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/homerun-cage/internal/domain/team"
	qb "github.com/riskibarqy/homerun-cage/internal/platform/querybuilder"
)

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Create(ctx context.Context, t team.Team) error {
	if err := t.Validate(); err != nil {
		return err
	}
	createdAt := t.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query, args, err := qb.InsertModel("teams", teamTableModel{
		PublicID:  t.ID,
		Name:      t.Name,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, "")
	if err != nil {
		return errors.Wrap(err, "build insert team query")
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err, teamNameConstraint) {
			return errors.Newf("team name %q already taken", t.Name)
		}
		if isUniqueViolation(err, "") {
			return errors.Newf("team %s already exists", t.ID)
		}
		return errors.Wrapf(err, "insert team team_id=%s", t.ID)
	}
	return nil
}

// List returns teams in creation order.
func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	query, args, err := qb.Select(teamColumns...).From("teams").
		Where(qb.IsNull("deleted_at")).
		OrderBy("created_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "build select teams query")
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select teams")
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *TeamRepository) GetByID(ctx context.Context, id string) (team.Team, bool, error) {
	query, args, err := qb.Select(teamColumns...).From("teams").
		Where(
			qb.Eq("public_id", id),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return team.Team{}, false, errors.Wrap(err, "build select team query")
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, errors.Wrapf(err, "select team team_id=%s", id)
	}
	return row.toDomain(), true, nil
}
