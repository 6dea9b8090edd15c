package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/homerun-cage/internal/domain/show"
	qb "github.com/riskibarqy/homerun-cage/internal/platform/querybuilder"
)

var showColumns = []string{
	"public_id",
	"name",
	"show_date",
	"welcome_message",
	"recall_message",
	"souvenir_message",
}

type showTableModel struct {
	PublicID        string    `db:"public_id"`
	Name            string    `db:"name"`
	Date            time.Time `db:"show_date"`
	WelcomeMessage  string    `db:"welcome_message"`
	RecallMessage   string    `db:"recall_message"`
	SouvenirMessage string    `db:"souvenir_message"`
}

func showModelFromDomain(s show.Show) showTableModel {
	return showTableModel{
		PublicID:        s.ID,
		Name:            s.Name,
		Date:            s.Date.UTC(),
		WelcomeMessage:  s.WelcomeMessage,
		RecallMessage:   s.RecallMessage,
		SouvenirMessage: s.SouvenirMessage,
	}
}

func (m showTableModel) toDomain() show.Show {
	return show.Show{
		ID:              m.PublicID,
		Name:            m.Name,
		Date:            m.Date.UTC(),
		WelcomeMessage:  m.WelcomeMessage,
		RecallMessage:   m.RecallMessage,
		SouvenirMessage: m.SouvenirMessage,
	}
}

type ShowRepository struct {
	db *sqlx.DB
}

func NewShowRepository(db *sqlx.DB) *ShowRepository {
	return &ShowRepository{db: db}
}

func (r *ShowRepository) Create(ctx context.Context, s show.Show) error {
	if err := s.Validate(); err != nil {
		return err
	}

	query, args, err := qb.InsertModel("shows", showModelFromDomain(s), "")
	if err != nil {
		return errors.Wrap(err, "build insert show query")
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err, "") {
			return errors.Newf("show %s already exists", s.ID)
		}
		return errors.Wrapf(err, "insert show show_id=%s", s.ID)
	}
	return nil
}

func (r *ShowRepository) GetByID(ctx context.Context, id string) (show.Show, bool, error) {
	query, args, err := qb.Select(showColumns...).From("shows").
		Where(
			qb.Eq("public_id", id),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return show.Show{}, false, errors.Wrap(err, "build select show query")
	}
	return r.getOne(ctx, query, args)
}

func (r *ShowRepository) Latest(ctx context.Context) (show.Show, bool, error) {
	query, args, err := qb.Select(showColumns...).From("shows").
		Where(qb.IsNull("deleted_at")).
		OrderBy("show_date DESC", "public_id").
		Limit(1).
		ToSQL()
	if err != nil {
		return show.Show{}, false, errors.Wrap(err, "build select latest show query")
	}
	return r.getOne(ctx, query, args)
}

// List returns shows newest first.
func (r *ShowRepository) List(ctx context.Context) ([]show.Show, error) {
	query, args, err := qb.Select(showColumns...).From("shows").
		Where(qb.IsNull("deleted_at")).
		OrderBy("show_date DESC", "public_id").
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "build select shows query")
	}

	var rows []showTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select shows")
	}

	out := make([]show.Show, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *ShowRepository) getOne(ctx context.Context, query string, args []any) (show.Show, bool, error) {
	var row showTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return show.Show{}, false, nil
		}
		return show.Show{}, false, errors.Wrap(err, "select show")
	}
	return row.toDomain(), true, nil
}
