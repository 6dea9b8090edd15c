package querybuilder

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSelect_ActiveGameLookup(t *testing.T) {
	query, args, err := Select("public_id", "state").
		From("games").
		Where(Eq("player_public_id", "p1"), NotIn("state", []any{"completed", "cancelled"})).
		OrderBy("created_at", "public_id").
		Limit(1).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	want := "SELECT public_id, state FROM games WHERE player_public_id = $1 AND state NOT IN ($2, $3) ORDER BY created_at, public_id LIMIT 1"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if diff := cmp.Diff([]any{"p1", "completed", "cancelled"}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect_EmptyListsAndGrouping(t *testing.T) {
	query, args, err := Select("team_public_id", "COUNT(*) AS members").
		From("players").
		Where(In("public_id", nil), NotIn("state", nil), NotNull("team_public_id"), IsNull("deleted_at")).
		GroupBy("team_public_id").
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	want := "SELECT team_public_id, COUNT(*) AS members FROM players WHERE 1=0 AND 1=1 AND team_public_id IS NOT NULL AND deleted_at IS NULL GROUP BY team_public_id"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 0 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelect_RequiresColumnsAndTable(t *testing.T) {
	if _, _, err := Select().From("games").ToSQL(); err == nil {
		t.Fatalf("expected error without columns")
	}
	if _, _, err := Select("id").ToSQL(); err == nil {
		t.Fatalf("expected error without table")
	}
}

func TestUpdate_CommitTransition(t *testing.T) {
	query, args, err := Update("games").
		Set("state", "recalled").
		SetExpr("date_recalled", "COALESCE(date_recalled, ?)", "t0").
		Where(Eq("public_id", "g1"), Eq("state", "queued"), Expr("updated_at <= ?", "t1")).
		Suffix("RETURNING public_id").
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	want := "UPDATE games SET state = $1, date_recalled = COALESCE(date_recalled, $2) WHERE public_id = $3 AND state = $4 AND updated_at <= $5 RETURNING public_id"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if diff := cmp.Diff([]any{"recalled", "t0", "g1", "queued", "t1"}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}

	if _, _, err := Update("games").ToSQL(); err == nil {
		t.Fatalf("expected error without sets")
	}
}

type gameRow struct {
	ID      string `db:"public_id"`
	State   string `db:"state"`
	Score   int    `db:"score,omitempty"`
	ignored string
	Skip    string `db:"-"`
}

func TestInsertModel(t *testing.T) {
	for i := 0; i < 2; i++ {
		query, args, err := InsertModel("games", &gameRow{ID: "g1", State: "new", Score: 7, ignored: "x"}, "ON CONFLICT DO NOTHING")
		if err != nil {
			t.Fatalf("build insert model: %v", err)
		}

		want := "INSERT INTO games (public_id, state, score) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING"
		if query != want {
			t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
		}
		if diff := cmp.Diff([]any{"g1", "new", 7}, args); diff != "" {
			t.Fatalf("args mismatch (-want +got):\n%s", diff)
		}
	}

	if _, _, err := InsertModel("games", (*gameRow)(nil), ""); err == nil {
		t.Fatalf("expected nil model error")
	}
	if _, _, err := InsertModel("games", struct{ name string }{}, ""); err == nil {
		t.Fatalf("expected error for model without columns")
	}
}
