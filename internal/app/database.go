package app

import (
	"context"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/homerun-cage/internal/config"
)

const maxTracedQueryLength = 512

// dbTarget is a connection string prepared for lib/pq plus the database name
// reported on spans.
type dbTarget struct {
	dsn  string
	name string
}

func parseDBTarget(raw string, disablePreparedBinary bool) dbTarget {
	raw = strings.TrimSpace(raw)
	target := dbTarget{dsn: raw}

	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil || parsed.Scheme == "" {
		// key=value DSN
		for _, token := range strings.Fields(raw) {
			if name, ok := strings.CutPrefix(token, "dbname="); ok {
				target.name = strings.Trim(name, `"'`)
			}
		}
		return target
	}

	target.name = strings.TrimPrefix(parsed.Path, "/")
	if disablePreparedBinary {
		query := parsed.Query()
		if query.Get("disable_prepared_binary_result") == "" {
			query.Set("disable_prepared_binary_result", "yes")
			parsed.RawQuery = query.Encode()
			target.dsn = parsed.String()
		}
	}
	return target
}

// traceQuery collapses whitespace so multi-line statements read well in span
// attributes.
func traceQuery(query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}
	return normalized[:maxTracedQueryLength] + "..."
}

func openPostgres(ctx context.Context, cfg config.Config) (*sqlx.DB, dbTarget, error) {
	target := parseDBTarget(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Open("postgres", target.dsn,
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithDBName(target.name),
		otelsql.WithQueryFormatter(traceQuery),
	)
	if err != nil {
		return nil, target, errors.Wrap(err, "open database")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, target, errors.Wrapf(err, "ping database %q", target.name)
	}
	return db, target, nil
}
