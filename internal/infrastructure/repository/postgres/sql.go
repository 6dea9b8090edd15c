package postgres

import (
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
)

const uniqueViolationCode = "23505"

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation reports whether err is a unique violation on constraint.
// An empty constraint matches any unique violation.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != uniqueViolationCode {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func nullStringValue(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}

func utcPtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := v.UTC()
	return &t
}

func stringArgs(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
