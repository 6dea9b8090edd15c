// Package querybuilder renders the small set of Postgres statements the
// repositories need with numbered placeholders.
package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// binder collects arguments and hands out the matching $n placeholders.
type binder struct {
	args []any
}

func (b *binder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// expand replaces each ? in expr with the next bound value.
func (b *binder) expand(expr string, values []any) string {
	if len(values) == 0 {
		return expr
	}
	var out strings.Builder
	next := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] == '?' && next < len(values) {
			out.WriteString(b.bind(values[next]))
			next++
			continue
		}
		out.WriteByte(expr[i])
	}
	return out.String()
}

// Condition renders one AND-ed predicate.
type Condition func(b *binder) string

func Eq(column string, value any) Condition {
	return func(b *binder) string {
		return column + " = " + b.bind(value)
	}
}

// In renders column IN (...). An empty list matches nothing.
func In(column string, values []any) Condition {
	return listCondition(column, "IN", "1=0", values)
}

// NotIn renders column NOT IN (...). An empty list matches everything.
func NotIn(column string, values []any) Condition {
	return listCondition(column, "NOT IN", "1=1", values)
}

func listCondition(column, op, empty string, values []any) Condition {
	return func(b *binder) string {
		if len(values) == 0 {
			return empty
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			placeholders[i] = b.bind(v)
		}
		return column + " " + op + " (" + strings.Join(placeholders, ", ") + ")"
	}
}

func IsNull(column string) Condition {
	return func(*binder) string { return column + " IS NULL" }
}

func NotNull(column string) Condition {
	return func(*binder) string { return column + " IS NOT NULL" }
}

// Expr is a raw predicate whose ? markers are bound to args in order.
func Expr(expr string, args ...any) Condition {
	return func(b *binder) string { return b.expand(expr, args) }
}

func writeWhere(buf *strings.Builder, b *binder, conditions []Condition) {
	for i, c := range conditions {
		if i == 0 {
			buf.WriteString(" WHERE ")
		} else {
			buf.WriteString(" AND ")
		}
		buf.WriteString(c(b))
	}
}

type SelectBuilder struct {
	columns []string
	table   string
	where   []Condition
	groupBy []string
	orderBy []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (s *SelectBuilder) From(table string) *SelectBuilder {
	s.table = table
	return s
}

func (s *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	s.where = append(s.where, conditions...)
	return s
}

func (s *SelectBuilder) GroupBy(columns ...string) *SelectBuilder {
	s.groupBy = append(s.groupBy, columns...)
	return s
}

func (s *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	s.orderBy = append(s.orderBy, parts...)
	return s
}

func (s *SelectBuilder) Limit(limit int) *SelectBuilder {
	s.limit = limit
	return s
}

func (s *SelectBuilder) ToSQL() (string, []any, error) {
	if len(s.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(s.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	var (
		buf strings.Builder
		b   binder
	)
	buf.WriteString("SELECT " + strings.Join(s.columns, ", ") + " FROM " + s.table)
	writeWhere(&buf, &b, s.where)
	if len(s.groupBy) > 0 {
		buf.WriteString(" GROUP BY " + strings.Join(s.groupBy, ", "))
	}
	if len(s.orderBy) > 0 {
		buf.WriteString(" ORDER BY " + strings.Join(s.orderBy, ", "))
	}
	if s.limit > 0 {
		buf.WriteString(" LIMIT " + strconv.Itoa(s.limit))
	}
	return buf.String(), b.args, nil
}

type assignment struct {
	column string
	expr   string
	args   []any
}

type UpdateBuilder struct {
	table  string
	sets   []assignment
	where  []Condition
	suffix string
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (u *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	u.sets = append(u.sets, assignment{column: column, expr: "?", args: []any{value}})
	return u
}

// SetExpr assigns a raw expression, binding its ? markers to args.
func (u *UpdateBuilder) SetExpr(column, expr string, args ...any) *UpdateBuilder {
	u.sets = append(u.sets, assignment{column: column, expr: expr, args: args})
	return u
}

func (u *UpdateBuilder) Where(conditions ...Condition) *UpdateBuilder {
	u.where = append(u.where, conditions...)
	return u
}

func (u *UpdateBuilder) Suffix(sql string) *UpdateBuilder {
	u.suffix = strings.TrimSpace(sql)
	return u
}

func (u *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(u.table) == "" {
		return "", nil, fmt.Errorf("update table is required")
	}
	if len(u.sets) == 0 {
		return "", nil, fmt.Errorf("update sets are required")
	}

	var (
		buf strings.Builder
		b   binder
	)
	buf.WriteString("UPDATE " + u.table + " SET ")
	for i, a := range u.sets {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(a.column + " = " + b.expand(a.expr, a.args))
	}
	writeWhere(&buf, &b, u.where)
	if u.suffix != "" {
		buf.WriteString(" " + u.suffix)
	}
	return buf.String(), b.args, nil
}
