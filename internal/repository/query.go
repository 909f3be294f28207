package repository

import (
	"fmt"
	"strings"
)

// selectQuery builds parameterized SELECT statements. Column and table
// names only ever come from constants in this package; values always
// travel as positional arguments.
type selectQuery struct {
	table   string
	columns []string
	where   []string
	args    []any
	orderBy string
}

func newSelect(table string, columns ...string) *selectQuery {
	return &selectQuery{table: table, columns: columns}
}

// Where adds an equality predicate joined with AND.
func (q *selectQuery) Where(column string, value any) *selectQuery {
	q.args = append(q.args, value)
	q.where = append(q.where, fmt.Sprintf("%s = $%d", column, len(q.args)))
	return q
}

// OrderBy sets the sort column.
func (q *selectQuery) OrderBy(column string, desc bool) *selectQuery {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	q.orderBy = column + " " + dir
	return q
}

// Build renders the statement and its arguments.
func (q *selectQuery) Build() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(q.columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(q.table)
	if len(q.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(q.where, " AND "))
	}
	if q.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.orderBy)
	}
	return sb.String(), q.args
}

// updateQuery builds parameterized UPDATE ... RETURNING statements.
type updateQuery struct {
	table     string
	sets      []string
	where     []string
	args      []any
	returning []string
}

func newUpdate(table string) *updateQuery {
	return &updateQuery{table: table}
}

// Set assigns a column to a value.
func (q *updateQuery) Set(column string, value any) *updateQuery {
	q.args = append(q.args, value)
	q.sets = append(q.sets, fmt.Sprintf("%s = $%d", column, len(q.args)))
	return q
}

// SetExpr assigns a column to a raw SQL expression without arguments.
func (q *updateQuery) SetExpr(column, expr string) *updateQuery {
	q.sets = append(q.sets, column+" = "+expr)
	return q
}

// Where adds an equality predicate joined with AND.
func (q *updateQuery) Where(column string, value any) *updateQuery {
	q.args = append(q.args, value)
	q.where = append(q.where, fmt.Sprintf("%s = $%d", column, len(q.args)))
	return q
}

// Returning lists columns to return from the updated row.
func (q *updateQuery) Returning(columns ...string) *updateQuery {
	q.returning = columns
	return q
}

// Empty reports whether no assignments have been added.
func (q *updateQuery) Empty() bool {
	return len(q.sets) == 0
}

// Build renders the statement and its arguments.
func (q *updateQuery) Build() (string, []any) {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(q.table)
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(q.sets, ", "))
	if len(q.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(q.where, " AND "))
	}
	if len(q.returning) > 0 {
		sb.WriteString(" RETURNING ")
		sb.WriteString(strings.Join(q.returning, ", "))
	}
	return sb.String(), q.args
}
