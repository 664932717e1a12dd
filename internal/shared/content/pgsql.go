package content

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"content-dumper/internal/shared/apperr"
)

// Queryer is the subset of *sql.DB and *sql.Tx the helpers need.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ListWhere builds the WHERE clause shared by list and count queries. The
// search needle is matched case-insensitively against searchCols.
func ListWhere(q ListQuery, searchCols []string) (string, []any) {
	var b strings.Builder
	args := []any{q.UserID}
	b.WriteString("WHERE user_id = $1")

	if len(q.Statuses) > 0 {
		b.WriteString(" AND status IN (")
		for i, s := range q.Statuses {
			if i > 0 {
				b.WriteString(", ")
			}
			args = append(args, string(s))
			fmt.Fprintf(&b, "$%d", len(args))
		}
		b.WriteString(")")
	}

	needle := strings.TrimSpace(q.Search)
	if needle != "" && len(searchCols) > 0 {
		args = append(args, "%"+EscapeLike(needle)+"%")
		n := len(args)
		b.WriteString(" AND (")
		for i, col := range searchCols {
			if i > 0 {
				b.WriteString(" OR ")
			}
			fmt.Fprintf(&b, "%s ILIKE $%d", col, n)
		}
		b.WriteString(")")
	}
	return b.String(), args
}

// EscapeLike escapes LIKE wildcards in user input.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// CountRows counts the rows of table matching where.
func CountRows(ctx context.Context, db Queryer, table, where string, args []any) (int64, error) {
	var total int64
	query := "SELECT COUNT(*) FROM " + table + " " + where
	if err := db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// LimitOffset appends LIMIT/OFFSET placeholders to args.
func LimitOffset(q ListQuery, args []any) (string, []any) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

// ExecTransition runs a guarded status change against table. The status
// predicate in the WHERE clause keeps concurrent transitions from clobbering
// each other.
func ExecTransition(ctx context.Context, db Queryer, table string, t Transition) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, &apperr.InvalidFormatError{Field: "status", Msg: err.Error()}
	}
	query, args := TransitionSQL(table, t)
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TransitionSQL renders the UPDATE statement for t.
func TransitionSQL(table string, t Transition) (string, []any) {
	var b strings.Builder
	args := []any{string(t.To), t.At}
	fmt.Fprintf(&b, "UPDATE %s SET status = $1, updated_at = $2", table)
	switch t.To {
	case StatusExported:
		b.WriteString(", exported_at = $2")
	case StatusUnexported:
		b.WriteString(", exported_at = NULL")
	}
	args = append(args, t.UserID, string(t.From))
	b.WriteString(" WHERE user_id = $3 AND status = $4")
	if len(t.IDs) > 0 {
		b.WriteString(" AND id IN (")
		for i, id := range t.IDs {
			if i > 0 {
				b.WriteString(", ")
			}
			args = append(args, id)
			fmt.Fprintf(&b, "$%d", len(args))
		}
		b.WriteString(")")
	}
	if t.ExportedAt != nil {
		args = append(args, *t.ExportedAt)
		fmt.Fprintf(&b, " AND exported_at = $%d", len(args))
	}
	if t.Versions != nil {
		ids := make([]string, 0, len(t.Versions))
		for id := range t.Versions {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		b.WriteString(" AND (id, updated_at) IN (")
		for i, id := range ids {
			if i > 0 {
				b.WriteString(", ")
			}
			args = append(args, id, t.Versions[id])
			fmt.Fprintf(&b, "($%d, $%d)", len(args)-1, len(args))
		}
		if len(ids) == 0 {
			b.WriteString("(NULL, NULL)")
		}
		b.WriteString(")")
	}
	return b.String(), args
}

// LatestExportedAt returns MAX(exported_at) over exported rows, or nil.
func LatestExportedAt(ctx context.Context, db Queryer, table, userID string) (*time.Time, error) {
	query := "SELECT MAX(exported_at) FROM " + table + " WHERE user_id = $1 AND status = $2"
	var at sql.NullTime
	if err := db.QueryRowContext(ctx, query, userID, string(StatusExported)).Scan(&at); err != nil {
		return nil, err
	}
	if !at.Valid {
		return nil, nil
	}
	t := at.Time
	return &t, nil
}

// NullTimePtr converts a scanned nullable timestamp.
func NullTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// NullString wraps s, treating "" as NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
