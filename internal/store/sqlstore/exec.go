package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"tokobuku/backend/internal/domain"
	"tokobuku/backend/internal/store"
)

var _ store.Repository = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// queryRow runs a single-row select and scans it into dest.
func (s *Store) queryRow(ctx context.Context, q querier, op string, query string, args []any, dest ...any) error {
	if err := q.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		return s.mapError(op, err)
	}
	return nil
}

// queryRows runs a select and hands every row to scan.
func (s *Store) queryRows(ctx context.Context, q querier, op string, query string, args []any, scan func(scanner) error) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return s.mapError(op, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return s.mapError(op, err)
		}
	}
	if err := rows.Err(); err != nil {
		return s.mapError(op, err)
	}
	return nil
}

// insert runs an INSERT ... RETURNING id statement and returns the new key.
func (s *Store) insert(ctx context.Context, q querier, op string, query string, args ...any) (int64, error) {
	var id int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, s.mapError(op, err)
	}
	return id, nil
}

// exec runs a non-selecting statement and returns the affected row count.
func (s *Store) exec(ctx context.Context, q querier, op string, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, s.mapError(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, s.mapError(op, err)
	}
	return affected, nil
}

// mapError translates driver errors into store sentinels, keeping the cause in the log.
func (s *Store) mapError(op string, err error) error {
	var sentinel error
	switch {
	case errors.Is(err, sql.ErrNoRows):
		sentinel = store.ErrNotFound
	case isUniqueViolation(err):
		sentinel = store.ErrConflict
	case isForeignKeyViolation(err):
		sentinel = store.ErrNotFound
	case isCheckViolation(err):
		sentinel = store.ErrInvalidTransaction
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("statement rejected", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, sentinel)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintCheck
	}
	return false
}

// filter accumulates AND-ed conditions with $n placeholders numbered in order.
type filter struct {
	clauses []string
	args    []any
}

func (f *filter) add(format string, value any) {
	f.args = append(f.args, value)
	f.clauses = append(f.clauses, fmt.Sprintf(format, len(f.args)))
}

func (f *filter) addRange(column string, r domain.DateRange) {
	if r.Start != nil {
		f.add(column+" >= $%d", domain.DateOnly(*r.Start))
	}
	if r.End != nil {
		f.add(column+" <= $%d", domain.DateOnly(*r.End))
	}
}

// where renders the conditions as a WHERE clause, or nothing.
func (f *filter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

// next returns the placeholder number for an argument appended after the filter.
func (f *filter) next() int {
	return len(f.args) + 1
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// likePattern builds a case-folded substring pattern for LIKE ... ESCAPE '\'.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}
