// Package storage implements the durable record store on SQLite. It backs
// both the aggregation engine's read ports and the write path, plus the
// user and session tables of the multi-user web variant.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spendtrack/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath
// and applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertExpense stores a new expense and returns its assigned id.
func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (owner_id, amount_cents, description, category, occurred_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.OwnerID, e.Amount.Cents, e.Description, string(e.Category), e.OccurredAt.UTC().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"owner_id", e.OwnerID,
		"amount_cents", e.Amount.Cents,
		"category", string(e.Category))

	return id, nil
}

// UpdateExpense applies the non-nil fields of u to an owned expense.
// Returns core.ErrNotFound when the id does not exist for this owner;
// a foreign owner's record is never touched.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, id, owner int64, u core.ExpenseUpdate) error {
	var sets []string
	var args []any
	if u.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, u.Amount.Cents)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(*u.Category))
	}
	if len(sets) == 0 {
		return core.NewValidationError("update", "no fields to change")
	}
	args = append(args, id, owner)

	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET "+strings.Join(sets, ", ")+" WHERE id = ? AND owner_id = ?",
		args...,
	)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteExpense removes an owned expense. Returns core.ErrNotFound when
// the id does not exist for this owner.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id, owner int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND owner_id = ?", id, owner)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id, "owner_id", owner)
	return nil
}

// GetExpense retrieves a single owned expense by id.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id, owner int64) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, amount_cents, description, category, occurred_at
		 FROM expenses WHERE id = ? AND owner_id = ?`, id, owner)
	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// Query implements report.ExpenseQuerier: owned expenses matching the
// filter, newest first.
func (r *SQLiteRepository) Query(ctx context.Context, owner int64, f core.Filter) ([]core.Expense, error) {
	where, args := filterClause(owner, f)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, amount_cents, description, category, occurred_at
		 FROM expenses WHERE `+where+` ORDER BY occurred_at DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// CategoryAggregates implements report.AggregateReader.
func (r *SQLiteRepository) CategoryAggregates(ctx context.Context, owner int64, f core.Filter) ([]core.CategoryAggregate, error) {
	where, args := filterClause(owner, f)
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents), COUNT(*)
		 FROM expenses WHERE `+where+`
		 GROUP BY category ORDER BY SUM(amount_cents) DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("category aggregates: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAggregate
	for rows.Next() {
		var a core.CategoryAggregate
		var cat string
		if err := rows.Scan(&cat, &a.TotalCents, &a.Count); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		a.Category = core.Category(cat)
		out = append(out, a)
	}
	return out, rows.Err()
}

// OverallAggregate implements report.AggregateReader.
func (r *SQLiteRepository) OverallAggregate(ctx context.Context, owner int64, f core.Filter) (core.Aggregate, error) {
	where, args := filterClause(owner, f)
	var a core.Aggregate
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*),
		        COALESCE(MIN(amount_cents), 0), COALESCE(MAX(amount_cents), 0)
		 FROM expenses WHERE `+where, args...).
		Scan(&a.TotalCents, &a.Count, &a.MinCents, &a.MaxCents)
	if err != nil {
		return core.Aggregate{}, fmt.Errorf("overall aggregate: %w", err)
	}
	return a, nil
}

// MonthlyTotals implements report.AggregateReader. The year is bucketed
// with [monthStart, nextMonthStart) semantics over the stored nanosecond
// timestamps; months without records are absent from the result.
func (r *SQLiteRepository) MonthlyTotals(ctx context.Context, owner int64, year int) ([]core.MonthTotal, error) {
	yearStart := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()
	nextYear := time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()

	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(strftime('%m', occurred_at / 1000000000, 'unixepoch') AS INTEGER) AS month,
		        SUM(amount_cents), COUNT(*)
		 FROM expenses
		 WHERE owner_id = ? AND occurred_at >= ? AND occurred_at < ?
		 GROUP BY month ORDER BY month`,
		owner, yearStart, nextYear)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	var out []core.MonthTotal
	for rows.Next() {
		var mt core.MonthTotal
		if err := rows.Scan(&mt.Month, &mt.TotalCents, &mt.Count); err != nil {
			return nil, fmt.Errorf("scan month total: %w", err)
		}
		out = append(out, mt)
	}
	return out, rows.Err()
}

// LargestExpense implements report.AggregateReader. Ties resolve to the
// lowest id for determinism.
func (r *SQLiteRepository) LargestExpense(ctx context.Context, owner int64) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, amount_cents, description, category, occurred_at
		 FROM expenses WHERE owner_id = ?
		 ORDER BY amount_cents DESC, id ASC LIMIT 1`, owner)
	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("largest expense: %w", err)
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (*core.Expense, error) {
	var e core.Expense
	var cat string
	var occurredNanos int64
	if err := s.Scan(&e.ID, &e.OwnerID, &e.Amount.Cents, &e.Description, &cat, &occurredNanos); err != nil {
		return nil, err
	}
	e.Category = core.Category(cat)
	e.OccurredAt = time.Unix(0, occurredNanos).UTC()
	return &e, nil
}

// filterClause renders a core.Filter as a WHERE clause. Every set
// criterion is ANDed; the owner scope is always present.
func filterClause(owner int64, f core.Filter) (string, []any) {
	where := []string{"owner_id = ?"}
	args := []any{owner}

	if f.Start != nil {
		where = append(where, "occurred_at >= ?")
		args = append(args, f.Start.UTC().UnixNano())
	}
	if f.End != nil {
		where = append(where, "occurred_at < ?")
		args = append(args, f.End.UTC().UnixNano())
	}
	if f.Category != nil {
		where = append(where, "category = ?")
		args = append(args, string(*f.Category))
	}
	if f.MinCents != nil {
		where = append(where, "amount_cents >= ?")
		args = append(args, *f.MinCents)
	}
	if f.MaxCents != nil {
		where = append(where, "amount_cents <= ?")
		args = append(args, *f.MaxCents)
	}
	if f.Term != "" {
		// The term is a literal substring, so LIKE metacharacters in it
		// are escaped. LOWER folds ASCII only; non-ASCII terms match
		// case-sensitively on this backend.
		pattern := "%" + escapeLike(strings.ToLower(f.Term)) + "%"
		where = append(where, `(LOWER(description) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	return strings.Join(where, " AND "), args
}

// escapeLike backslash-escapes %, _ and the escape character itself so
// a search term matches them literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
