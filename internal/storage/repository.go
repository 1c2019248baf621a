package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diogoviieira/register-track-bot/internal/core"

	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

const entryColumns = "id, owner, occurred_on, logged_at, category, subcategory, amount_cents, description"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ Store      = (*SQLiteRepository)(nil)
	_ Maintainer = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	inMemory := dbPath == MemoryDSN
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if inMemory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// dsn enables WAL and a busy timeout so concurrent writers wait for the lock
// instead of failing with SQLITE_BUSY.
func dsn(path string) string {
	if path == MemoryDSN {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func tableFor(kind core.Kind) (string, error) {
	switch kind {
	case core.Expense:
		return "expenses", nil
	case core.Income:
		return "incomes", nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrInvalidKind, kind)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner, kind core.Kind) (core.Entry, error) {
	var (
		e          core.Entry
		occurredOn string
		loggedAt   int64
		cents      int64
	)
	if err := row.Scan(&e.ID, &e.Owner, &occurredOn, &loggedAt, &e.Category, &e.Subcategory, &cents, &e.Description); err != nil {
		return core.Entry{}, err
	}
	d, err := core.ParseISODate(occurredOn)
	if err != nil {
		return core.Entry{}, err
	}
	e.Kind = kind
	e.OccurredOn = d
	e.LoggedAt = time.Unix(0, loggedAt).UTC()
	e.Amount = core.FromCents(cents)
	return e, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, ne core.NewEntry) (core.Entry, error) {
	table, err := tableFor(ne.Kind)
	if err != nil {
		return core.Entry{}, err
	}
	loggedAt := r.now().UTC()

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO `+table+` (owner, occurred_on, logged_at, category, subcategory, amount_cents, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+entryColumns,
		ne.Owner, ne.OccurredOn.String(), loggedAt.UnixNano(), ne.Category, ne.Subcategory,
		core.ToCents(ne.Amount), ne.Description)

	e, err := scanEntry(row, ne.Kind)
	if err != nil {
		return core.Entry{}, storageErr("create "+ne.Kind.Label(), err)
	}

	slog.InfoContext(ctx, "Entry saved to SQLite",
		"id", e.ID,
		"owner", e.Owner,
		"kind", e.Kind,
		"category", e.Category,
		"amount", e.Amount.StringFixed(2),
		"date", e.OccurredOn.String())

	return e, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, owner string, kind core.Kind, id int64) (core.Entry, error) {
	table, err := tableFor(kind)
	if err != nil {
		return core.Entry{}, err
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM `+table+` WHERE owner = ? AND id = ?`, owner, id)
	return singleEntry(row, kind, "get")
}

func (r *SQLiteRepository) ListByDate(ctx context.Context, owner string, kind core.Kind, date core.Date) ([]core.Entry, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, kind, "list by date",
		`SELECT `+entryColumns+` FROM `+table+`
		 WHERE owner = ? AND occurred_on = ?
		 ORDER BY logged_at ASC, id ASC`,
		owner, date.String())
}

func (r *SQLiteRepository) ListByPeriod(ctx context.Context, owner string, kind core.Kind, year, month int) ([]core.Entry, error) {
	p, err := PeriodOf(year, month)
	if err != nil {
		return nil, err
	}
	return r.ListBetween(ctx, owner, kind, p)
}

func (r *SQLiteRepository) ListBetween(ctx context.Context, owner string, kind core.Kind, p core.Period) ([]core.Entry, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, kind, "list between",
		`SELECT `+entryColumns+` FROM `+table+`
		 WHERE owner = ? AND occurred_on BETWEEN ? AND ?
		 ORDER BY occurred_on ASC, logged_at ASC, id ASC`,
		owner, p.Start.String(), p.End.String())
}

func (r *SQLiteRepository) AggregateByCategory(ctx context.Context, owner string, kind core.Kind, p core.Period) ([]core.CategoryTotal, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents), COUNT(*) FROM `+table+`
		 WHERE owner = ? AND occurred_on BETWEEN ? AND ?
		 GROUP BY category
		 ORDER BY category ASC`,
		owner, p.Start.String(), p.End.String())
	if err != nil {
		return nil, storageErr("aggregate by category", err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var (
			ct    core.CategoryTotal
			cents int64
		)
		if err := rows.Scan(&ct.Category, &cents, &ct.Count); err != nil {
			return nil, storageErr("aggregate by category", err)
		}
		ct.Total = core.FromCents(cents)
		totals = append(totals, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("aggregate by category", err)
	}
	return totals, nil
}

func (r *SQLiteRepository) UpdateAmount(ctx context.Context, owner string, kind core.Kind, id int64, amount decimal.Decimal) (core.Entry, error) {
	table, err := tableFor(kind)
	if err != nil {
		return core.Entry{}, err
	}
	row := r.db.QueryRowContext(ctx,
		`UPDATE `+table+` SET amount_cents = ? WHERE owner = ? AND id = ? RETURNING `+entryColumns,
		core.ToCents(amount), owner, id)
	e, err := singleEntry(row, kind, "update amount")
	if err != nil {
		return core.Entry{}, err
	}
	slog.InfoContext(ctx, "Entry amount updated", "id", id, "owner", owner, "kind", kind)
	return e, nil
}

func (r *SQLiteRepository) UpdateDescription(ctx context.Context, owner string, kind core.Kind, id int64, text string) (core.Entry, error) {
	table, err := tableFor(kind)
	if err != nil {
		return core.Entry{}, err
	}
	row := r.db.QueryRowContext(ctx,
		`UPDATE `+table+` SET description = ? WHERE owner = ? AND id = ? RETURNING `+entryColumns,
		text, owner, id)
	e, err := singleEntry(row, kind, "update description")
	if err != nil {
		return core.Entry{}, err
	}
	slog.InfoContext(ctx, "Entry description updated", "id", id, "owner", owner, "kind", kind)
	return e, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, owner string, kind core.Kind, id int64) (core.Entry, error) {
	table, err := tableFor(kind)
	if err != nil {
		return core.Entry{}, err
	}
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM `+table+` WHERE owner = ? AND id = ? RETURNING `+entryColumns,
		owner, id)
	e, err := singleEntry(row, kind, "delete")
	if err != nil {
		return core.Entry{}, err
	}
	slog.InfoContext(ctx, "Entry deleted", "id", id, "owner", owner, "kind", kind)
	return e, nil
}

// Owners lists every owner with at least one entry, sorted by owner.
func (r *SQLiteRepository) Owners(ctx context.Context) ([]OwnerStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT owner, SUM(expenses), SUM(incomes) FROM (
			SELECT owner, COUNT(*) AS expenses, 0 AS incomes FROM expenses GROUP BY owner
			UNION ALL
			SELECT owner, 0, COUNT(*) FROM incomes GROUP BY owner
		) GROUP BY owner ORDER BY owner`)
	if err != nil {
		return nil, storageErr("list owners", err)
	}
	defer rows.Close()

	var out []OwnerStats
	for rows.Next() {
		var s OwnerStats
		if err := rows.Scan(&s.Owner, &s.Expenses, &s.Incomes); err != nil {
			return nil, storageErr("list owners", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list owners", err)
	}
	return out, nil
}

// PurgeOwner removes every entry of owner in one transaction.
func (r *SQLiteRepository) PurgeOwner(ctx context.Context, owner string) (OwnerStats, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return OwnerStats{}, storageErr("purge owner", err)
	}
	defer tx.Rollback()

	stats := OwnerStats{Owner: owner}
	for _, target := range []struct {
		table string
		count *int
	}{{"expenses", &stats.Expenses}, {"incomes", &stats.Incomes}} {
		res, err := tx.ExecContext(ctx, `DELETE FROM `+target.table+` WHERE owner = ?`, owner)
		if err != nil {
			return OwnerStats{}, storageErr("purge owner", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return OwnerStats{}, storageErr("purge owner", err)
		}
		*target.count = int(n)
	}
	if err := tx.Commit(); err != nil {
		return OwnerStats{}, storageErr("purge owner", err)
	}

	slog.InfoContext(ctx, "Owner purged", "owner", owner, "expenses", stats.Expenses, "incomes", stats.Incomes)
	return stats, nil
}

func singleEntry(row *sql.Row, kind core.Kind, op string) (core.Entry, error) {
	e, err := scanEntry(row, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, ErrNotFound
	}
	if err != nil {
		return core.Entry{}, storageErr(op, err)
	}
	return e, nil
}

func (r *SQLiteRepository) query(ctx context.Context, kind core.Kind, op, q string, args ...any) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows, kind)
		if err != nil {
			return nil, storageErr(op, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return out, nil
}
