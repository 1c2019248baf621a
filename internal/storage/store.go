package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diogoviieira/register-track-bot/internal/core"
)

var (
	// ErrNotFound means no entry with that id exists for that owner.
	ErrNotFound = errors.New("entry not found")
	// ErrStorage wraps every I/O failure of the underlying database.
	ErrStorage = errors.New("storage failure")
)

// Store is the record store contract. Every read and mutation is scoped to
// one owner; entries of other owners behave as if they did not exist.
type Store interface {
	Create(ctx context.Context, e core.NewEntry) (core.Entry, error)
	Get(ctx context.Context, owner string, kind core.Kind, id int64) (core.Entry, error)
	// ListByDate returns the entries of one day, oldest logged first.
	ListByDate(ctx context.Context, owner string, kind core.Kind, date core.Date) ([]core.Entry, error)
	// ListByPeriod lists a calendar month, or the whole year when month is 0.
	ListByPeriod(ctx context.Context, owner string, kind core.Kind, year, month int) ([]core.Entry, error)
	ListBetween(ctx context.Context, owner string, kind core.Kind, p core.Period) ([]core.Entry, error)
	AggregateByCategory(ctx context.Context, owner string, kind core.Kind, p core.Period) ([]core.CategoryTotal, error)
	UpdateAmount(ctx context.Context, owner string, kind core.Kind, id int64, amount decimal.Decimal) (core.Entry, error)
	UpdateDescription(ctx context.Context, owner string, kind core.Kind, id int64, text string) (core.Entry, error)
	Delete(ctx context.Context, owner string, kind core.Kind, id int64) (core.Entry, error)
}

// Maintainer exposes the housekeeping operations.
type Maintainer interface {
	Owners(ctx context.Context) ([]OwnerStats, error)
	PurgeOwner(ctx context.Context, owner string) (OwnerStats, error)
}

// OwnerStats counts the entries an owner keeps.
type OwnerStats struct {
	Owner    string
	Expenses int
	Incomes  int
}

// PeriodOf converts the (year, month) pair of ListByPeriod into dates.
func PeriodOf(year, month int) (core.Period, error) {
	if year < 1 || month < 0 || month > 12 {
		return core.Period{}, fmt.Errorf("invalid period %d/%d", year, month)
	}
	if month == 0 {
		return core.YearPeriod(year), nil
	}
	return core.MonthPeriod(year, time.Month(month)), nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
