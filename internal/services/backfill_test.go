package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoviieira/register-track-bot/internal/core"
	sheetsmem "github.com/diogoviieira/register-track-bot/internal/sheets/memory"
	"github.com/diogoviieira/register-track-bot/internal/storage/memory"
)

type flakyMirror struct {
	*sheetsmem.Mirror
	failKind core.Kind
	failID   int64
}

func (m *flakyMirror) Upsert(ctx context.Context, e core.Entry) error {
	if e.Kind == m.failKind && e.ID == m.failID {
		return errors.New("quota exceeded")
	}
	return m.Mirror.Upsert(ctx, e)
}

func seedBackfill(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	add := func(owner string, kind core.Kind, date core.Date, amount string) {
		_, err := store.Create(ctx, core.NewEntry{
			Owner: owner, Kind: kind, OccurredOn: date,
			Category: "Home", Subcategory: "Rent",
			Amount: decimal.RequireFromString(amount), Description: "Home - Rent",
		})
		require.NoError(t, err)
	}
	add("u1", core.Expense, core.NewDate(2025, 3, 1), "800")
	add("u1", core.Income, core.NewDate(2025, 3, 2), "2000")
	add("u2", core.Expense, core.NewDate(2025, 7, 9), "12.5")
	add("u2", core.Expense, core.NewDate(2024, 12, 31), "40")
	return store
}

func TestBackfill_MirrorsPeriod(t *testing.T) {
	store := seedBackfill(t)
	mirror := sheetsmem.New()

	stats, err := NewBackfill(store, mirror).Run(context.Background(), core.YearPeriod(2025))
	require.NoError(t, err)
	assert.Equal(t, BackfillStats{Owners: 2, Mirrored: 3}, stats)

	rows, err := mirror.Rows(context.Background(), core.Expense, 2025)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// running again rewrites the same rows
	_, err = NewBackfill(store, mirror).Run(context.Background(), core.YearPeriod(2025))
	require.NoError(t, err)
	assert.Equal(t, 3, mirror.Len())
}

func TestBackfill_SkipsFailedRows(t *testing.T) {
	store := seedBackfill(t)
	mirror := &flakyMirror{Mirror: sheetsmem.New(), failKind: core.Expense, failID: 1}

	stats, err := NewBackfill(store, mirror).Run(context.Background(), core.YearPeriod(2025))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Mirrored)
}

func TestBackfill_StopsAfterMaxFailures(t *testing.T) {
	store := seedBackfill(t)
	mirror := &flakyMirror{Mirror: sheetsmem.New(), failKind: core.Expense, failID: 1}
	b := NewBackfill(store, mirror)
	b.MaxFailures = 1

	_, err := b.Run(context.Background(), core.YearPeriod(2025))
	assert.ErrorContains(t, err, "stopped after 1 failures")
}
