package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"expense", Expense, true},
		{"Expense", Expense, true},
		{" expenses ", Expense, true},
		{"INCOME", Income, true},
		{"incomes", Income, true},
		{"", "", false},
		{"salary", "", false},
	}
	for _, tc := range cases {
		got, err := ParseKind(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidKind, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestKindLabels(t *testing.T) {
	assert.Equal(t, "Expense", Expense.Label())
	assert.Equal(t, "incomes", Income.Plural())
	assert.False(t, Kind("other").Valid())
}

func TestDate(t *testing.T) {
	d := NewDate(2025, time.November, 15)
	assert.Equal(t, "2025-11-15", d.String())
	assert.Equal(t, "2025-11-16", d.AddDays(1).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.Before(d))
	assert.True(t, Date{}.IsEmpty())

	parsed, err := ParseISODate("2025-11-15")
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	_, err = ParseISODate("15/11/25")
	assert.Error(t, err)
}

func TestDateOfDropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	got := DateOf(time.Date(2025, time.March, 1, 23, 59, 0, 0, loc))
	assert.Equal(t, NewDate(2025, time.March, 1), got)
}

func TestNewEntryValidate(t *testing.T) {
	good := NewEntry{
		Owner:       "u1",
		Kind:        Expense,
		OccurredOn:  NewDate(2025, 1, 1),
		Category:    "Home",
		Subcategory: "Rent",
		Amount:      decimal.RequireFromString("800"),
		Description: "Home - Rent",
	}
	require.NoError(t, good.Validate())

	mutate := func(f func(*NewEntry)) NewEntry {
		e := good
		f(&e)
		return e
	}
	bads := []struct {
		entry NewEntry
		err   error
	}{
		{mutate(func(e *NewEntry) { e.Owner = " " }), ErrEmptyOwner},
		{mutate(func(e *NewEntry) { e.Kind = "loan" }), ErrInvalidKind},
		{mutate(func(e *NewEntry) { e.Category = "" }), ErrEmptyCategory},
		{mutate(func(e *NewEntry) { e.Subcategory = "" }), ErrEmptySubcategory},
		{mutate(func(e *NewEntry) { e.Amount = decimal.Zero }), ErrInvalidAmount},
		{mutate(func(e *NewEntry) { e.Description = "" }), ErrEmptyDescription},
	}
	for i, tc := range bads {
		assert.ErrorIs(t, tc.entry.Validate(), tc.err, "case %d", i)
	}
	assert.Error(t, mutate(func(e *NewEntry) { e.OccurredOn = Date{} }).Validate())
}

func TestNewEntryEntry(t *testing.T) {
	ne := NewEntry{Owner: "u1", Kind: Income, Category: "Incomes", Subcategory: "Salary", Amount: decimal.NewFromInt(10)}
	at := time.Date(2025, 1, 2, 3, 4, 5, 6, time.UTC)
	e := ne.Entry(7, at)
	assert.Equal(t, int64(7), e.ID)
	assert.Equal(t, at, e.LoggedAt)
	assert.Equal(t, Income, e.Kind)
	assert.Equal(t, "Salary", e.Subcategory)
}
