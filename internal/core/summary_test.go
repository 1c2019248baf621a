package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(kind Kind, category, amount string) Entry {
	return Entry{Kind: kind, Category: category, Amount: decimal.RequireFromString(amount)}
}

func TestGroupByCategory(t *testing.T) {
	got := GroupByCategory([]Entry{
		entry(Expense, "Lazer", "5"),
		entry(Expense, "Home", "800"),
		entry(Expense, "Lazer", "2.5"),
	})
	require.Len(t, got, 2)
	assert.Equal(t, "Home", got[0].Category)
	assert.Equal(t, "Lazer", got[1].Category)
	assert.Equal(t, "7.5", got[1].Total.String())
	assert.Equal(t, 2, got[1].Count)

	assert.Empty(t, GroupByCategory(nil))
}

func TestGroupBySubcategory(t *testing.T) {
	coffee := entry(Expense, "Lazer", "3.5")
	coffee.Subcategory = "Coffees"
	dinner := entry(Expense, "Lazer", "20")
	dinner.Subcategory = "Dining Out"
	coffee2 := entry(Expense, "Lazer", "1.5")
	coffee2.Subcategory = "Coffees"
	rent := entry(Expense, "Home", "800")
	rent.Subcategory = "Rent"

	got := GroupByCategory([]Entry{dinner, coffee, rent, coffee2})
	require.Len(t, got, 2)
	assert.Equal(t, []SubcategoryTotal{{Subcategory: "Rent", Total: decimal.RequireFromString("800"), Count: 1}}, got[0].Subcategories)
	lazer := got[1].Subcategories
	require.Len(t, lazer, 2)
	assert.Equal(t, "Coffees", lazer[0].Subcategory)
	assert.Equal(t, "5", lazer[0].Total.String())
	assert.Equal(t, 2, lazer[0].Count)
	assert.Equal(t, "Dining Out", lazer[1].Subcategory)

	totals := []CategoryTotal{{Category: "Lazer"}, {Category: "Car"}}
	AttachSubcategories(totals, []Entry{dinner})
	assert.Len(t, totals[0].Subcategories, 1)
	assert.Empty(t, totals[1].Subcategories)
}

func TestNewReport(t *testing.T) {
	p := MonthPeriod(2025, 11)
	r := NewReport("u1", p,
		[]Entry{entry(Expense, "Car", "40"), entry(Expense, "Home", "800"), entry(Expense, "Bills", "40")},
		[]Entry{entry(Income, "Incomes", "1500")},
	)
	assert.Equal(t, "880", r.TotalExpenses.String())
	assert.Equal(t, "1500", r.TotalIncomes.String())
	assert.Equal(t, "620", r.Balance().String())

	var order []string
	for _, c := range r.ByCategory {
		order = append(order, c.Category)
	}
	assert.Equal(t, []string{"Home", "Bills", "Car"}, order)
}

func TestReportBalanceNegative(t *testing.T) {
	r := NewReport("u1", YearPeriod(2025), []Entry{entry(Expense, "Home", "10.50")}, nil)
	assert.True(t, r.Balance().Equal(decimal.RequireFromString("-10.5")))
	assert.True(t, r.TotalIncomes.IsZero())
}
