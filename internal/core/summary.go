package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryTotal represents an amount aggregated by category name.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
	Count    int
	// Subcategories is the per-subcategory breakdown, sorted by name.
	// Store aggregates leave it empty until AttachSubcategories runs.
	Subcategories []SubcategoryTotal
}

type SubcategoryTotal struct {
	Subcategory string
	Total       decimal.Decimal
	Count       int
}

// Report is the financial overview of one owner over a period.
type Report struct {
	Owner         string
	Period        Period
	Expenses      []Entry
	Incomes       []Entry
	TotalExpenses decimal.Decimal
	TotalIncomes  decimal.Decimal
	// ByCategory holds expense totals, largest first.
	ByCategory []CategoryTotal
}

func (r Report) Balance() decimal.Decimal {
	return r.TotalIncomes.Sub(r.TotalExpenses)
}

// Sum adds up entry amounts.
func Sum(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// GroupByCategory totals entries per category, sorted by category name.
func GroupByCategory(entries []Entry) []CategoryTotal {
	idx := make(map[string]int)
	var out []CategoryTotal
	for _, e := range entries {
		i, ok := idx[e.Category]
		if !ok {
			i = len(out)
			idx[e.Category] = i
			out = append(out, CategoryTotal{Category: e.Category, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
		out[i].Count++
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Category < out[b].Category })
	AttachSubcategories(out, entries)
	return out
}

// GroupBySubcategory totals entries per category and subcategory. Each
// category's breakdown is sorted by subcategory name.
func GroupBySubcategory(entries []Entry) map[string][]SubcategoryTotal {
	out := make(map[string][]SubcategoryTotal)
	for _, e := range entries {
		subs := out[e.Category]
		i := 0
		for i < len(subs) && subs[i].Subcategory != e.Subcategory {
			i++
		}
		if i == len(subs) {
			subs = append(subs, SubcategoryTotal{Subcategory: e.Subcategory, Total: decimal.Zero})
		}
		subs[i].Total = subs[i].Total.Add(e.Amount)
		subs[i].Count++
		out[e.Category] = subs
	}
	for _, subs := range out {
		sort.Slice(subs, func(a, b int) bool { return subs[a].Subcategory < subs[b].Subcategory })
	}
	return out
}

// AttachSubcategories fills the breakdown of each total from the entries
// it was computed over.
func AttachSubcategories(totals []CategoryTotal, entries []Entry) {
	subs := GroupBySubcategory(entries)
	for i := range totals {
		totals[i].Subcategories = subs[totals[i].Category]
	}
}

// SortByTotalDesc orders totals largest first, ties by name.
func SortByTotalDesc(totals []CategoryTotal) {
	sort.SliceStable(totals, func(a, b int) bool {
		if c := totals[a].Total.Cmp(totals[b].Total); c != 0 {
			return c > 0
		}
		return totals[a].Category < totals[b].Category
	})
}

// NewReport assembles a report from the entries of a period.
func NewReport(owner string, p Period, expenses, incomes []Entry) Report {
	byCat := GroupByCategory(expenses)
	SortByTotalDesc(byCat)
	return Report{
		Owner:         owner,
		Period:        p,
		Expenses:      expenses,
		Incomes:       incomes,
		TotalExpenses: Sum(expenses),
		TotalIncomes:  Sum(incomes),
		ByCategory:    byCat,
	}
}
