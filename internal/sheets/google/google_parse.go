package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diogoviieira/register-track-bot/internal/core"
)

// Column layout of a mirror tab, A to H.
var header = []any{"ID", "Owner", "Date", "Category", "Subcategory", "Amount", "Description", "Logged At"}

const (
	colID = iota
	colOwner
	colDate
	colCategory
	colSubcategory
	colAmount
	colDescription
	colLoggedAt
)

// formatRow renders e in the tab layout. Amount is a plain decimal string so
// USER_ENTERED turns it into a number cell.
func formatRow(e core.Entry) []any {
	return []any{
		e.ID,
		e.Owner,
		e.OccurredOn.String(),
		e.Category,
		e.Subcategory,
		e.Amount.StringFixed(2),
		e.Description,
		e.LoggedAt.UTC().Format(time.RFC3339),
	}
}

// parseRows converts a values matrix (as returned by Sheets API) back into
// entries. Header, blank and malformed rows are skipped.
func parseRows(values [][]any, kind core.Kind) []core.Entry {
	var out []core.Entry
	for _, raw := range values {
		row := toStrings(raw)
		id, err := strconv.ParseInt(safeGet(row, colID), 10, 64)
		if err != nil {
			continue
		}
		date, err := core.ParseISODate(safeGet(row, colDate))
		if err != nil {
			continue
		}
		amount, ok := parseAmount(safeGet(row, colAmount))
		if !ok {
			continue
		}
		e := core.Entry{
			ID:          id,
			Owner:       safeGet(row, colOwner),
			Kind:        kind,
			OccurredOn:  date,
			Category:    safeGet(row, colCategory),
			Subcategory: safeGet(row, colSubcategory),
			Amount:      amount,
			Description: safeGet(row, colDescription),
		}
		if t, err := time.Parse(time.RFC3339, safeGet(row, colLoggedAt)); err == nil {
			e.LoggedAt = t
		}
		out = append(out, e)
	}
	return out
}

// indexRows maps entry id to its 1-based sheet row from column A values.
func indexRows(values [][]any) map[int64]int {
	rows := make(map[int64]int, len(values))
	for i, raw := range values {
		if len(raw) == 0 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(raw[0])), 10, 64)
		if err != nil {
			continue
		}
		rows[id] = i + 1
	}
	return rows
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseAmount accepts "800.00", "800,00" and "€800.00" as formatted by a
// spreadsheet locale.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), core.CurrencySymbol))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(core.NormalizeDecimal(s))
	if err != nil {
		return decimal.Zero, false
	}
	return core.RoundCents(d), true
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// a1 builds an A1 range on a tab, quoting the tab name.
func a1(tab, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(tab, "'", "''"), cells)
}
