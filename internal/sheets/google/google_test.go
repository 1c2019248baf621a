package google

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/diogoviieira/register-track-bot/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "  "})
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	for _, k := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(k, "")
	}

	_, err := New(context.Background(), Options{SpreadsheetID: "test-id"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", t.TempDir()+"/missing.json")

	_, err := New(context.Background(), Options{SpreadsheetID: "test-id"})
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got: %v", err)
	}
}

func TestClient_NilService(t *testing.T) {
	c := NewWithService(nil, Options{SpreadsheetID: "test"})
	e := core.Entry{ID: 1, Kind: core.Expense, OccurredOn: core.NewDate(2025, 1, 1), Amount: decimal.NewFromInt(1)}

	if err := c.Upsert(context.Background(), e); !errors.Is(err, errNotInitialized) {
		t.Errorf("Upsert: expected errNotInitialized, got %v", err)
	}
	if err := c.Remove(context.Background(), e); !errors.Is(err, errNotInitialized) {
		t.Errorf("Remove: expected errNotInitialized, got %v", err)
	}
	if _, err := c.Rows(context.Background(), core.Expense, 2025); !errors.Is(err, errNotInitialized) {
		t.Errorf("Rows: expected errNotInitialized, got %v", err)
	}
}

func TestClient_TabName(t *testing.T) {
	c := NewWithService(nil, Options{SpreadsheetID: "x"})
	if got := c.tabName(core.Expense, 2025); got != "2025 Expenses" {
		t.Errorf("tabName = %q", got)
	}

	c = NewWithService(nil, Options{SpreadsheetID: "x", SheetName: "Finance"})
	if got := c.tabName(core.Income, 2024); got != "2024 Finance Incomes" {
		t.Errorf("tabName = %q", got)
	}
}

func TestClient_RowBookkeeping(t *testing.T) {
	c := NewWithService(nil, Options{SpreadsheetID: "x"})
	tab := "2025 Expenses"

	// unknown tab: first data row
	if row, ok := c.rowFor(tab, 7); ok || row != 2 {
		t.Fatalf("rowFor on unknown tab = %d, %v", row, ok)
	}

	c.setIndex(tab, [][]any{{"ID"}, {"3"}, {}, {"5"}})
	if row, ok := c.rowFor(tab, 5); !ok || row != 4 {
		t.Fatalf("rowFor(5) = %d, %v", row, ok)
	}
	if row, ok := c.rowFor(tab, 9); ok || row != 5 {
		t.Fatalf("rowFor(9) = %d, %v, want next row 5", row, ok)
	}

	c.remember(tab, 9, 5)
	if row, _ := c.rowFor(tab, 10); row != 6 {
		t.Fatalf("next row after remember = %d, want 6", row)
	}

	c.forget(tab, 3)
	if _, ok := c.rowFor(tab, 3); ok {
		t.Fatal("row 3 should be forgotten")
	}

	c.invalidate(tab)
	if row, ok := c.rowFor(tab, 5); ok || row != 2 {
		t.Fatalf("rowFor after invalidate = %d, %v", row, ok)
	}
}
