package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	require.NoError(t, c.Validate())
	assert.Contains(t, c.CategoryNames(Expense), "Home")
	assert.Contains(t, c.CategoryNames(Income), "Incomes")
}

func TestCatalogLookup(t *testing.T) {
	c := DefaultCatalog()

	home, err := c.Lookup(Expense, " home ")
	require.NoError(t, err)
	assert.Equal(t, "Home", home.Name)

	_, err = c.Lookup(Income, "Home")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	sub, ok := home.MatchSubcategory("rent")
	assert.True(t, ok)
	assert.Equal(t, "Rent", sub)

	_, ok = home.MatchSubcategory("Mortgage")
	assert.False(t, ok)
}

func TestAutoDescription(t *testing.T) {
	c := DefaultCatalog()
	cases := []struct {
		kind     Kind
		category string
		sub      string
		want     string
		ok       bool
	}{
		{Expense, "Home", "Rent", "Home - Rent", true},
		{Expense, "Home", "Other", "", false},
		{Expense, "Lazer", "Coffees", "", false},
		{Expense, "Streaming", "HBO", "Streaming - HBO", true},
		{Income, "Incomes", "Salary", "Incomes - Salary", true},
		{Income, "Incomes", "Others", "", false},
	}
	for _, tc := range cases {
		cat, err := c.Lookup(tc.kind, tc.category)
		require.NoError(t, err)
		got, ok := cat.AutoDescriptionFor(tc.sub)
		assert.Equal(t, tc.ok, ok, "%s/%s", tc.category, tc.sub)
		assert.Equal(t, tc.want, got)
	}
}

func TestAutoTextOverride(t *testing.T) {
	cat := Category{Name: "Car", AutoDescription: []string{"*"}, AutoText: "car costs"}
	got, ok := cat.AutoDescriptionFor("Fuel")
	assert.True(t, ok)
	assert.Equal(t, "car costs", got)
}

func TestParseCatalogRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no income":       "expense:\n  - name: A\n    free_text: true\n",
		"no subs":         "expense:\n  - name: A\nincome:\n  - name: B\n    free_text: true\n",
		"duplicate":       "expense:\n  - name: A\n    free_text: true\n  - name: a\n    free_text: true\nincome:\n  - name: B\n    free_text: true\n",
		"not yaml at all": "expense: [",
	}
	for name, data := range cases {
		_, err := ParseCatalog([]byte(data))
		assert.Error(t, err, name)
	}
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Expense)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := "expense:\n  - name: Food\n    subcategories: [Lunch]\nincome:\n  - name: Job\n    free_text: true\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	c, err = LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Food"}, c.CategoryNames(Expense))
	assert.True(t, c.Income[0].FreeText)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
