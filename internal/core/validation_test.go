package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAmountBoundaries(t *testing.T) {
	v := NewValidator(DefaultLimits())
	cases := []struct {
		in   string
		want string
		kind ValidationKind
	}{
		{"-50", "", NonPositive},
		{"0", "", NonPositive},
		{"0.01", "0.01", ""},
		{"100.5", "100.5", ""},
		{"999999", "999999", ""},
		{"1000000", "", TooLarge},
		{"inf", "", NonFinite},
		{"nan", "", NonFinite},
		{"-Inf", "", NonFinite},
		{"abc", "", NotANumber},
		{"", "", NotANumber},
		{"1.2.3", "", NotANumber},
		{"12,5", "12.5", ""},
		{" 45.00 ", "45", ""},
		{"0.001", "", NonPositive},
		{"999999.004", "999999", ""},
		{"999999.005", "", TooLarge},
		{"1e400", "", TooLarge},
		{"1e999999999", "", TooLarge},
		{"1e-999999999", "", NonPositive},
		{"-1e999999999", "", NonPositive},
		{"1.5e2", "150", ""},
	}
	for _, tc := range cases {
		got, err := v.ValidateAmount(tc.in)
		if tc.kind != "" {
			require.Error(t, err, tc.in)
			assert.True(t, IsValidationKind(err, tc.kind), "%q: got %v, want %s", tc.in, err, tc.kind)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got.String(), tc.in)
	}
}

func TestValidateAmountHonoursLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxAmount = FromCents(10000)
	v := NewValidator(limits)

	_, err := v.ValidateAmount("100")
	assert.NoError(t, err)
	_, err = v.ValidateAmount("100.01")
	assert.True(t, IsValidationKind(err, TooLarge))
}

func TestValidateDescriptionTruncates(t *testing.T) {
	v := NewValidator(DefaultLimits())

	long := strings.Repeat("a", 500)
	once := v.ValidateDescription(long)
	assert.Len(t, once, 200)
	assert.Equal(t, once, v.ValidateDescription(once))

	assert.Equal(t, "coffee", v.ValidateDescription("  coffee \n"))
	assert.Equal(t, "", v.ValidateDescription("   "))
}

func TestValidateDescriptionCountsRunes(t *testing.T) {
	v := NewValidator(DefaultLimits())
	got := v.ValidateDescription(strings.Repeat("é", 300))
	assert.Equal(t, 200, len([]rune(got)))
}

func TestValidateDescriptionIdempotentAtCutSpace(t *testing.T) {
	v := NewValidator(Limits{MaxDescriptionLen: 5})
	once := v.ValidateDescription("abcd efgh")
	assert.Equal(t, "abcd", once)
	assert.Equal(t, once, v.ValidateDescription(once))
}

func TestValidateSubcategoryText(t *testing.T) {
	v := NewValidator(DefaultLimits())

	got, err := v.ValidateSubcategoryText("  HBO Max ")
	require.NoError(t, err)
	assert.Equal(t, "HBO Max", got)

	_, err = v.ValidateSubcategoryText(strings.Repeat("x", 50))
	assert.NoError(t, err)

	_, err = v.ValidateSubcategoryText(strings.Repeat("x", 51))
	assert.True(t, IsValidationKind(err, TooLong))

	_, err = v.ValidateSubcategoryText(" ")
	assert.True(t, IsValidationKind(err, Empty))
}

func TestValidateDate(t *testing.T) {
	v := NewValidator(DefaultLimits())
	cases := []struct {
		in   string
		want Date
		kind ValidationKind
	}{
		{"15/11/25", NewDate(2025, time.November, 15), ""},
		{"5/3/25", NewDate(2025, time.March, 5), ""},
		{"29/02/24", NewDate(2024, time.February, 29), ""},
		{"31/02/25", Date{}, OutOfRange},
		{"29/02/25", Date{}, OutOfRange},
		{"32/01/25", Date{}, OutOfRange},
		{"10/13/25", Date{}, OutOfRange},
		{"2025-11-15", Date{}, BadFormat},
		{"yesterday", Date{}, BadFormat},
		{"", Date{}, BadFormat},
	}
	for _, tc := range cases {
		got, err := v.ValidateDate(tc.in, DefaultDateLayout)
		if tc.kind != "" {
			assert.True(t, IsValidationKind(err, tc.kind), "%q: got %v, want %s", tc.in, err, tc.kind)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestValidateDateCustomLayout(t *testing.T) {
	v := NewValidator(DefaultLimits())
	got, err := v.ValidateDate("2025-11-15", "2006-01-02")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2025, time.November, 15), got)

	_, err = v.ValidateDate("15/11/25", "2006-01-02")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "YYYY-MM-DD")
}

func TestValidateMonth(t *testing.T) {
	v := NewValidator(DefaultLimits())
	for in, want := range map[string]time.Month{
		"november":  time.November,
		"Novembro":  time.November,
		"11":        time.November,
		"março":     time.March,
		"marco":     time.March,
		" January ": time.January,
	} {
		got, err := v.ValidateMonth(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"13", "0", "smarch", ""} {
		_, err := v.ValidateMonth(in)
		assert.True(t, IsValidationKind(err, BadFormat), in)
	}
}

func TestDisplayLayout(t *testing.T) {
	assert.Equal(t, "DD/MM/YY", DisplayLayout(DefaultDateLayout))
}
