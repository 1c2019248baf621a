package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Validation failure kinds.
const (
	NotANumber  ValidationKind = "NotANumber"
	NonPositive ValidationKind = "NonPositive"
	NonFinite   ValidationKind = "NonFinite"
	TooLarge    ValidationKind = "TooLarge"
	TooLong     ValidationKind = "TooLong"
	BadFormat   ValidationKind = "BadFormat"
	OutOfRange  ValidationKind = "OutOfRange"
	Empty       ValidationKind = "Empty"
)

// Default limits, matching the values the bot has always enforced.
const (
	DefaultMaxAmount         = 999999
	DefaultMaxDescriptionLen = 200
	DefaultMaxSubcategoryLen = 50
	DefaultDateLayout        = "02/01/06"
)

type ValidationKind string

// ValidationError is returned by every Validator method. It is always
// recoverable: the caller re-asks for the same input.
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsValidationKind reports whether err is a ValidationError of the given kind.
func IsValidationKind(err error, kind ValidationKind) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Kind == kind
}

func invalid(kind ValidationKind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Limits bounds user input before it reaches the store.
type Limits struct {
	MaxAmount         decimal.Decimal
	MaxDescriptionLen int
	MaxSubcategoryLen int
}

func DefaultLimits() Limits {
	return Limits{
		MaxAmount:         decimal.NewFromInt(DefaultMaxAmount),
		MaxDescriptionLen: DefaultMaxDescriptionLen,
		MaxSubcategoryLen: DefaultMaxSubcategoryLen,
	}
}

// Validator holds the configured limits. Its methods have no side effects.
type Validator struct {
	limits Limits
}

func NewValidator(limits Limits) Validator {
	return Validator{limits: limits}
}

func (v Validator) Limits() Limits { return v.limits }

// ValidateAmount parses a user supplied amount and returns it rounded to cents.
func (v Validator) ValidateAmount(raw string) (decimal.Decimal, error) {
	s := NormalizeDecimal(raw)
	if s == "" {
		return decimal.Zero, invalid(NotANumber, "amount is empty")
	}
	if err := v.checkMagnitude(raw, s); err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalid(NotANumber, "amount %q is not a number", raw)
	}
	d = RoundCents(d)
	if !d.IsPositive() {
		return decimal.Zero, invalid(NonPositive, "amount must be greater than zero")
	}
	if d.GreaterThan(v.limits.MaxAmount) {
		return decimal.Zero, invalid(TooLarge, "amount must be at most %s", v.limits.MaxAmount.String())
	}
	return d, nil
}

// checkMagnitude bounds the amount with a float parse before any decimal
// arithmetic. Exponent forms like 1e999999999 are accepted by decimal but
// rounding them allocates a number with a billion digits.
func (v Validator) checkMagnitude(raw, s string) error {
	f, err := strconv.ParseFloat(s, 64)
	switch {
	case err == nil && (math.IsInf(f, 0) || math.IsNaN(f)):
		return invalid(NonFinite, "amount %q is not a finite number", raw)
	case errors.Is(err, strconv.ErrRange) && math.IsInf(f, 1):
		return invalid(TooLarge, "amount must be at most %s", v.limits.MaxAmount.String())
	case errors.Is(err, strconv.ErrRange) && f <= 0:
		return invalid(NonPositive, "amount must be greater than zero")
	case err != nil && !errors.Is(err, strconv.ErrRange):
		return invalid(NotANumber, "amount %q is not a number", raw)
	case f <= 0:
		return invalid(NonPositive, "amount must be greater than zero")
	case f > v.limits.MaxAmount.InexactFloat64()+1:
		return invalid(TooLarge, "amount must be at most %s", v.limits.MaxAmount.String())
	}
	return nil
}

// ValidateDescription trims and truncates to MaxDescriptionLen runes.
// Applying it twice yields the same value.
func (v Validator) ValidateDescription(raw string) string {
	s := strings.TrimSpace(raw)
	if utf8.RuneCountInString(s) <= v.limits.MaxDescriptionLen {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:v.limits.MaxDescriptionLen]))
}

// ValidateSubcategoryText rejects rather than truncates: the subcategory is a
// grouping key and a silent cut would merge distinct subcategories.
func (v Validator) ValidateSubcategoryText(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", invalid(Empty, "subcategory is empty")
	}
	if n := utf8.RuneCountInString(s); n > v.limits.MaxSubcategoryLen {
		return "", invalid(TooLong, "subcategory has %d characters, at most %d allowed", n, v.limits.MaxSubcategoryLen)
	}
	return s, nil
}

// ValidateDate parses raw with layout. Single digit day and month are
// accepted as well ("5/3/25" for "05/03/25").
func (v Validator) ValidateDate(raw, layout string) (Date, error) {
	s := strings.TrimSpace(raw)
	if layout == "" {
		layout = DefaultDateLayout
	}
	relaxed := strings.NewReplacer("02", "2", "01", "1").Replace(layout)

	outOfRange := false
	for _, l := range []string{layout, relaxed} {
		t, err := time.Parse(l, s)
		if err == nil {
			return DateOf(t), nil
		}
		var pe *time.ParseError
		if errors.As(err, &pe) && strings.Contains(pe.Message, "out of range") {
			outOfRange = true
		}
	}
	if outOfRange {
		return Date{}, invalid(OutOfRange, "%q is not a calendar date", raw)
	}
	return Date{}, invalid(BadFormat, "%q does not match the date format %s", raw, DisplayLayout(layout))
}

// ValidateMonth accepts an English or Portuguese month name or a number 1-12.
func (v Validator) ValidateMonth(raw string) (time.Month, error) {
	if m, ok := LookupMonth(raw); ok {
		return m, nil
	}
	return 0, invalid(BadFormat, "%q is not a month name or number (1-12)", raw)
}

// DisplayLayout turns a Go layout into the DD/MM/YY notation users know.
func DisplayLayout(layout string) string {
	return strings.NewReplacer("2006", "YYYY", "06", "YY", "01", "MM", "02", "DD").Replace(layout)
}
