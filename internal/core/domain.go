package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense Kind = "expense"
	Income  Kind = "income"
)

// isoLayout is the storage representation of a Date.
const isoLayout = "2006-01-02"

type (
	// Kind separates the two record sets an owner keeps.
	Kind string

	// Date is a calendar day without time of day, always at UTC midnight.
	Date struct {
		time.Time
	}

	// NewEntry carries the fields of an entry before the store assigns identity.
	NewEntry struct {
		Owner       string
		Kind        Kind
		OccurredOn  Date
		Category    string
		Subcategory string
		Amount      decimal.Decimal
		Description string
	}

	// Entry is one persisted expense or income.
	Entry struct {
		ID          int64
		Owner       string
		Kind        Kind
		OccurredOn  Date
		LoggedAt    time.Time
		Category    string
		Subcategory string
		Amount      decimal.Decimal
		Description string
	}
)

var (
	ErrInvalidKind      = errors.New("invalid entry kind")
	ErrEmptyOwner       = errors.New("empty owner")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptySubcategory = errors.New("empty subcategory")
)

// Kinds lists every kind in display order.
func Kinds() []Kind { return []Kind{Expense, Income} }

func (k Kind) Valid() bool {
	return k == Expense || k == Income
}

// Label returns the human form used in prompts ("Expense", "Income").
func (k Kind) Label() string {
	switch k {
	case Expense:
		return "Expense"
	case Income:
		return "Income"
	default:
		return string(k)
	}
}

// Plural returns the plural label ("expenses", "incomes").
func (k Kind) Plural() string {
	return strings.ToLower(k.Label()) + "s"
}

// ParseKind accepts the kind name or its label, case-insensitively. Plurals
// are accepted so that "/view incomes" works like "/view income".
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "s")
	switch Kind(s) {
	case Expense, Income:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseISODate parses the storage form YYYY-MM-DD.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse(isoLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// String returns the storage form YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(isoLayout)
}

// AddDays returns the date n days later (earlier when n is negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (e NewEntry) Validate() error {
	if strings.TrimSpace(e.Owner) == "" {
		return ErrEmptyOwner
	}
	if !e.Kind.Valid() {
		return ErrInvalidKind
	}
	if e.OccurredOn.IsEmpty() {
		return errors.New("date cannot be zero")
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(e.Subcategory) == "" {
		return ErrEmptySubcategory
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// Entry builds the stored form once the store has picked id and timestamp.
func (e NewEntry) Entry(id int64, loggedAt time.Time) Entry {
	return Entry{
		ID:          id,
		Owner:       e.Owner,
		Kind:        e.Kind,
		OccurredOn:  e.OccurredOn,
		LoggedAt:    loggedAt,
		Category:    e.Category,
		Subcategory: e.Subcategory,
		Amount:      e.Amount,
		Description: e.Description,
	}
}
