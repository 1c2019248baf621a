package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is an inclusive range of calendar days.
type Period struct {
	Start Date
	End   Date
	Label string
}

// PeriodName identifies the relative periods offered by summary and report.
type PeriodName string

const (
	PeriodToday PeriodName = "today"
	PeriodWeek  PeriodName = "week"
	PeriodMonth PeriodName = "month"
	PeriodYear  PeriodName = "year"
)

var monthLookup = map[string]time.Month{
	"january": time.January, "janeiro": time.January,
	"february": time.February, "fevereiro": time.February,
	"march": time.March, "março": time.March, "marco": time.March,
	"april": time.April, "abril": time.April,
	"may": time.May, "maio": time.May,
	"june": time.June, "junho": time.June,
	"july": time.July, "julho": time.July,
	"august": time.August, "agosto": time.August,
	"september": time.September, "setembro": time.September,
	"october": time.October, "outubro": time.October,
	"november": time.November, "novembro": time.November,
	"december": time.December, "dezembro": time.December,
}

// LookupMonth resolves an English or Portuguese month name, or a number 1-12.
func LookupMonth(s string) (time.Month, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if m, ok := monthLookup[s]; ok {
		return m, true
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return time.Month(n), true
	}
	return 0, false
}

func (p Period) Contains(d Date) bool {
	return !d.Before(p.Start) && !p.End.Before(d)
}

func (p Period) String() string {
	return fmt.Sprintf("%s..%s", p.Start, p.End)
}

// DayPeriod covers a single day.
func DayPeriod(d Date, label string) Period {
	return Period{Start: d, End: d, Label: label}
}

// WeekOf returns Monday to Sunday of the week containing d.
func WeekOf(d Date) Period {
	offset := (int(d.Weekday()) + 6) % 7
	start := d.AddDays(-offset)
	return Period{Start: start, End: start.AddDays(6), Label: "This Week"}
}

func MonthPeriod(year int, month time.Month) Period {
	start := NewDate(year, month, 1)
	return Period{
		Start: start,
		End:   NewDate(year, month+1, 1).AddDays(-1),
		Label: fmt.Sprintf("%s %d", month, year),
	}
}

func YearPeriod(year int) Period {
	return Period{
		Start: NewDate(year, time.January, 1),
		End:   NewDate(year, time.December, 31),
		Label: strconv.Itoa(year),
	}
}

// ParsePeriodName accepts "today", "week", "month", "year" with an optional
// "this" prefix, case-insensitively.
func ParsePeriodName(s string) (PeriodName, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSpace(strings.TrimPrefix(s, "this "))
	switch PeriodName(s) {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return PeriodName(s), true
	}
	return "", false
}

// Resolve turns a relative period into dates around today.
func (n PeriodName) Resolve(today Date) Period {
	switch n {
	case PeriodWeek:
		return WeekOf(today)
	case PeriodMonth:
		return MonthPeriod(today.Year(), today.Month())
	case PeriodYear:
		return YearPeriod(today.Year())
	default:
		return DayPeriod(today, "Today")
	}
}

// Clock yields the current day in the configured time zone.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

func (c Clock) Today() Date {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	t := now()
	if c.Location != nil {
		t = t.In(c.Location)
	}
	return DateOf(t)
}
