// Package storetest holds the behaviour every storage.Store implementation
// must show. Implementations run it from their own tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/diogoviieira/register-track-bot/internal/core"
	"github.com/diogoviieira/register-track-bot/internal/storage"
)

// Suite runs against a fresh store per test.
type Suite struct {
	suite.Suite

	NewStore func(t *testing.T) storage.Store

	store storage.Store
	ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore(s.T())
}

var day = core.NewDate(2025, time.November, 15)

func (s *Suite) create(owner string, kind core.Kind, date core.Date, category, amount, description string) core.Entry {
	e, err := s.store.Create(s.ctx, core.NewEntry{
		Owner:       owner,
		Kind:        kind,
		OccurredOn:  date,
		Category:    category,
		Subcategory: "Other",
		Amount:      decimal.RequireFromString(amount),
		Description: description,
	})
	s.Require().NoError(err)
	return e
}

func ids(entries []core.Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func (s *Suite) TestCreateAssignsIdentity() {
	before := time.Now().Add(-time.Second)
	e := s.create("u1", core.Expense, day, "Home", "800.00", "Home - Rent")

	s.NotZero(e.ID)
	s.Equal("u1", e.Owner)
	s.Equal(core.Expense, e.Kind)
	s.Equal(day, e.OccurredOn)
	s.True(e.LoggedAt.After(before))
	s.True(e.Amount.Equal(decimal.RequireFromString("800")))

	got, err := s.store.Get(s.ctx, "u1", core.Expense, e.ID)
	s.Require().NoError(err)
	s.Equal(e.ID, got.ID)
	s.Equal("Home - Rent", got.Description)
	s.True(got.Amount.Equal(e.Amount))
}

func (s *Suite) TestOwnerIsolation() {
	var a, b []int64
	for i := 0; i < 5; i++ {
		a = append(a, s.create("A", core.Expense, day, "Home", "10", "a").ID)
		b = append(b, s.create("B", core.Expense, day, "Home", "20", "b").ID)
	}

	listA, err := s.store.ListByDate(s.ctx, "A", core.Expense, day)
	s.Require().NoError(err)
	s.Equal(a, ids(listA))
	for _, e := range listA {
		s.Equal("A", e.Owner)
	}

	listB, err := s.store.ListByDate(s.ctx, "B", core.Expense, day)
	s.Require().NoError(err)
	s.Equal(b, ids(listB))

	_, err = s.store.Get(s.ctx, "A", core.Expense, b[0])
	s.ErrorIs(err, storage.ErrNotFound)
	_, err = s.store.UpdateAmount(s.ctx, "A", core.Expense, b[0], decimal.NewFromInt(1))
	s.ErrorIs(err, storage.ErrNotFound)
	_, err = s.store.UpdateDescription(s.ctx, "A", core.Expense, b[0], "hijack")
	s.ErrorIs(err, storage.ErrNotFound)
	_, err = s.store.Delete(s.ctx, "A", core.Expense, b[0])
	s.ErrorIs(err, storage.ErrNotFound)

	untouched, err := s.store.Get(s.ctx, "B", core.Expense, b[0])
	s.Require().NoError(err)
	s.Equal("b", untouched.Description)
	s.True(untouched.Amount.Equal(decimal.NewFromInt(20)))
}

func (s *Suite) TestKindsAreSeparateRecordSets() {
	s.create("u1", core.Expense, day, "Home", "10", "rent")
	inc := s.create("u1", core.Income, day, "Incomes", "1500", "salary")

	expenses, err := s.store.ListByDate(s.ctx, "u1", core.Expense, day)
	s.Require().NoError(err)
	s.Len(expenses, 1)

	incomes, err := s.store.ListByDate(s.ctx, "u1", core.Income, day)
	s.Require().NoError(err)
	s.Require().Len(incomes, 1)
	s.Equal(inc.ID, incomes[0].ID)
	s.Equal(core.Income, incomes[0].Kind)
}

func (s *Suite) TestListByDateOrdersByLoggedAt() {
	e1 := s.create("u1", core.Expense, day, "Home", "1", "first")
	e2 := s.create("u1", core.Expense, day, "Car", "2", "second")
	e3 := s.create("u1", core.Expense, day, "Lazer", "3", "third")
	s.create("u1", core.Expense, day.AddDays(1), "Home", "4", "other day")

	got, err := s.store.ListByDate(s.ctx, "u1", core.Expense, day)
	s.Require().NoError(err)
	s.Equal([]int64{e1.ID, e2.ID, e3.ID}, ids(got))

	empty, err := s.store.ListByDate(s.ctx, "u1", core.Expense, day.AddDays(-1))
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *Suite) TestListByPeriod() {
	nov := s.create("u1", core.Expense, core.NewDate(2025, 11, 30), "Home", "1", "nov")
	oct := s.create("u1", core.Expense, core.NewDate(2025, 10, 1), "Home", "2", "oct")
	s.create("u1", core.Expense, core.NewDate(2024, 11, 15), "Home", "3", "last year")

	month, err := s.store.ListByPeriod(s.ctx, "u1", core.Expense, 2025, 11)
	s.Require().NoError(err)
	s.Equal([]int64{nov.ID}, ids(month))

	year, err := s.store.ListByPeriod(s.ctx, "u1", core.Expense, 2025, 0)
	s.Require().NoError(err)
	s.Equal([]int64{oct.ID, nov.ID}, ids(year))

	_, err = s.store.ListByPeriod(s.ctx, "u1", core.Expense, 2025, 13)
	s.Error(err)
}

func (s *Suite) TestListBetweenIsInclusive() {
	week := core.WeekOf(day)
	first := s.create("u1", core.Income, week.Start, "Incomes", "1", "mon")
	last := s.create("u1", core.Income, week.End, "Incomes", "2", "sun")
	s.create("u1", core.Income, week.End.AddDays(1), "Incomes", "3", "next mon")

	got, err := s.store.ListBetween(s.ctx, "u1", core.Income, week)
	s.Require().NoError(err)
	s.Equal([]int64{first.ID, last.ID}, ids(got))
}

func (s *Suite) TestAggregateByCategory() {
	s.create("u1", core.Expense, day, "Lazer", "5.50", "coffee")
	s.create("u1", core.Expense, day, "Home", "800", "rent")
	s.create("u1", core.Expense, day, "Lazer", "4.50", "coffee")
	s.create("u2", core.Expense, day, "Car", "40", "fuel")

	got, err := s.store.AggregateByCategory(s.ctx, "u1", core.Expense, core.DayPeriod(day, "Today"))
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("Home", got[0].Category)
	s.Equal(1, got[0].Count)
	s.Equal("Lazer", got[1].Category)
	s.Equal(2, got[1].Count)
	s.True(got[1].Total.Equal(decimal.NewFromInt(10)), got[1].Total.String())
}

func (s *Suite) TestUpdateAmountKeepsOtherFields() {
	e := s.create("u1", core.Expense, day, "Home", "50", "groceries")

	got, err := s.store.UpdateAmount(s.ctx, "u1", core.Expense, e.ID, decimal.RequireFromString("45.00"))
	s.Require().NoError(err)
	s.True(got.Amount.Equal(decimal.NewFromInt(45)))
	s.Equal("groceries", got.Description)
	s.Equal(e.OccurredOn, got.OccurredOn)
	s.Equal(e.Category, got.Category)
	s.True(e.LoggedAt.Equal(got.LoggedAt))

	_, err = s.store.UpdateAmount(s.ctx, "u1", core.Expense, e.ID+100, decimal.NewFromInt(1))
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *Suite) TestUpdateDescription() {
	e := s.create("u1", core.Income, day, "Incomes", "10", "old")

	got, err := s.store.UpdateDescription(s.ctx, "u1", core.Income, e.ID, "new")
	s.Require().NoError(err)
	s.Equal("new", got.Description)
	s.True(got.Amount.Equal(e.Amount))

	_, err = s.store.UpdateDescription(s.ctx, "u1", core.Expense, e.ID, "wrong kind")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *Suite) TestDeleteDoesNotReuseIDs() {
	e1 := s.create("u1", core.Expense, day, "Home", "1", "one")
	e2 := s.create("u1", core.Expense, day, "Home", "2", "two")

	deleted, err := s.store.Delete(s.ctx, "u1", core.Expense, e2.ID)
	s.Require().NoError(err)
	s.Equal(e2.ID, deleted.ID)

	_, err = s.store.Delete(s.ctx, "u1", core.Expense, e2.ID)
	s.ErrorIs(err, storage.ErrNotFound)
	_, err = s.store.Get(s.ctx, "u1", core.Expense, e2.ID)
	s.ErrorIs(err, storage.ErrNotFound)

	e3 := s.create("u1", core.Expense, day, "Home", "3", "three")
	s.NotEqual(e2.ID, e3.ID)

	left, err := s.store.ListByDate(s.ctx, "u1", core.Expense, day)
	s.Require().NoError(err)
	s.Equal([]int64{e1.ID, e3.ID}, ids(left))
}

func (s *Suite) TestConcurrentUpdatesOnOneEntry() {
	e := s.create("u1", core.Expense, day, "Home", "1", "x")

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			_, err := s.store.UpdateAmount(s.ctx, "u1", core.Expense, e.ID, decimal.NewFromInt(n))
			errs <- err
		}(int64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	got, err := s.store.Get(s.ctx, "u1", core.Expense, e.ID)
	s.Require().NoError(err)
	s.True(got.Amount.GreaterThanOrEqual(decimal.NewFromInt(1)))
	s.True(got.Amount.LessThanOrEqual(decimal.NewFromInt(20)))
}

func (s *Suite) TestOwnersAndPurge() {
	m, ok := s.store.(storage.Maintainer)
	if !ok {
		s.T().Skip("store has no maintenance operations")
	}
	s.create("a", core.Expense, day, "Home", "1", "x")
	s.create("a", core.Income, day, "Incomes", "1", "x")
	s.create("b", core.Expense, day, "Home", "1", "x")
	s.create("b", core.Expense, day, "Home", "1", "x")

	owners, err := m.Owners(s.ctx)
	s.Require().NoError(err)
	s.Equal([]storage.OwnerStats{
		{Owner: "a", Expenses: 1, Incomes: 1},
		{Owner: "b", Expenses: 2, Incomes: 0},
	}, owners)

	purged, err := m.PurgeOwner(s.ctx, "b")
	s.Require().NoError(err)
	s.Equal(storage.OwnerStats{Owner: "b", Expenses: 2}, purged)

	owners, err = m.Owners(s.ctx)
	s.Require().NoError(err)
	s.Len(owners, 1)
}
