// Package memory provides an in-memory record store with the same contract
// as the SQLite repository. Data is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diogoviieira/register-track-bot/internal/core"
	"github.com/diogoviieira/register-track-bot/internal/storage"
)

type Store struct {
	mu      sync.RWMutex
	nextID  map[core.Kind]int64
	entries map[core.Kind]map[int64]core.Entry
	now     func() time.Time
}

var (
	_ storage.Store      = (*Store)(nil)
	_ storage.Maintainer = (*Store)(nil)
)

func New() *Store {
	s := &Store{
		nextID:  make(map[core.Kind]int64),
		entries: make(map[core.Kind]map[int64]core.Entry),
		now:     time.Now,
	}
	for _, k := range core.Kinds() {
		s.entries[k] = make(map[int64]core.Entry)
	}
	return s
}

// WithClock replaces the clock used for LoggedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

func (s *Store) set(kind core.Kind) (map[int64]core.Entry, error) {
	set, ok := s.entries[kind]
	if !ok {
		return nil, core.ErrInvalidKind
	}
	return set, nil
}

func (s *Store) Create(ctx context.Context, ne core.NewEntry) (core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.set(ne.Kind)
	if err != nil {
		return core.Entry{}, err
	}
	s.nextID[ne.Kind]++
	ne.Amount = core.RoundCents(ne.Amount)
	e := ne.Entry(s.nextID[ne.Kind], s.now().UTC())
	set[e.ID] = e
	return e, nil
}

func (s *Store) Get(ctx context.Context, owner string, kind core.Kind, id int64) (core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, err := s.set(kind)
	if err != nil {
		return core.Entry{}, err
	}
	e, ok := set[id]
	if !ok || e.Owner != owner {
		return core.Entry{}, storage.ErrNotFound
	}
	return e, nil
}

func (s *Store) ListByDate(ctx context.Context, owner string, kind core.Kind, date core.Date) ([]core.Entry, error) {
	return s.filter(kind, func(e core.Entry) bool {
		return e.Owner == owner && e.OccurredOn.Equal(date.Time)
	})
}

func (s *Store) ListByPeriod(ctx context.Context, owner string, kind core.Kind, year, month int) ([]core.Entry, error) {
	p, err := storage.PeriodOf(year, month)
	if err != nil {
		return nil, err
	}
	return s.ListBetween(ctx, owner, kind, p)
}

func (s *Store) ListBetween(ctx context.Context, owner string, kind core.Kind, p core.Period) ([]core.Entry, error) {
	return s.filter(kind, func(e core.Entry) bool {
		return e.Owner == owner && p.Contains(e.OccurredOn)
	})
}

func (s *Store) AggregateByCategory(ctx context.Context, owner string, kind core.Kind, p core.Period) ([]core.CategoryTotal, error) {
	entries, err := s.ListBetween(ctx, owner, kind, p)
	if err != nil {
		return nil, err
	}
	return core.GroupByCategory(entries), nil
}

func (s *Store) UpdateAmount(ctx context.Context, owner string, kind core.Kind, id int64, amount decimal.Decimal) (core.Entry, error) {
	return s.update(owner, kind, id, func(e *core.Entry) { e.Amount = core.RoundCents(amount) })
}

func (s *Store) UpdateDescription(ctx context.Context, owner string, kind core.Kind, id int64, text string) (core.Entry, error) {
	return s.update(owner, kind, id, func(e *core.Entry) { e.Description = text })
}

func (s *Store) Delete(ctx context.Context, owner string, kind core.Kind, id int64) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.set(kind)
	if err != nil {
		return core.Entry{}, err
	}
	e, ok := set[id]
	if !ok || e.Owner != owner {
		return core.Entry{}, storage.ErrNotFound
	}
	delete(set, id)
	return e, nil
}

func (s *Store) Owners(ctx context.Context) ([]storage.OwnerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byOwner := make(map[string]*storage.OwnerStats)
	for kind, set := range s.entries {
		for _, e := range set {
			st, ok := byOwner[e.Owner]
			if !ok {
				st = &storage.OwnerStats{Owner: e.Owner}
				byOwner[e.Owner] = st
			}
			if kind == core.Expense {
				st.Expenses++
			} else {
				st.Incomes++
			}
		}
	}
	out := make([]storage.OwnerStats, 0, len(byOwner))
	for _, st := range byOwner {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out, nil
}

func (s *Store) PurgeOwner(ctx context.Context, owner string) (storage.OwnerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := storage.OwnerStats{Owner: owner}
	for kind, set := range s.entries {
		for id, e := range set {
			if e.Owner != owner {
				continue
			}
			delete(set, id)
			if kind == core.Expense {
				stats.Expenses++
			} else {
				stats.Incomes++
			}
		}
	}
	return stats, nil
}

func (s *Store) update(owner string, kind core.Kind, id int64, apply func(*core.Entry)) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.set(kind)
	if err != nil {
		return core.Entry{}, err
	}
	e, ok := set[id]
	if !ok || e.Owner != owner {
		return core.Entry{}, storage.ErrNotFound
	}
	apply(&e)
	set[id] = e
	return e, nil
}

// filter returns matching entries ordered by date, then logged_at, then id.
func (s *Store) filter(kind core.Kind, keep func(core.Entry) bool) ([]core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, err := s.set(kind)
	if err != nil {
		return nil, err
	}
	var out []core.Entry
	for _, e := range set {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.OccurredOn.Equal(b.OccurredOn.Time) {
			return a.OccurredOn.Before(b.OccurredOn)
		}
		if !a.LoggedAt.Equal(b.LoggedAt) {
			return a.LoggedAt.Before(b.LoggedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}
