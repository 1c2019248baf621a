package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/diogoviieira/register-track-bot/internal/core"
	ports "github.com/diogoviieira/register-track-bot/internal/sheets"
)

type rowKey struct {
	kind core.Kind
	id   int64
}

// Mirror is an in-process stand-in for the spreadsheet.
type Mirror struct {
	mu   sync.Mutex
	rows map[rowKey]core.Entry
}

var (
	_ ports.Mirror    = (*Mirror)(nil)
	_ ports.RowLister = (*Mirror)(nil)
)

func New() *Mirror {
	return &Mirror{rows: make(map[rowKey]core.Entry)}
}

func (m *Mirror) Upsert(_ context.Context, e core.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[rowKey{e.Kind, e.ID}] = e
	return nil
}

func (m *Mirror) Remove(_ context.Context, e core.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, rowKey{e.Kind, e.ID})
	return nil
}

// Rows returns the rows of a kind and year ordered by id.
func (m *Mirror) Rows(_ context.Context, kind core.Kind, year int) ([]core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Entry
	for k, e := range m.rows {
		if k.kind == kind && e.OccurredOn.Year() == year {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len counts every mirrored row.
func (m *Mirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
