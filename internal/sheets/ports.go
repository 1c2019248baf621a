package sheets

import (
	"context"

	"github.com/diogoviieira/register-track-bot/internal/core"
)

// Ports for outbound adapters.
type (
	// Mirror keeps a spreadsheet copy of the entries. Rows are keyed by
	// kind and entry id, so applying the same change twice is harmless.
	Mirror interface {
		Upsert(ctx context.Context, e core.Entry) error
		Remove(ctx context.Context, e core.Entry) error
	}

	// RowLister reads the mirrored rows of one kind and year back.
	RowLister interface {
		Rows(ctx context.Context, kind core.Kind, year int) ([]core.Entry, error)
	}
)
