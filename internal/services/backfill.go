package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/diogoviieira/register-track-bot/internal/core"
	"github.com/diogoviieira/register-track-bot/internal/sheets"
	"github.com/diogoviieira/register-track-bot/internal/storage"
)

// BackfillSource is what a backfill reads: every owner, then their entries.
type BackfillSource interface {
	storage.Maintainer
	ListBetween(ctx context.Context, owner string, kind core.Kind, p core.Period) ([]core.Entry, error)
}

// BackfillStats counts the rows a backfill wrote and the ones it could not.
type BackfillStats struct {
	Owners   int
	Mirrored int
	Failed   int
}

// Backfill copies stored entries into the sheet mirror. The mirror is keyed
// by entry id, so running it over rows the worker already wrote is harmless.
type Backfill struct {
	source BackfillSource
	mirror sheets.Mirror
	// MaxFailures stops the run once this many rows failed (default: 10)
	MaxFailures int
}

func NewBackfill(source BackfillSource, mirror sheets.Mirror) *Backfill {
	return &Backfill{source: source, mirror: mirror, MaxFailures: 10}
}

// Run mirrors every entry dated within p. A failed row is logged and
// skipped until MaxFailures is reached.
func (b *Backfill) Run(ctx context.Context, p core.Period) (BackfillStats, error) {
	var stats BackfillStats

	owners, err := b.source.Owners(ctx)
	if err != nil {
		return stats, fmt.Errorf("list owners: %w", err)
	}

	var errs []error
	for _, o := range owners {
		stats.Owners++
		for _, kind := range core.Kinds() {
			entries, err := b.source.ListBetween(ctx, o.Owner, kind, p)
			if err != nil {
				return stats, fmt.Errorf("list %s entries of %s: %w", kind, o.Owner, err)
			}

			for _, e := range entries {
				if err := ctx.Err(); err != nil {
					return stats, err
				}
				if err := b.mirror.Upsert(ctx, e); err != nil {
					stats.Failed++
					errs = append(errs, fmt.Errorf("entry %s/%d: %w", kind, e.ID, err))
					slog.ErrorContext(ctx, "Failed to mirror entry",
						"owner", e.Owner,
						"kind", kind,
						"entry_id", e.ID,
						"error", err)
					if stats.Failed >= b.MaxFailures {
						return stats, fmt.Errorf("backfill stopped after %d failures: %w", stats.Failed, errors.Join(errs...))
					}
					continue
				}
				stats.Mirrored++
			}
		}
	}

	slog.InfoContext(ctx, "Backfill complete",
		"period", p.String(),
		"owners", stats.Owners,
		"mirrored", stats.Mirrored,
		"failed", stats.Failed)

	if len(errs) > 0 {
		return stats, fmt.Errorf("backfill: %w", errors.Join(errs...))
	}
	return stats, nil
}
