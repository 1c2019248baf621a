package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/diogoviieira/register-track-bot/internal/amqp"
	"github.com/diogoviieira/register-track-bot/internal/cache"
	"github.com/diogoviieira/register-track-bot/internal/sheets"
)

const (
	seenEventsSize = 4096
	seenEventsTTL  = time.Hour
)

// MirrorWorker applies entry change events to a sheet mirror. Redelivered
// events are dropped by event id.
type MirrorWorker struct {
	mirror sheets.Mirror
	seen   *cache.LRUCache[struct{}]
}

func NewMirrorWorker(mirror sheets.Mirror) *MirrorWorker {
	return &MirrorWorker{
		mirror: mirror,
		seen:   cache.NewLRUCache[struct{}](seenEventsSize, seenEventsTTL),
	}
}

// Seen exposes the dedup cache so callers can register it for cleanup.
func (w *MirrorWorker) Seen() cache.Cleaner { return w.seen }

// HandleEntryEvent processes a single entry event from AMQP. A returned error
// makes the consumer requeue the message once.
func (w *MirrorWorker) HandleEntryEvent(ctx context.Context, ev *amqp.EntryEvent) error {
	if ev.EventID != "" {
		if _, dup := w.seen.Get(ev.EventID); dup {
			slog.DebugContext(ctx, "Skipping duplicate entry event", "event_id", ev.EventID)
			return nil
		}
	}

	slog.InfoContext(ctx, "Processing entry event",
		"event_id", ev.EventID,
		"type", ev.Type,
		"kind", ev.Kind,
		"entry_id", ev.EntryID)

	if ev.Entry == nil {
		// the sheet row cannot be located without the entry date
		slog.WarnContext(ctx, "Entry event has no snapshot, skipping", "event_id", ev.EventID, "entry_id", ev.EntryID)
		return nil
	}

	entry, err := ev.ToEntry()
	if err != nil {
		return fmt.Errorf("decode entry snapshot: %w", err)
	}

	switch ev.Type {
	case amqp.EventCreated, amqp.EventUpdated:
		if err := w.mirror.Upsert(ctx, entry); err != nil {
			return fmt.Errorf("mirror upsert: %w", err)
		}
	case amqp.EventDeleted:
		if err := w.mirror.Remove(ctx, entry); err != nil {
			return fmt.Errorf("mirror remove: %w", err)
		}
	default:
		slog.WarnContext(ctx, "Unknown entry event type, skipping", "event_id", ev.EventID, "type", ev.Type)
		return nil
	}

	if ev.EventID != "" {
		w.seen.Set(ev.EventID, struct{}{})
	}
	slog.InfoContext(ctx, "Entry event mirrored", "event_id", ev.EventID, "entry_id", ev.EntryID)
	return nil
}
