package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/diogoviieira/register-track-bot/internal/amqp"
	"github.com/diogoviieira/register-track-bot/internal/core"
	"github.com/diogoviieira/register-track-bot/internal/storage"
)

// Publisher sends entry change events. *amqp.Client satisfies it.
type Publisher interface {
	PublishEntryEvent(ctx context.Context, ev *amqp.EntryEvent) error
	Close() error
}

// EntryService orchestrates entry operations across the record store and AMQP.
// The store is the source of truth: publishing is best-effort and never fails
// an operation that already succeeded.
type EntryService struct {
	storage   storage.Store
	publisher Publisher
}

var _ storage.Store = (*EntryService)(nil)

// NewEntryService wraps store. publisher may be nil to disable events.
func NewEntryService(store storage.Store, publisher Publisher) *EntryService {
	return &EntryService{
		storage:   store,
		publisher: publisher,
	}
}

func (s *EntryService) Create(ctx context.Context, ne core.NewEntry) (core.Entry, error) {
	e, err := s.storage.Create(ctx, ne)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}
	s.publish(ctx, amqp.EventCreated, e)
	return e, nil
}

func (s *EntryService) Get(ctx context.Context, owner string, kind core.Kind, id int64) (core.Entry, error) {
	return s.storage.Get(ctx, owner, kind, id)
}

func (s *EntryService) ListByDate(ctx context.Context, owner string, kind core.Kind, date core.Date) ([]core.Entry, error) {
	return s.storage.ListByDate(ctx, owner, kind, date)
}

func (s *EntryService) ListByPeriod(ctx context.Context, owner string, kind core.Kind, year, month int) ([]core.Entry, error) {
	return s.storage.ListByPeriod(ctx, owner, kind, year, month)
}

func (s *EntryService) ListBetween(ctx context.Context, owner string, kind core.Kind, p core.Period) ([]core.Entry, error) {
	return s.storage.ListBetween(ctx, owner, kind, p)
}

func (s *EntryService) AggregateByCategory(ctx context.Context, owner string, kind core.Kind, p core.Period) ([]core.CategoryTotal, error) {
	return s.storage.AggregateByCategory(ctx, owner, kind, p)
}

func (s *EntryService) UpdateAmount(ctx context.Context, owner string, kind core.Kind, id int64, amount decimal.Decimal) (core.Entry, error) {
	e, err := s.storage.UpdateAmount(ctx, owner, kind, id, amount)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update amount: %w", err)
	}
	s.publish(ctx, amqp.EventUpdated, e)
	return e, nil
}

func (s *EntryService) UpdateDescription(ctx context.Context, owner string, kind core.Kind, id int64, text string) (core.Entry, error) {
	e, err := s.storage.UpdateDescription(ctx, owner, kind, id, text)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update description: %w", err)
	}
	s.publish(ctx, amqp.EventUpdated, e)
	return e, nil
}

func (s *EntryService) Delete(ctx context.Context, owner string, kind core.Kind, id int64) (core.Entry, error) {
	e, err := s.storage.Delete(ctx, owner, kind, id)
	if err != nil {
		return core.Entry{}, fmt.Errorf("delete entry: %w", err)
	}
	s.publish(ctx, amqp.EventDeleted, e)
	return e, nil
}

// Owners lists owners when the store supports maintenance.
func (s *EntryService) Owners(ctx context.Context) ([]storage.OwnerStats, error) {
	m, ok := s.storage.(storage.Maintainer)
	if !ok {
		return nil, errors.ErrUnsupported
	}
	return m.Owners(ctx)
}

// PurgeOwner removes every entry of owner. No per-entry events are published.
func (s *EntryService) PurgeOwner(ctx context.Context, owner string) (storage.OwnerStats, error) {
	m, ok := s.storage.(storage.Maintainer)
	if !ok {
		return storage.OwnerStats{}, errors.ErrUnsupported
	}
	return m.PurgeOwner(ctx, owner)
}

func (s *EntryService) publish(ctx context.Context, t amqp.EventType, e core.Entry) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping event", "type", t, "entry_id", e.ID)
		return
	}

	ev := amqp.NewEntryEvent(t, e)
	// Detached so a cancelled request does not drop the event of a committed change.
	if err := s.publisher.PublishEntryEvent(context.WithoutCancel(ctx), ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry event",
			"type", t,
			"entry_id", e.ID,
			"owner", e.Owner,
			"error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *EntryService) Close() error {
	var errs []error

	if c, ok := s.storage.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close entry service: %w", errors.Join(errs...))
	}

	return nil
}
