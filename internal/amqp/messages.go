package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/diogoviieira/register-track-bot/internal/core"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// EntryPayload is the entry as it stood after the change.
type EntryPayload struct {
	Date        string          `json:"date"`
	LoggedAt    time.Time       `json:"logged_at"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// EntryEvent announces a change to one entry. Consumers use EventID to
// drop duplicates.
type EntryEvent struct {
	EventID   string        `json:"event_id"`
	Type      EventType     `json:"type"`
	Owner     string        `json:"owner"`
	Kind      core.Kind     `json:"kind"`
	EntryID   int64         `json:"entry_id"`
	Entry     *EntryPayload `json:"entry,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewEntryEvent creates an event carrying a snapshot of e.
func NewEntryEvent(t EventType, e core.Entry) *EntryEvent {
	return &EntryEvent{
		EventID: uuid.NewString(),
		Type:    t,
		Owner:   e.Owner,
		Kind:    e.Kind,
		EntryID: e.ID,
		Entry: &EntryPayload{
			Date:        e.OccurredOn.String(),
			LoggedAt:    e.LoggedAt,
			Category:    e.Category,
			Subcategory: e.Subcategory,
			Amount:      e.Amount,
			Description: e.Description,
		},
		Timestamp: time.Now().UTC(),
	}
}

// ToEntry rebuilds the entry from the event snapshot.
func (m *EntryEvent) ToEntry() (core.Entry, error) {
	e := core.Entry{ID: m.EntryID, Owner: m.Owner, Kind: m.Kind}
	if m.Entry == nil {
		return e, nil
	}
	d, err := core.ParseISODate(m.Entry.Date)
	if err != nil {
		return core.Entry{}, err
	}
	e.OccurredOn = d
	e.LoggedAt = m.Entry.LoggedAt
	e.Category = m.Entry.Category
	e.Subcategory = m.Entry.Subcategory
	e.Amount = m.Entry.Amount
	e.Description = m.Entry.Description
	return e, nil
}

// ToJSON converts the message to JSON bytes
func (m *EntryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntryEventFromJSON(data []byte) (*EntryEvent, error) {
	var msg EntryEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
