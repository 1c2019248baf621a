package conversation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/diogoviieira/register-track-bot/internal/cache"
	"github.com/diogoviieira/register-track-bot/internal/core"
	"github.com/diogoviieira/register-track-bot/internal/log"
)

const (
	DefaultIdleTimeout = 15 * time.Minute
	DefaultMaxSessions = 10000
)

// Draft holds the fields collected so far by an Add flow, and the date and
// kind an Edit, Delete or View flow works on.
type Draft struct {
	Kind        core.Kind
	Date        core.Date
	Category    core.Category
	Subcategory string
	Amount      decimal.Decimal
	Description string
	// AutoDescription is set when a catalog rule replaces the description step.
	AutoDescription string
}

// Session is the in-progress conversation of one owner.
type Session struct {
	Owner     string
	Flow      Flow
	State     State
	Draft     Draft
	Selection []core.Entry
	Target    *core.Entry
	Field     Field
	Prompt    Prompt
	UpdatedAt time.Time

	spec *FlowSpec
}

// Sessions is the live session table, keyed by owner. Sessions idle for
// longer than the timeout are evicted.
type Sessions struct {
	cache *cache.LRUCache[*Session]
}

// NewSessions creates the table. A maxSessions <= 0 means unbounded.
// Evictions are logged through logger, or the default logger when nil.
func NewSessions(idleTimeout time.Duration, maxSessions int, logger *log.Logger, opts ...cache.Option[*Session]) *Sessions {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentEngine)
	opts = append([]cache.Option[*Session]{
		cache.WithEvictHook(func(owner string, s *Session) {
			logger.Info("Session evicted", log.FieldOwner, owner, log.FieldFlow, s.Flow, log.FieldState, s.State)
		}),
	}, opts...)
	return &Sessions{cache: cache.NewLRUCache[*Session](maxSessions, idleTimeout, opts...)}
}

func (t *Sessions) Get(owner string) (*Session, bool) {
	return t.cache.Get(owner)
}

func (t *Sessions) Put(s *Session) {
	t.cache.Set(s.Owner, s)
}

func (t *Sessions) Delete(owner string) {
	t.cache.Delete(owner)
}

// Len returns the number of live sessions.
func (t *Sessions) Len() int {
	return t.cache.Size()
}

// Cleaner exposes the table for periodic eviction by a cache.Manager.
func (t *Sessions) Cleaner() cache.Cleaner {
	return t.cache
}
