package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache defines a generic keyed cache.
type Cache[T any] interface {
	// Get retrieves a live value and refreshes its idle deadline.
	Get(key string) (T, bool)

	// Set stores a value, replacing any previous one for key.
	Set(key string, data T)

	// Delete removes a key. Deleting a missing key is a no-op.
	Delete(key string)

	// Size returns the current number of items in the cache.
	Size() int
}

// Cleaner is implemented by caches that can drop expired items.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs periodic cleanup of registered caches.
type Manager struct {
	mu          sync.Mutex
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
	stopped     bool
}

// NewManager creates a new cache manager.
func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup.
func (m *Manager) Register(cache Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches. Calling it
// more than once has no effect.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.stopped {
		return
	}
	m.started = true
	go m.cleanup(interval)
}

// CleanNow runs one cleanup pass synchronously and returns the number of
// removed items.
func (m *Manager) CleanNow() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanNow(); n > 0 {
				slog.Debug("Evicted expired cache items", "count", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine. It is safe to call repeatedly.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	started := m.started
	m.mu.Unlock()

	close(m.stopCleanup)
	if started {
		<-m.cleanupDone
	}
}
