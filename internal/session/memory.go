package session

import (
	"context"
	"sync"
	"time"

	"github.com/simp-lee/dashboard/internal/domain"
	"github.com/simp-lee/dashboard/internal/listing"
)

type memoryEntry struct {
	state   listing.State
	expires time.Time
}

// MemoryStore keeps states in process memory. Expired entries are dropped on
// access and by a periodic sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates a MemoryStore. A non-positive ttl uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Load returns the state for (sessionID, kind), or a fresh one.
func (m *MemoryStore) Load(_ context.Context, sessionID string, kind domain.Kind) (listing.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current(stateKey(sessionID, kind), kind), nil
}

// Update applies fn to the current state under the store lock.
func (m *MemoryStore) Update(_ context.Context, sessionID string, kind domain.Kind, fn func(listing.State) (listing.State, error)) (listing.State, error) {
	key := stateKey(sessionID, kind)

	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.current(key, kind)
	next, err := fn(cur)
	if err != nil {
		return cur, err
	}
	m.entries[key] = memoryEntry{state: next, expires: m.now().Add(m.ttl)}
	return next, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close stops the sweeper.
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() { close(m.stop) })
	return nil
}

// Len reports the number of live entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	return len(m.entries)
}

// current must be called with mu held.
func (m *MemoryStore) current(key string, kind domain.Kind) listing.State {
	e, ok := m.entries[key]
	if !ok {
		return listing.New(kind)
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return listing.New(kind)
	}
	return e.state
}

func (m *MemoryStore) sweepLoop() {
	interval := max(m.ttl/2, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			m.sweepLocked()
			m.mu.Unlock()
		}
	}
}

func (m *MemoryStore) sweepLocked() {
	now := m.now()
	for key, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, key)
		}
	}
}
