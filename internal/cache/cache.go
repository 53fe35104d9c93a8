// Package cache provides an in-process key/value store where every entry
// carries its own expiration timer.
//
// The store is the only shared mutable state in the query pipeline and is
// safe for concurrent use. Entries are removed either by an explicit Delete,
// by being overwritten, or by their timer firing. There is no persistence:
// entries are lost on restart, which is intentional.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// entry is a stored value together with its expiration deadline and the
// timer that will remove it. Entries are replaced wholesale, never mutated.
type entry struct {
	value     any
	expiresAt time.Time
	timer     Timer
}

// Stats reports observability counters for the store.
type Stats struct {
	Count int `json:"count"`
}

// Store is a concurrency-safe result cache with per-entry TTLs.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	clock   Clock
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock, enabling deterministic expiry in tests.
func WithClock(c Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithLogger sets the logger used for cache housekeeping events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		clock:   realClock{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set stores value under key and schedules its removal after ttl.
// If the key already holds an entry with a pending timer, that timer is
// cancelled before the new entry is installed, so a stale expiration can
// never delete a fresher value. A non-positive ttl removes the key.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		s.Delete(key)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok && old.timer != nil {
		old.timer.Stop()
	}

	e := &entry{
		value:     value,
		expiresAt: s.clock.Now().Add(ttl),
	}
	e.timer = s.clock.AfterFunc(ttl, func() {
		s.expire(key, e)
	})
	s.entries[key] = e
}

// Get returns the live value for key. It reports false when the key is
// missing or its entry has passed its deadline, even if the timer has not
// fired yet.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}

	// Timers fire asynchronously; never serve a value past its deadline.
	if !s.clock.Now().Before(e.expiresAt) {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.entries, key)
		return nil, false
	}

	return e.value, true
}

// Delete cancels any pending timer and removes the entry.
// It reports whether an entry was removed.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(s.entries, key)
	return true
}

// Flush removes every entry, cancelling all pending timers.
// It returns the number of entries removed.
func (s *Store) Flush() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	for key, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.entries, key)
	}
	if n > 0 {
		s.logger.Info("cache flushed", "entries_removed", n)
	}
	return n
}

// Stats returns the current entry count. No side effects.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Count: len(s.entries)}
}

// expire is the timer callback for a single entry. It no-ops when the entry
// it was armed for has already been replaced or removed, so a racing Set or
// Delete on the same key cannot be undone by a stale timer.
func (s *Store) expire(key string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.entries[key]; ok && current == e {
		delete(s.entries, key)
	}
}
