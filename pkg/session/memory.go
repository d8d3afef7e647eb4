package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store. It's the default and suits a single
// server; records do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]storedRecord
	closed  bool
	done    chan struct{}
}

type storedRecord struct {
	rec       *Record
	expiresAt time.Time
}

// MemoryStoreOption configures MemoryStore behavior.
type MemoryStoreOption func(*memoryStoreConfig)

type memoryStoreConfig struct {
	cleanupInterval time.Duration
}

// WithCleanupInterval sets how often expired records are dropped.
// Default: 1 minute.
func WithCleanupInterval(d time.Duration) MemoryStoreOption {
	return func(c *memoryStoreConfig) {
		c.cleanupInterval = d
	}
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	cfg := &memoryStoreConfig{cleanupInterval: time.Minute}
	for _, opt := range opts {
		opt(cfg)
	}

	store := &MemoryStore{
		records: make(map[string]storedRecord),
		done:    make(chan struct{}),
	}
	go store.cleanupLoop(cfg.cleanupInterval)
	return store
}

func (m *MemoryStore) Save(_ context.Context, rec *Record, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.records[rec.ID] = storedRecord{rec: rec.Clone(), expiresAt: expiresAt}
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	s, ok := m.records[id]
	if !ok || time.Now().After(s.expiresAt) {
		return nil, nil
	}
	return s.rec.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	delete(m.records, id)
	return nil
}

func (m *MemoryStore) Touch(_ context.Context, id string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	if s, ok := m.records[id]; ok {
		s.expiresAt = expiresAt
		m.records[id] = s
	}
	return nil
}

func (m *MemoryStore) SaveAll(_ context.Context, recs []*Record, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	for _, rec := range recs {
		m.records[rec.ID] = storedRecord{rec: rec.Clone(), expiresAt: expiresAt}
	}
	return nil
}

// Close shuts down the store and drops every record.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	m.records = nil
	return nil
}

// Count returns the number of stored records, expired or not.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.done:
			return
		}
	}
}

func (m *MemoryStore) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	now := time.Now()
	for id, s := range m.records {
		if now.After(s.expiresAt) {
			delete(m.records, id)
		}
	}
}
