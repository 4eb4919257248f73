package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is a process-local Backend for development and tests. Records
// are stored serialized so callers never share mutable state with the store.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemoryStore creates an in-memory backend. ttl <= 0 uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// SetClock overrides the time source used for expiry.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now != nil {
		m.now = now
	}
}

// Load implements Backend.
func (m *MemoryStore) Load(ctx context.Context, userID string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readLocked(userID)
}

// Save implements Backend.
func (m *MemoryStore) Save(ctx context.Context, userID string, sess Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeLocked(userID, sess)
}

// Update implements Backend. The whole read-modify-write runs under the store lock.
func (m *MemoryStore) Update(ctx context.Context, userID string, fn func(*Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.readLocked(userID)
	if err != nil {
		sess = Session{}
	}
	if err := fn(&sess); err != nil {
		return err
	}
	return m.writeLocked(userID, sess)
}

func (m *MemoryStore) readLocked(userID string) (Session, error) {
	entry, ok := m.entries[userID]
	if !ok {
		return Session{}, nil
	}
	if !m.now().Before(entry.expiresAt) {
		delete(m.entries, userID)
		return Session{}, nil
	}
	var sess Session
	if err := json.Unmarshal(entry.data, &sess); err != nil {
		return Session{}, fmt.Errorf("session: failed to decode state: %w", err)
	}
	return sess, nil
}

func (m *MemoryStore) writeLocked(userID string, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: failed to marshal state: %w", err)
	}
	m.entries[userID] = memoryEntry{data: data, expiresAt: m.now().Add(m.ttl)}
	return nil
}
