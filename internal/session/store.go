package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultTTL is the sliding inactivity window after which a session expires.
	DefaultTTL = 30 * time.Minute
	// DefaultHistoryLimit is how many turns are retained per session.
	DefaultHistoryLimit = 5
	// DefaultKeyPrefix namespaces session records in the backing store.
	DefaultKeyPrefix = "conversation:"
)

// ErrConflict is returned when an optimistic update kept losing races.
var ErrConflict = errors.New("session: concurrent update conflict")

// Backend persists whole session records with a sliding expiry.
type Backend interface {
	// Load returns the stored session, or an empty one when none exists.
	Load(ctx context.Context, userID string) (Session, error)
	// Save overwrites the record and resets its expiry.
	Save(ctx context.Context, userID string, s Session) error
	// Update applies fn to the current record and writes the result, resetting expiry.
	Update(ctx context.Context, userID string, fn func(*Session) error) error
}

// Store exposes per-field views over a Backend. Each mutator is a
// read-modify-write of the whole record.
type Store struct {
	backend      Backend
	historyLimit int
	now          func() time.Time
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithHistoryLimit overrides how many turns are kept.
func WithHistoryLimit(limit int) StoreOption {
	return func(s *Store) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// WithClock overrides the time source used to stamp turns.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore wraps backend.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	if backend == nil {
		panic("session: backend cannot be nil")
	}
	s := &Store{
		backend:      backend,
		historyLimit: DefaultHistoryLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the session for userID, empty when absent or expired.
func (s *Store) Load(ctx context.Context, userID string) (Session, error) {
	return s.backend.Load(ctx, userID)
}

// Save overwrites the session for userID.
func (s *Store) Save(ctx context.Context, userID string, sess Session) error {
	sess.trimHistory(s.historyLimit)
	return s.backend.Save(ctx, userID, sess)
}

// AppendTurn records payload as the newest turn, evicting the oldest beyond the limit.
func (s *Store) AppendTurn(ctx context.Context, userID string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("session: marshal turn payload: %w", err)
	}
	ts := s.now()
	return s.backend.Update(ctx, userID, func(sess *Session) error {
		sess.History = append(sess.History, Turn{Timestamp: ts, Payload: raw})
		sess.trimHistory(s.historyLimit)
		return nil
	})
}

// Preferences returns the stored preferences.
func (s *Store) Preferences(ctx context.Context, userID string) (Preferences, error) {
	sess, err := s.backend.Load(ctx, userID)
	if err != nil {
		return Preferences{}, err
	}
	return sess.Preferences, nil
}

// StorePreferences merges prefs into the stored preferences.
func (s *Store) StorePreferences(ctx context.Context, userID string, prefs Preferences) error {
	return s.backend.Update(ctx, userID, func(sess *Session) error {
		sess.Preferences = sess.Preferences.Merge(prefs)
		return nil
	})
}

// ExpectedSlot returns the slot currently being elicited, or "".
func (s *Store) ExpectedSlot(ctx context.Context, userID string) (string, error) {
	sess, err := s.backend.Load(ctx, userID)
	if err != nil {
		return "", err
	}
	return sess.ExpectedSlot, nil
}

// SetExpectedSlot records the slot being elicited. An empty slot clears it.
func (s *Store) SetExpectedSlot(ctx context.Context, userID, slot string) error {
	return s.backend.Update(ctx, userID, func(sess *Session) error {
		sess.ExpectedSlot = slot
		return nil
	})
}

// Question returns the open clarification question, or nil.
func (s *Store) Question(ctx context.Context, userID string) (*Question, error) {
	sess, err := s.backend.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sess.Question, nil
}

// SetQuestion opens a clarification question. Questions without options are rejected.
func (s *Store) SetQuestion(ctx context.Context, userID string, q Question) error {
	if len(q.Options) == 0 {
		return fmt.Errorf("session: question for slot %q has no options", q.Slot)
	}
	if q.Metadata == nil {
		q.Metadata = map[string]string{}
	}
	stored := cloneQuestion(&q)
	return s.backend.Update(ctx, userID, func(sess *Session) error {
		sess.Question = stored
		return nil
	})
}

// ClearQuestion removes any open question.
func (s *Store) ClearQuestion(ctx context.Context, userID string) error {
	return s.backend.Update(ctx, userID, func(sess *Session) error {
		sess.Question = nil
		return nil
	})
}
