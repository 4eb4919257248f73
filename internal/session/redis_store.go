package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultCASRetries = 3

// RedisStore keeps one JSON document per user under a sliding TTL.
// Updates use WATCH/MULTI so a concurrent write to the same user is retried
// instead of silently overwritten.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	retries int
	tracer  trace.Tracer
}

// RedisOption customizes a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL overrides the sliding expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCASRetries sets how many times a conflicting update is retried.
func WithCASRetries(n int) RedisOption {
	return func(s *RedisStore) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithTracer overrides the tracer used for store spans.
func WithTracer(tracer trace.Tracer) RedisOption {
	return func(s *RedisStore) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewRedisStore builds a backend on an existing client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	s := &RedisStore{
		client:  client,
		prefix:  DefaultKeyPrefix,
		ttl:     DefaultTTL,
		retries: defaultCASRetries,
		tracer:  otel.Tracer("autosales.internal.session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the record key for userID.
func (s *RedisStore) Key(userID string) string {
	return s.prefix + userID
}

// Load implements Backend.
func (s *RedisStore) Load(ctx context.Context, userID string) (Session, error) {
	ctx, span := s.tracer.Start(ctx, "session.load")
	defer span.End()
	span.SetAttributes(attribute.String("autosales.user_id", userID))

	data, err := s.client.Get(ctx, s.Key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, nil
		}
		span.RecordError(err)
		return Session{}, fmt.Errorf("session: failed to load state: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		span.RecordError(err)
		return Session{}, fmt.Errorf("session: failed to decode state: %w", err)
	}
	return sess, nil
}

// Save implements Backend.
func (s *RedisStore) Save(ctx context.Context, userID string, sess Session) error {
	ctx, span := s.tracer.Start(ctx, "session.save")
	defer span.End()
	span.SetAttributes(attribute.String("autosales.user_id", userID))

	data, err := json.Marshal(sess)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal state: %w", err)
	}
	if err := s.client.Set(ctx, s.Key(userID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist state: %w", err)
	}
	return nil
}

// Update implements Backend with optimistic check-and-set. An undecodable
// record is replaced by a fresh session rather than blocking the user.
func (s *RedisStore) Update(ctx context.Context, userID string, fn func(*Session) error) error {
	ctx, span := s.tracer.Start(ctx, "session.update")
	defer span.End()
	span.SetAttributes(attribute.String("autosales.user_id", userID))

	key := s.Key(userID)
	txf := func(tx *redis.Tx) error {
		var sess Session
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("session: failed to load state: %w", err)
		default:
			if jsonErr := json.Unmarshal(data, &sess); jsonErr != nil {
				sess = Session{}
			}
		}

		if err := fn(&sess); err != nil {
			return err
		}

		encoded, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("session: failed to marshal state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt <= s.retries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			span.AddEvent("session.update.conflict", trace.WithAttributes(attribute.Int("attempt", attempt)))
			continue
		}
		span.RecordError(err)
		return err
	}
	span.RecordError(ErrConflict)
	return ErrConflict
}
