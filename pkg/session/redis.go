package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/vango-dev/gigmarket/internal/errors"
)

// DefaultRedisPrefix is the key prefix for session records.
const DefaultRedisPrefix = "gigmarket:session:"

// RedisStore keeps session records in Redis with a TTL, so any server
// behind the load balancer can resume a session.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	ownsClient bool
	closed     atomic.Bool
}

// RedisStoreOption configures RedisStore behavior.
type RedisStoreOption func(*RedisStore)

// WithRedisPrefix sets the key prefix for session keys.
func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore connects to redisURL (redis://host:port/db) and checks the
// connection.
func NewRedisStore(ctx context.Context, redisURL string, opts ...RedisStoreOption) (*RedisStore, error) {
	ropts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrSessionStore).WithDetail("invalid redis url").Wrap(err)
	}
	client := redis.NewClient(ropts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.New(apperrors.ErrSessionStore).Wrap(err)
	}

	s := NewRedisStoreWithClient(client, opts...)
	s.ownsClient = true
	return s, nil
}

// NewRedisStoreWithClient creates a store from an existing client. Close
// does not close a client passed in this way.
func NewRedisStoreWithClient(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client, prefix: DefaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Save(ctx context.Context, rec *Record, expiresAt time.Time) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return s.Delete(ctx, rec.ID)
	}
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(rec.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", rec.ID, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Record, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return Decode(data)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return s.Delete(ctx, id)
	}
	if err := s.client.Expire(ctx, s.key(id), ttl).Err(); err != nil {
		return fmt.Errorf("touch session %s: %w", id, err)
	}
	return nil
}

// SaveAll writes every record in one pipeline.
func (s *RedisStore) SaveAll(ctx context.Context, recs []*Record, expiresAt time.Time) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	ttl := time.Until(expiresAt)
	if len(recs) == 0 || ttl <= 0 {
		return nil
	}

	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, rec := range recs {
			data, err := Encode(rec)
			if err != nil {
				return err
			}
			pipe.Set(ctx, s.key(rec.ID), data, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save %d sessions: %w", len(recs), err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Prefix returns the key prefix.
func (s *RedisStore) Prefix() string {
	return s.prefix
}

// Close marks the store closed and closes the client if the store created
// it.
func (s *RedisStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}
