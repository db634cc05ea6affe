package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces refresh keys.
const DefaultRedisPrefix = "rt"

// RedisStore stores binary-encoded records with a key TTL equal to the
// record's remaining lifetime. Redis expiry is the sweep.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a RedisStore. An empty prefix selects DefaultRedisPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":" + id
}

// Create stores rec under id with SET NX.
func (s *RedisStore) Create(ctx context.Context, id string, rec Record) error {
	ttl := time.Until(rec.ExpireAt)
	if ttl <= 0 {
		return ErrExpiredRecord
	}

	data, err := EncodeRecord(&rec)
	if err != nil {
		return err
	}

	ok, err := s.redis.SetNX(ctx, s.key(id), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return ErrDuplicateID
	}
	return nil
}

// Get loads and decodes the record for id, or returns nil when absent.
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec, err := DecodeRecord(data)
	if err != nil {
		return nil, err
	}
	// Key TTLs have millisecond precision; guard the boundary.
	if rec.Expired(time.Now()) {
		return nil, nil
	}
	return rec, nil
}

// Delete removes id and reports whether the key existed.
func (s *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n == 1, nil
}

// Ping measures a round-trip to Redis.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
