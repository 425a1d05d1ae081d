package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const scanBatch = 100

// RedisStore keeps entries in Redis with a per-key TTL.
type RedisStore struct {
	redisClient *redis.Client
	prefix      string
	expiration  time.Duration
}

// NewRedisStore namespaces every key under prefix so Clear only touches
// this store's entries.
func NewRedisStore(redisClient *redis.Client, prefix string, expiration time.Duration) *RedisStore {
	return &RedisStore{
		redisClient: redisClient,
		prefix:      prefix,
		expiration:  expiration,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	raw, err := s.redisClient.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: redis get %s: %w", key, err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		log.Errorf("Error unmarshalling cached entry %s: %v", key, err)
		return nil, false, nil
	}
	return &e, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, e *Entry) error {
	if e == nil {
		return ErrNilEntry
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	if err := s.redisClient.Set(ctx, s.redisKey(key), raw, s.expiration).Err(); err != nil {
		return fmt.Errorf("cache: redis set %s: %w", key, err)
	}
	return nil
}

// Clear collects every key under the prefix before deleting any of them.
// Deleting while the SCAN cursor is still moving can skip keys.
func (s *RedisStore) Clear(ctx context.Context) error {
	var keys []string
	iter := s.redisClient.Scan(ctx, 0, s.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: redis scan: %w", err)
	}

	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		if err := s.redisClient.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("cache: redis clear: %w", err)
		}
	}
	return nil
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}
