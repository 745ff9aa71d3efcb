package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultSearchCacheRedisPrefix = "catalog:search"

// RedisSearchCacheStore keys every page by the namespace generation, kept in
// an INCR counter. Invalidation bumps the counter, so pages written under an
// older generation are never read again even if they land late.
type RedisSearchCacheStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisSearchCacheStore(client redis.UniversalClient, prefix string) *RedisSearchCacheStore {
	if prefix == "" {
		prefix = DefaultSearchCacheRedisPrefix
	}
	return &RedisSearchCacheStore{client: client, prefix: prefix}
}

func (s *RedisSearchCacheStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, nil
	}
	generation, err := s.Generation(ctx, namespace)
	if err != nil {
		return nil, false, err
	}
	value, err := s.client.Get(ctx, s.dataKey(namespace, generation, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *RedisSearchCacheStore) Generation(ctx context.Context, namespace string) (uint64, error) {
	if s.client == nil {
		return 0, nil
	}
	generation, err := s.client.Get(ctx, s.generationKey(namespace)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

// Set watches the generation counter so an invalidation racing the write
// aborts the transaction.
func (s *RedisSearchCacheStore) Set(ctx context.Context, namespace, key string, generation uint64, value []byte, ttl time.Duration) error {
	if s.client == nil || ttl <= 0 {
		return nil
	}
	genKey := s.generationKey(namespace)
	dataKey := s.dataKey(namespace, generation, key)
	index := s.namespaceIndexKey(namespace)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return ErrSearchCacheStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, dataKey, value, ttl)
			pipe.SAdd(ctx, index, dataKey)
			pipe.Expire(ctx, index, ttl+time.Minute)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrSearchCacheStale
	}
	return err
}

func (s *RedisSearchCacheStore) InvalidateNamespace(ctx context.Context, namespace string) error {
	if s.client == nil {
		return nil
	}
	index := s.namespaceIndexKey(namespace)
	keys, err := s.client.SMembers(ctx, index).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Incr(ctx, s.generationKey(namespace))
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, index)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisSearchCacheStore) dataKey(namespace string, generation uint64, key string) string {
	return fmt.Sprintf("%s:data:%s:%d:%s", s.prefix, normalizeToken(namespace), generation, hashToken(key))
}

func (s *RedisSearchCacheStore) namespaceIndexKey(namespace string) string {
	return fmt.Sprintf("%s:index:%s", s.prefix, normalizeToken(namespace))
}

func (s *RedisSearchCacheStore) generationKey(namespace string) string {
	return fmt.Sprintf("%s:generation:%s", s.prefix, normalizeToken(namespace))
}

func normalizeToken(v string) string {
	if v == "" {
		return "default"
	}
	return v
}

func hashToken(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}
