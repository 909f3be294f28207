package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned by URLCache implementations when no entry exists.
var ErrCacheMiss = errors.New("cache miss")

const urlCachePrefix = "blob_url:"

// URLCache stores signed URLs for reuse until shortly before they expire.
type URLCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisURLCache keeps signed URLs in Redis.
type RedisURLCache struct {
	client *redis.Client
}

func NewRedisURLCache(client *redis.Client) *RedisURLCache {
	return &RedisURLCache{client: client}
}

func (c *RedisURLCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, urlCachePrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

func (c *RedisURLCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, urlCachePrefix+key, value, ttl).Err()
}

// CachingStore wraps a BlobStore and serves repeated SignURL calls from a
// cache. Cache failures fall back to signing directly.
type CachingStore struct {
	BlobStore
	cache  URLCache
	logger *zap.Logger
}

func NewCachingStore(inner BlobStore, cache URLCache, logger *zap.Logger) *CachingStore {
	return &CachingStore{BlobStore: inner, cache: cache, logger: logger}
}

// SignURL returns a cached URL when one exists. Entries live for 80% of ttl
// so a cached URL always has some validity left when handed out.
func (s *CachingStore) SignURL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	key := ref + "|" + ttl.String()

	cached, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, ErrCacheMiss):
		s.logger.Warn("signed url cache read failed", zap.String("ref", ref), zap.Error(err))
	}

	signed, err := s.BlobStore.SignURL(ctx, ref, ttl)
	if err != nil {
		return "", err
	}

	if keep := ttl * 4 / 5; keep > 0 {
		if err := s.cache.Set(ctx, key, signed, keep); err != nil {
			s.logger.Warn("signed url cache write failed", zap.String("ref", ref), zap.Error(err))
		}
	}
	return signed, nil
}
