package planner

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-roadmap/internal/platform/cache"
	"github.com/p-n-ai/pai-roadmap/internal/roadmap"
)

// ResultCache stores generated results by input digest.
type ResultCache interface {
	Get(ctx context.Context, key string) (*roadmap.Result, bool, error)
	Set(ctx context.Context, key string, res *roadmap.Result) error
}

// RedisCache is a ResultCache on top of the platform cache client.
type RedisCache struct {
	c   *cache.Cache
	ttl time.Duration
}

// NewRedisCache wraps c; entries expire after ttl.
func NewRedisCache(c *cache.Cache, ttl time.Duration) *RedisCache {
	return &RedisCache{c: c, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) (*roadmap.Result, bool, error) {
	var res roadmap.Result
	err := r.c.GetJSON(ctx, key, &res)
	if errors.Is(err, cache.ErrMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &res, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, res *roadmap.Result) error {
	return r.c.SetJSON(ctx, key, res, r.ttl)
}

// inputDigest is the BLAKE2b-256 hex digest of the canonical JSON encoding of
// in. encoding/json sorts map keys, so equal inputs give equal digests.
func inputDigest(in roadmap.Input) (string, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encode input: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
