package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/comorbid-index-engine/internal/engine"
)

// ResultCache memoises score responses in Redis, keyed by a digest of the
// request. Identical cohorts scored twice come back without a second run.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewResultCache connects to Redis and verifies the connection.
func NewResultCache(redisURL string, ttl time.Duration, logger *logrus.Logger) (*ResultCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultCache{client: client, ttl: ttl, logger: logger}, nil
}

// cacheKey digests the full request body. Any change to the cohort, the
// index, the site or the output toggles produces a different key.
func cacheKey(req *scoreRequest) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return "score:" + hex.EncodeToString(sum[:]), nil
}

// Get returns the cached result for a request, if present. Cache failures
// are logged and treated as misses.
func (rc *ResultCache) Get(ctx context.Context, req *scoreRequest) (*engine.Result, bool) {
	key, err := cacheKey(req)
	if err != nil {
		return nil, false
	}

	raw, err := rc.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		rc.logger.WithError(err).Warn("Result cache read failed")
		return nil, false
	}

	var result engine.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		rc.logger.WithError(err).Warn("Discarding undecodable cache entry")
		return nil, false
	}
	return &result, true
}

// Set stores a result. Failures are logged, never surfaced.
func (rc *ResultCache) Set(ctx context.Context, req *scoreRequest, result *engine.Result) {
	key, err := cacheKey(req)
	if err != nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := rc.client.Set(ctx, key, raw, rc.ttl).Err(); err != nil {
		rc.logger.WithError(err).Warn("Result cache write failed")
	}
}

// Health pings Redis.
func (rc *ResultCache) Health(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (rc *ResultCache) Close() error {
	return rc.client.Close()
}
