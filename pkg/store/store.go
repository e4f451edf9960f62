// Package store wraps Redis for response caching and usage counters. Cache
// and stats operations are best-effort: failures degrade to a miss or a
// dropped increment, never a request failure.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheTimeout bounds every cache round trip. A slow cache must not eat the
// request latency budget.
const cacheTimeout = 250 * time.Millisecond

const (
	cacheKeyPrefix = "cache:"

	keyQueriesTotal = "stats:queries_total"
	keyCacheHits    = "stats:cache_hits"
	keyLatencySum   = "stats:latency_sum_ms"
	keyLatencyCount = "stats:latency_count"
	intentKeyPrefix = "stats:by_intent:"
)

// Store is a Redis-backed cache and stats sink.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to the Redis URL (redis://host:port/db). Entries written by
// Put expire after ttl.
func New(url string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return &Store{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Ping reports whether Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Get returns the cached payload for a fingerprint. Errors and timeouts are
// logged and reported as a miss.
func (s *Store) Get(ctx context.Context, fingerprint string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	payload, err := s.client.Get(ctx, cacheKeyPrefix+fingerprint).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("Cache lookup failed", "fingerprint", fingerprint, "error", err)
		return nil, false
	}
	return payload, true
}

// Put stores a payload under the fingerprint with the configured TTL. Write
// failures are logged and dropped.
func (s *Store) Put(ctx context.Context, fingerprint string, payload []byte) {
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	if err := s.client.Set(ctx, cacheKeyPrefix+fingerprint, payload, s.ttl).Err(); err != nil {
		slog.Warn("Cache write failed", "fingerprint", fingerprint, "error", err)
	}
}

// RecordQuery bumps the usage counters for one served request. Best-effort;
// a failed increment is logged and dropped.
func (s *Store) RecordQuery(ctx context.Context, intent string, cacheHit bool, latency time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, keyQueriesTotal)
	pipe.Incr(ctx, intentKeyPrefix+intent)
	pipe.IncrByFloat(ctx, keyLatencySum, float64(latency.Microseconds())/1000)
	pipe.Incr(ctx, keyLatencyCount)
	if cacheHit {
		pipe.Incr(ctx, keyCacheHits)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("Stats update failed", "error", err)
	}
}

// Stats is a point-in-time snapshot of the usage counters.
type Stats struct {
	QueriesTotal    int64
	CacheHitRate    float64
	AvgLatencyMS    float64
	QueriesByIntent map[string]int64
}

// Stats reads and derives the usage counters. Unlike the cache helpers this
// returns errors: /stats has nothing useful to serve without them.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	total, err := s.getInt(ctx, keyQueriesTotal)
	if err != nil {
		return Stats{}, err
	}
	hits, err := s.getInt(ctx, keyCacheHits)
	if err != nil {
		return Stats{}, err
	}
	latencySum, err := s.getFloat(ctx, keyLatencySum)
	if err != nil {
		return Stats{}, err
	}
	latencyCount, err := s.getInt(ctx, keyLatencyCount)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		QueriesTotal:    total,
		QueriesByIntent: make(map[string]int64),
	}
	if total > 0 {
		stats.CacheHitRate = float64(hits) / float64(total)
	}
	if latencyCount > 0 {
		stats.AvgLatencyMS = latencySum / float64(latencyCount)
	}

	iter := s.client.Scan(ctx, 0, intentKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		count, err := s.getInt(ctx, key)
		if err != nil {
			return Stats{}, err
		}
		stats.QueriesByIntent[strings.TrimPrefix(key, intentKeyPrefix)] = count
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("failed to scan intent counters: %w", err)
	}

	return stats, nil
}

func (s *Store) getInt(ctx context.Context, key string) (int64, error) {
	v, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) getFloat(ctx context.Context, key string) (float64, error) {
	v, err := s.client.Get(ctx, key).Float64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, nil
}
