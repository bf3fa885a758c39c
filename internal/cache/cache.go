// Package cache implements the shared Redis-backed CacheManager: stampede
// protection, hot-key TTL boosting, distributed locks, and pattern
// invalidation. Adapted from
// services/chat-service/internal/cache/redis_cache.go, generalized from
// chat-app response caching to feed/seen-set/feature/trending caching.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

const (
	lockTTL        = 30 * time.Second
	stampedeFactor = 0.8
)

type hotKeyStats struct {
	count      int64
	lastAccess time.Time
	ttlBoost   time.Duration
}

// Options configures a single Get/Set/GetOrSet call.
type Options struct {
	TTL             time.Duration
	StampedeProtect bool
}

// Manager wraps a Redis client with the stampede-protection and hot-key
// tracking behavior the teacher's CacheManager implements.
type Manager struct {
	client *redis.Client

	mu      sync.Mutex
	hotKeys map[string]*hotKeyStats

	hits   int64
	misses int64
	errors int64
}

func NewManager(client *redis.Client) *Manager {
	m := &Manager{
		client:  client,
		hotKeys: make(map[string]*hotKeyStats),
	}
	go m.cleanupHotKeysLoop()
	return m
}

// Get fetches and unmarshals a cached value, returning ErrCacheMiss if
// absent.
func (m *Manager) Get(ctx context.Context, key string, dest any) error {
	raw, err := m.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		m.recordMiss(key)
		return ErrCacheMiss
	}
	if err != nil {
		m.errors++
		return err
	}
	m.recordHit(key)
	return json.Unmarshal(raw, dest)
}

// Set writes value under key with the given TTL, boosting the effective TTL
// for keys tracked as "hot".
func (m *Manager) Set(ctx context.Context, key string, value any, opts Options) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	ttl := opts.TTL + m.ttlBoostFor(key)
	return m.client.Set(ctx, key, raw, ttl).Err()
}

func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return m.client.Del(ctx, keys...).Err()
}

// InvalidatePattern deletes every key matching pattern using a SCAN-based
// batched delete rather than KEYS, to avoid blocking the Redis event loop.
func (m *Manager) InvalidatePattern(ctx context.Context, pattern string) error {
	iter := m.client.Scan(ctx, 0, pattern, 200).Iterator()
	batch := make([]string, 0, 200)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 200 {
			if err := m.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return m.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Loader computes the value to cache on a miss.
type Loader func(ctx context.Context) (any, error)

// GetOrSet is the read-through path: on a miss it takes a short-lived
// distributed SETNX lock when the lock is free and releases it after
// writing the value. The lock is never waited on: a caller that finds it
// held still runs load and writes the value itself, so concurrent misses
// may each recompute.
func (m *Manager) GetOrSet(ctx context.Context, key string, dest any, opts Options, load Loader) error {
	err := m.Get(ctx, key, dest)
	if err == nil {
		if opts.StampedeProtect && m.shouldRefreshEarly(key, opts.TTL) {
			go m.refreshInBackground(ctx, key, opts, load)
		}
		return nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return err
	}

	lockKey := "lock:" + key
	acquired, lockErr := m.client.SetNX(ctx, lockKey, "1", lockTTL).Result()
	if lockErr == nil && acquired {
		defer m.client.Del(ctx, lockKey)
	}

	value, err := load(ctx)
	if err != nil {
		return err
	}

	if err := m.Set(ctx, key, value, opts); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (m *Manager) refreshInBackground(ctx context.Context, key string, opts Options, load Loader) {
	value, err := load(ctx)
	if err != nil {
		return
	}
	_ = m.Set(ctx, key, value, opts)
}

// shouldRefreshEarly implements probabilistic early expiration: the
// closer a key is to expiring, the more likely a hit triggers a background
// refresh, avoiding synchronized stampedes on expiry.
func (m *Manager) shouldRefreshEarly(key string, ttl time.Duration) bool {
	remaining, err := m.client.TTL(context.Background(), key).Result()
	if err != nil || remaining <= 0 || ttl <= 0 {
		return false
	}
	fractionElapsed := 1.0 - float64(remaining)/float64(ttl)
	threshold := stampedeFactor
	return fractionElapsed > threshold && rand.Float64() < fractionElapsed
}

func (m *Manager) ttlBoostFor(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.hotKeys[key]; ok {
		return s.ttlBoost
	}
	return 0
}

func (m *Manager) recordHit(key string) {
	m.hits++
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.hotKeys[key]
	if !ok {
		s = &hotKeyStats{}
		m.hotKeys[key] = s
	}
	s.count++
	s.lastAccess = time.Now()
	if s.count > 100 {
		s.ttlBoost = 10 * time.Minute
	}
}

func (m *Manager) recordMiss(key string) {
	m.misses++
}

// HitRate returns the fraction of Get calls that were served from cache.
func (m *Manager) HitRate() float64 {
	total := m.hits + m.misses
	if total == 0 {
		return 0
	}
	return float64(m.hits) / float64(total)
}

// cleanupHotKeysLoop evicts hot-key stats not accessed in the last 30
// minutes, every 5 minutes, mirroring the teacher's background ticker.
func (m *Manager) cleanupHotKeysLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		m.mu.Lock()
		cutoff := time.Now().Add(-30 * time.Minute)
		for k, s := range m.hotKeys {
			if s.lastAccess.Before(cutoff) {
				delete(m.hotKeys, k)
			}
		}
		m.mu.Unlock()
	}
}

// SeenSetKey, FeedKey, TrendingKey build the cache keys documented in
// spec.md §6.5.
func SeenSetKey(userID string) string      { return fmt.Sprintf("feed:seen:%s", userID) }
func FeedKey(userID string) string         { return fmt.Sprintf("feed:v1:%s", userID) }
func TrendingKey(window string) string     { return fmt.Sprintf("cache:trending:%s", window) }
func SimilarUsersKey(userID string) string { return fmt.Sprintf("user:similar:%s", userID) }

// FeedTTLWithJitter returns base plus up to 10% jitter, per §4.2.4.
func FeedTTLWithJitter(base time.Duration) time.Duration {
	jitter := time.Duration(rand.Int63n(int64(base) / 10))
	return base + jitter
}
