package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/tower-stacker/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisCache реализует CacheRepo используя Redis как Hot Cache.
type RedisCache struct {
	client redis.UniversalClient
	config Config
	stats  counters
}

// NewRedisCache подключается к Redis и проверяет соединение.
func NewRedisCache(ctx context.Context, config Config) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.MaxConnections,
		PoolTimeout:  config.PoolTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	// Проверяем соединение
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewRedisCacheWithClient(rdb, config)
	logging.Info("🔴 Redis cache initialized: %s", config.Addr)
	return c, nil
}

// NewRedisCacheWithClient оборачивает готовый клиент (кластер, sentinel, тесты).
func NewRedisCacheWithClient(client redis.UniversalClient, config Config) *RedisCache {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 30 * time.Second
	}
	if config.MaxTTL == 0 {
		config.MaxTTL = time.Hour
	}
	return &RedisCache{client: client, config: config}
}

// Get получает значение по ключу из Redis.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	start := time.Now()
	defer r.stats.recordLatency(start)

	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		r.stats.hit()
		return val, nil
	}

	r.stats.miss()
	if err != redis.Nil {
		logging.Error("Redis Get error for key %s: %v", key, err)
		return nil, fmt.Errorf("redis get error: %w", err)
	}
	return nil, ErrCacheMiss
}

// Set сохраняет значение в Redis; TTL ограничен MaxTTL.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	start := time.Now()
	defer r.stats.recordLatency(start)

	if ttl == 0 {
		ttl = r.config.DefaultTTL
	}
	if ttl > r.config.MaxTTL {
		ttl = r.config.MaxTTL
	}

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logging.Error("Redis Set error for key %s: %v", key, err)
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Delete удаляет ключ из кеша.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	start := time.Now()
	defer r.stats.recordLatency(start)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		logging.Error("Redis Delete error for key %s: %v", key, err)
		return fmt.Errorf("redis delete error: %w", err)
	}
	atomic.AddInt64(&r.stats.invalidations, 1)
	return nil
}

// DeletePrefix удаляет ключи по префиксу через SCAN, без блокирующего KEYS.
func (r *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	start := time.Now()
	defer r.stats.recordLatency(start)

	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan error: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}
	atomic.AddInt64(&r.stats.invalidations, 1)
	logging.Debug("Redis: удалено %d ключей с префиксом %s", len(keys), prefix)
	return nil
}

// Close закрывает соединение с Redis.
func (r *RedisCache) Close() error {
	if err := r.client.Close(); err != nil {
		logging.Error("Error closing Redis connection: %v", err)
		return err
	}
	logging.Info("Redis cache closed")
	return nil
}

// GetMetrics возвращает текущие метрики кеша.
func (r *RedisCache) GetMetrics() *CacheMetrics { return r.stats.snapshot() }

// counters - общие счётчики для реализаций CacheRepo.
type counters struct {
	requests      int64
	hits          int64
	misses        int64
	invalidations int64

	latencySum   int64 // в наносекундах
	latencyCount int64
	maxLatency   int64
}

func (c *counters) hit() {
	atomic.AddInt64(&c.requests, 1)
	atomic.AddInt64(&c.hits, 1)
}

func (c *counters) miss() {
	atomic.AddInt64(&c.requests, 1)
	atomic.AddInt64(&c.misses, 1)
}

// recordLatency записывает latency метрику.
func (c *counters) recordLatency(start time.Time) {
	latency := time.Since(start).Nanoseconds()

	atomic.AddInt64(&c.latencySum, latency)
	atomic.AddInt64(&c.latencyCount, 1)

	for {
		current := atomic.LoadInt64(&c.maxLatency)
		if latency <= current || atomic.CompareAndSwapInt64(&c.maxLatency, current, latency) {
			break
		}
	}
}

func (c *counters) snapshot() *CacheMetrics {
	m := &CacheMetrics{
		TotalRequests: atomic.LoadInt64(&c.requests),
		CacheHits:     atomic.LoadInt64(&c.hits),
		CacheMisses:   atomic.LoadInt64(&c.misses),
		Invalidations: atomic.LoadInt64(&c.invalidations),
		LastUpdate:    time.Now(),
	}
	if total := m.CacheHits + m.CacheMisses; total > 0 {
		m.HitRatio = float64(m.CacheHits) / float64(total)
	}
	if count := atomic.LoadInt64(&c.latencyCount); count > 0 {
		m.AvgLatencyMs = float64(atomic.LoadInt64(&c.latencySum)) / float64(count) / 1e6 // нс в мс
		m.MaxLatencyMs = float64(atomic.LoadInt64(&c.maxLatency)) / 1e6
	}
	return m
}
