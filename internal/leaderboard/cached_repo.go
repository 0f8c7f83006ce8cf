package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/annel0/tower-stacker/internal/cache"
	"github.com/annel0/tower-stacker/internal/logging"
)

const topKeyPrefix = "stacker:top:"

// CachedRepo кеширует выдачу ListTop поверх другого Repository.
// Кеш сбрасывается при любой записи и по Invalidate (события других узлов).
// Ошибки кеша не ломают запросы: чтение идёт мимо кеша.
type CachedRepo struct {
	Repository
	cache cache.CacheRepo
	ttl   time.Duration
}

// NewCachedRepo оборачивает repo. ttl <= 0 - 30 секунд.
func NewCachedRepo(repo Repository, c cache.CacheRepo, ttl time.Duration) *CachedRepo {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedRepo{Repository: repo, cache: c, ttl: ttl}
}

func topKey(limit int) string { return fmt.Sprintf("%s%d", topKeyPrefix, limit) }

// ListTop отдаёт рейтинг из кеша или из хранилища.
func (c *CachedRepo) ListTop(ctx context.Context, limit int) ([]Record, error) {
	limit = NormalizeLimit(limit)
	key := topKey(limit)

	data, err := c.cache.Get(ctx, key)
	if err == nil {
		var out []Record
		if jerr := json.Unmarshal(data, &out); jerr == nil {
			return out, nil
		}
		logging.Warn("⚠️ Повреждённая запись кеша %s, читаем из хранилища", key)
	} else if !cache.IsCacheMiss(err) {
		logging.Warn("⚠️ Кеш рейтинга недоступен: %v", err)
	}

	out, err := c.Repository.ListTop(ctx, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(out); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			logging.Debug("Не удалось сохранить рейтинг в кеш: %v", err)
		}
	}
	return out, nil
}

// Submit сохраняет результат и сбрасывает кеш рейтинга.
func (c *CachedRepo) Submit(ctx context.Context, s Submission) (*Record, error) {
	rec, err := c.Repository.Submit(ctx, s)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx)
	return rec, nil
}

// Delete удаляет запись и сбрасывает кеш рейтинга.
func (c *CachedRepo) Delete(ctx context.Context, id string) error {
	if err := c.Repository.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// Invalidate сбрасывает все закешированные выдачи рейтинга.
func (c *CachedRepo) Invalidate(ctx context.Context) error {
	return c.cache.DeletePrefix(ctx, topKeyPrefix)
}

// CacheMetrics возвращает метрики кеша.
func (c *CachedRepo) CacheMetrics() *cache.CacheMetrics { return c.cache.GetMetrics() }

func (c *CachedRepo) invalidate(ctx context.Context) {
	if err := c.Invalidate(ctx); err != nil {
		logging.Warn("⚠️ Не удалось сбросить кеш рейтинга: %v", err)
	}
}

// Close закрывает кеш и хранилище.
func (c *CachedRepo) Close() error {
	cerr := c.cache.Close()
	if err := c.Repository.Close(); err != nil {
		return err
	}
	return cerr
}
