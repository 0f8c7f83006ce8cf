package leaderboard

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/annel0/tower-stacker/internal/cache"
	"github.com/annel0/tower-stacker/internal/config"
	"github.com/annel0/tower-stacker/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRepositoryContract проверяет общее поведение любого бэкенда.
func runRepositoryContract(t *testing.T, repo Repository) {
	ctx := context.Background()

	t.Run("Submit and Get", func(t *testing.T) {
		rec, err := repo.Submit(ctx, Submission{PlayerName: "  Mehmon ", Score: 90, DiscountEarned: 45, PartsStacked: 6})
		require.NoError(t, err)
		require.NotEmpty(t, rec.ID)
		assert.Equal(t, "Mehmon", rec.PlayerName)
		assert.False(t, rec.CreatedAt.IsZero())

		got, err := repo.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, 90, got.Score)
		assert.Equal(t, 45, got.DiscountEarned)
	})

	t.Run("Empty name becomes Guest", func(t *testing.T) {
		rec, err := repo.Submit(ctx, Submission{Score: 10, DiscountEarned: 30, PartsStacked: 6})
		require.NoError(t, err)
		assert.Equal(t, "Guest", rec.PlayerName)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := repo.Submit(ctx, Submission{PlayerName: "x", Score: 101})
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "score", verr.Field)
	})

	t.Run("ListTop ranks by score", func(t *testing.T) {
		for _, s := range []int{50, 70, 30} {
			_, err := repo.Submit(ctx, Submission{PlayerName: "p", Score: s, DiscountEarned: 30, PartsStacked: 6})
			require.NoError(t, err)
		}

		top, err := repo.ListTop(ctx, 3)
		require.NoError(t, err)
		require.Len(t, top, 3)
		assert.Equal(t, []int{90, 70, 50}, []int{top[0].Score, top[1].Score, top[2].Score})

		all, err := repo.ListTop(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 5)
		for i := 1; i < len(all); i++ {
			assert.GreaterOrEqual(t, all[i-1].Score, all[i].Score)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		rec, err := repo.Submit(ctx, Submission{PlayerName: "temp", Score: 99, DiscountEarned: 49, PartsStacked: 6})
		require.NoError(t, err)

		top, err := repo.ListTop(ctx, 1)
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, rec.ID, top[0].ID)

		require.NoError(t, repo.Delete(ctx, rec.ID))
		_, err = repo.Get(ctx, rec.ID)
		assert.ErrorIs(t, err, ErrRecordNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, rec.ID), ErrRecordNotFound)

		top, err = repo.ListTop(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 90, top[0].Score, "после удаления кеш рейтинга не должен отдавать старую выдачу")
	})

	t.Run("Unknown id", func(t *testing.T) {
		_, err := repo.Get(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestMemoryRepo(t *testing.T) {
	repo := NewMemoryRepo()
	defer repo.Close()
	runRepositoryContract(t, repo)
}

func TestBadgerRepo(t *testing.T) {
	repo, err := NewBadgerRepo("")
	require.NoError(t, err)
	defer repo.Close()
	runRepositoryContract(t, repo)
}

func TestBadgerRepo_PersistsOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := NewBadgerRepo(dir)
	require.NoError(t, err)
	rec, err := repo.Submit(ctx, Submission{PlayerName: "disk", Score: 77, DiscountEarned: 38, PartsStacked: 6})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewBadgerRepo(dir)
	require.NoError(t, err)
	defer repo.Close()
	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "disk", got.PlayerName)
}

func TestCachedRepo(t *testing.T) {
	repo := NewCachedRepo(NewMemoryRepo(), cache.NewMemoryCache(), time.Minute)
	defer repo.Close()
	runRepositoryContract(t, repo)
}

func TestCachedRepo_ServesFromCacheUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryRepo()
	c := cache.NewMemoryCache()
	repo := NewCachedRepo(inner, c, time.Minute)

	_, err := repo.Submit(ctx, Submission{PlayerName: "a", Score: 40, DiscountEarned: 30, PartsStacked: 6})
	require.NoError(t, err)

	first, err := repo.ListTop(ctx, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// запись мимо кеша (другой узел) не видна до инвалидации
	_, err = inner.Submit(ctx, Submission{PlayerName: "b", Score: 80, DiscountEarned: 40, PartsStacked: 6})
	require.NoError(t, err)
	cached, err := repo.ListTop(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, cached, 1)
	assert.Equal(t, int64(1), repo.CacheMetrics().CacheHits)

	require.NoError(t, repo.Invalidate(ctx))
	fresh, err := repo.ListTop(ctx, 10)
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, "b", fresh[0].PlayerName)
}

func TestMemoryRepo_TieBreakByCreation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	repo.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	first, err := repo.Submit(ctx, Submission{PlayerName: "first", Score: 60, DiscountEarned: 30, PartsStacked: 6})
	require.NoError(t, err)
	_, err = repo.Submit(ctx, Submission{PlayerName: "second", Score: 60, DiscountEarned: 30, PartsStacked: 6})
	require.NoError(t, err)

	top, err := repo.ListTop(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, first.ID, top[0].ID, "при равных очках выше тот, кто раньше")
}

func TestMemoryRepo_Closed(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	rec, err := repo.Submit(ctx, Submission{PlayerName: "Mehmon", Score: 1})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = repo.Submit(ctx, Submission{Score: 1})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = repo.ListTop(ctx, 10)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = repo.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrClosed, "закрытый репозиторий не отдаёт записи")
	assert.ErrorIs(t, repo.Delete(ctx, rec.ID), ErrClosed, "закрытый репозиторий не удаляет записи")
}

func TestGameSubmitter(t *testing.T) {
	repo := NewMemoryRepo()
	sub := GameSubmitter{Repo: repo}

	err := sub.SubmitResult(context.Background(), game.Result{PlayerName: "Mehmon", Score: 100, DiscountEarned: 50, PartsStacked: 6})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Count())

	err = sub.SubmitResult(context.Background(), game.Result{Score: 100, DiscountEarned: 80, PartsStacked: 6})
	assert.Error(t, err)
	assert.Equal(t, 1, repo.Count())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		in    Submission
		field string
	}{
		{"ok", Submission{PlayerName: "Mehmon", Score: 100, DiscountEarned: 50, PartsStacked: 6}, ""},
		{"нулевой результат", Submission{PlayerName: "x"}, ""},
		{"длинное имя", Submission{PlayerName: strings.Repeat("я", 33)}, "playerName"},
		{"имя 32 руны", Submission{PlayerName: strings.Repeat("я", 32)}, ""},
		{"отрицательные очки", Submission{PlayerName: "x", Score: -1}, "score"},
		{"скидка выше 50", Submission{PlayerName: "x", DiscountEarned: 51}, "discountEarned"},
		{"этажей больше 6", Submission{PlayerName: "x", PartsStacked: 7}, "partsStacked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prepare(tt.in)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, 10, NormalizeLimit(0))
	assert.Equal(t, 10, NormalizeLimit(-5))
	assert.Equal(t, 25, NormalizeLimit(25))
	assert.Equal(t, 100, NormalizeLimit(1000))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	repo, err := Open(ctx, config.StorageConfig{Backend: "memory"}, config.CacheConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryRepo{}, repo)

	repo, err = Open(ctx, config.StorageConfig{Backend: "badger"}, config.CacheConfig{})
	require.NoError(t, err)
	assert.IsType(t, &BadgerRepo{}, repo)
	require.NoError(t, repo.Close())

	_, err = Open(ctx, config.StorageConfig{Backend: "sqlite"}, config.CacheConfig{})
	assert.Error(t, err)

	_, err = Open(ctx, config.StorageConfig{Backend: "maria"}, config.CacheConfig{})
	assert.Error(t, err)
}

// Интеграционные тесты запускаются только при заданном окружении.

func TestMongoRepo_Integration(t *testing.T) {
	uri := os.Getenv("STACKER_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("STACKER_TEST_MONGO_URI не задан")
	}
	ctx := context.Background()
	repo, err := NewMongoRepo(ctx, MongoConfig{URI: uri, Database: "stacker_test", Collection: "scores_" + time.Now().Format("150405")})
	require.NoError(t, err)
	defer func() {
		_ = repo.collection.Drop(ctx)
		_ = repo.Close()
	}()
	runRepositoryContract(t, repo)
}

func TestMariaRepo_Integration(t *testing.T) {
	dsn := os.Getenv("STACKER_TEST_MARIA_DSN")
	if dsn == "" {
		t.Skip("STACKER_TEST_MARIA_DSN не задан")
	}
	ctx := context.Background()
	repo, err := NewMariaRepo(ctx, dsn)
	require.NoError(t, err)
	defer repo.Close()
	_, err = repo.db.ExecContext(ctx, "DELETE FROM game_scores")
	require.NoError(t, err)
	runRepositoryContract(t, repo)
}

func TestCachedRepo_RedisIntegration(t *testing.T) {
	addr := os.Getenv("STACKER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STACKER_TEST_REDIS_ADDR не задан")
	}
	ctx := context.Background()
	rc, err := cache.NewRedisCache(ctx, cache.Config{Addr: addr})
	require.NoError(t, err)
	repo := NewCachedRepo(NewMemoryRepo(), rc, time.Minute)
	defer repo.Close()
	require.NoError(t, repo.Invalidate(ctx))
	runRepositoryContract(t, repo)
}
