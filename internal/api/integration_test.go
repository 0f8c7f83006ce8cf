package api

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/tower-stacker/internal/cache"
	"github.com/annel0/tower-stacker/internal/config"
	"github.com/annel0/tower-stacker/internal/eventbus"
	"github.com/annel0/tower-stacker/internal/leaderboard"
	"github.com/annel0/tower-stacker/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogs(t *testing.T) {
	logging.GetLoggerManager().Configure(logging.Options{Dir: t.TempDir(), MinConsoleLevel: logging.OFF, MinFileLevel: logging.OFF})
	t.Cleanup(func() {
		_ = logging.GetLoggerManager().CloseAll()
		logging.GetLoggerManager().Configure(logging.DefaultOptions())
	})
}

func TestServerIntegration_Lifecycle(t *testing.T) {
	quietLogs(t)

	cfg := config.Default()
	cfg.Server.Mode = "test"
	si, err := NewServerIntegration(cfg, IntegrationOptions{Registry: prometheus.NewRegistry()})
	require.NoError(t, err)

	assert.True(t, si.IsHealthy())
	assert.NotNil(t, si.GetRestServer().Router())
	assert.Equal(t, ":8088", si.GetRestServer().Port())

	require.NoError(t, si.Stop())
	assert.False(t, si.IsHealthy())
}

func TestServerIntegration_InvalidatesCacheOnEvents(t *testing.T) {
	quietLogs(t)
	ctx := context.Background()

	inner := leaderboard.NewMemoryRepo()
	cached := leaderboard.NewCachedRepo(inner, cache.NewMemoryCache(), 0)
	bus := eventbus.NewMemoryBus(16)

	cfg := config.Default()
	cfg.Server.Mode = "test"
	si, err := NewServerIntegration(cfg, IntegrationOptions{Repo: cached, Bus: bus, Registry: prometheus.NewRegistry()})
	require.NoError(t, err)

	top, err := cached.ListTop(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)

	// запись на другом узле: прямо в хранилище + событие на шине
	rec, err := inner.Submit(ctx, leaderboard.Submission{PlayerName: "remote", Score: 60, DiscountEarned: 30, PartsStacked: 6})
	require.NoError(t, err)
	ev, err := eventbus.NewEnvelope("other-node", eventbus.EventScoreSubmitted, 5, eventbus.ScoreEvent{RecordID: rec.ID})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, ev))

	require.Eventually(t, func() bool {
		top, err := cached.ListTop(ctx, 10)
		return err == nil && len(top) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, si.Stop())
}
