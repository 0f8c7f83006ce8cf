package observability

import (
	"context"
	"testing"

	"github.com/annel0/tower-stacker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTelemetry_Disabled(t *testing.T) {
	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTelemetry_EnabledShutsDown(t *testing.T) {
	// Экспортер подключается лениво, поэтому инициализация без коллектора проходит
	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{
		Enabled:     true,
		ServiceName: "tower-stacker-test",
		Endpoint:    "127.0.0.1:1",
		SampleRatio: 0.5,
	})
	require.NoError(t, err)
	// пустой батч: shutdown не обращается к сети
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 1.0, sampleRatio(0))
	assert.Equal(t, 1.0, sampleRatio(2))
	assert.Equal(t, 0.25, sampleRatio(0.25))
}
