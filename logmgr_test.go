package logmgr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/linchenxuan/logmgr/config"
	"github.com/linchenxuan/logmgr/log"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Log: log.Cfg{
			Dir:       t.TempDir(),
			AppName:   "game",
			SyncWrite: true,
			Filters:   []log.FilterCfg{{Category: "Net", FlushOn: log.Warning}},
		},
	}
}

// TestInit verifies that Init wires a working registry and that TearDown closes it.
func TestInit(t *testing.T) {
	m, err := Init(context.Background(), testConfig(t), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	require.NotNil(t, m.Registry)
	assert.Nil(t, m.MetricsAddr())

	require.NoError(t, m.Registry.Log("Net", log.Error, "peer lost"))
	dir := m.Registry.GetCurrentLogDirectory()
	require.NoError(t, m.TearDown(context.Background()))

	content, err := os.ReadFile(filepath.Join(dir, "Net.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "]Error: peer lost\r\n")
	assert.Contains(t, string(content), "Log file closed")
}

// TestInitObservesDrops verifies that dropped records reach both the collector and the diag logger.
func TestInitObservesDrops(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	failing := func(path string) (log.Sink, error) {
		if filepath.Base(path) == "Broken.log" {
			return nil, fmt.Errorf("%w: %s", log.ErrSinkUnavailable, path)
		}
		return log.NewSinkFactory(log.SinkCfg{})(path)
	}

	m, err := Init(context.Background(), testConfig(t),
		WithLogger(zap.New(core)),
		WithRegistryOptions(log.WithSinkFactory(failing)))
	require.NoError(t, err)
	defer m.TearDown(context.Background())

	m.Registry.AddFilter("Broken", log.Warning)
	require.NoError(t, m.Registry.Log("Broken", log.Error, "lost"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Collector.RecordsDropped.WithLabelValues("Broken")))
	assert.NotZero(t, logs.FilterMessage("log record dropped, no writer for category").Len())
}

// TestInitServesMetrics verifies that enabling metrics exposes the collector over HTTP.
func TestInitServesMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = true
	cfg.Metrics.ListenAddr = "127.0.0.1:0"

	m, err := Init(context.Background(), cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer m.TearDown(context.Background())
	require.NotNil(t, m.MetricsAddr())

	require.NoError(t, m.Registry.Log("Net", log.Log, "hello"))
	require.NoError(t, m.Registry.Flush())

	resp, err := http.Get("http://" + m.MetricsAddr().String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "logmgr_bytes_drained_total")
}

func TestInitRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.Sink.Kind = "tape"
	_, err := Init(context.Background(), cfg, WithLogger(zap.NewNop()))
	assert.Error(t, err)
}
