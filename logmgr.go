// Package logmgr assembles the logging engine, its metrics and its diagnostic logger
// into one host-owned instance.
package logmgr

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/linchenxuan/logmgr/config"
	"github.com/linchenxuan/logmgr/diag"
	"github.com/linchenxuan/logmgr/log"
	"github.com/linchenxuan/logmgr/metrics"
)

// LogManager is the core application struct, holding the registry and the components observing it.
type LogManager struct {
	Registry  *log.Registry
	Logger    *zap.Logger
	Collector *metrics.Collector
	Gatherer  prometheus.Gatherer

	server      *metrics.Server
	metricsAddr net.Addr
}

// Option customises Init.
type Option func(*options)

type options struct {
	registryOpts []log.RegistryOption
	logger       *zap.Logger
}

// WithRegistryOptions forwards options to log.NewRegistry.
func WithRegistryOptions(opts ...log.RegistryOption) Option {
	return func(o *options) {
		o.registryOpts = append(o.registryOpts, opts...)
	}
}

// WithLogger replaces the diagnostic logger built from cfg.Diag.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Init creates a LogManager from cfg. The metrics server is started when cfg.Metrics.Enabled is set.
func Init(ctx context.Context, cfg config.Config, opts ...Option) (*LogManager, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// 1. Diagnostic logger
	diag.CheckCfgValid(&cfg.Diag)
	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = diag.NewLogger(cfg.Diag); err != nil {
			return nil, fmt.Errorf("failed to create diag logger: %w", err)
		}
	}

	// 2. Metrics
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	collector := metrics.NewCollector(promReg)

	// 3. Registry observed by both
	observer := log.NewMultiObserver(collector, diag.NewReporter(logger, cfg.Diag.RateLimit))
	registryOpts := append([]log.RegistryOption{log.WithObserver(observer)}, o.registryOpts...)
	registry, err := log.NewRegistry(cfg.Log, registryOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	m := &LogManager{
		Registry:  registry,
		Logger:    logger,
		Collector: collector,
		Gatherer:  promReg,
	}

	// 4. Metrics exposition
	if cfg.Metrics.Enabled {
		m.server = metrics.NewServer(cfg.Metrics, promReg, logger)
		if m.metricsAddr, err = m.server.Start(ctx); err != nil {
			_ = registry.TearDown()
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	logger.Info("logmgr initialized",
		zap.String("dir", registry.GetCurrentLogDirectory()),
		zap.Int("filters", len(cfg.Log.Filters)))
	return m, nil
}

// MetricsAddr returns the bound metrics address, or nil when metrics are disabled.
func (m *LogManager) MetricsAddr() net.Addr {
	return m.metricsAddr
}

// TearDown closes every log file, then stops the metrics server.
func (m *LogManager) TearDown(ctx context.Context) error {
	m.Logger.Info("logmgr shutting down")

	err := m.Registry.TearDown()
	if m.server != nil {
		err = errors.Join(err, m.server.Stop(ctx))
	}
	_ = m.Logger.Sync()
	return err
}
