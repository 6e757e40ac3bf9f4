package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

const _serviceName = "logmgr"

// Cfg configures metric exposition.
type Cfg struct {
	Enabled           bool          `mapstructure:"enabled"`           // Serve /metrics at all
	ListenAddr        string        `mapstructure:"listenAddr"`        // HTTP listen address, ":0" picks a port
	Path              string        `mapstructure:"path"`              // Metrics HTTP path
	EnableHealthCheck bool          `mapstructure:"enableHealthCheck"` // Serve a JSON health endpoint
	HealthCheckPath   string        `mapstructure:"healthCheckPath"`   // Health check path
	PushAddr          string        `mapstructure:"pushAddr"`          // Push gateway address, empty disables pushing
	PushJobName       string        `mapstructure:"pushJobName"`       // Push job name
	PushInterval      time.Duration `mapstructure:"pushInterval"`      // Push period
}

// CheckCfgValid applies defaults to unset fields.
func CheckCfgValid(cfg *Cfg) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":9464"
	}
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
	if cfg.HealthCheckPath == "" {
		cfg.HealthCheckPath = "/health"
	}
	if cfg.PushJobName == "" {
		cfg.PushJobName = _serviceName
	}
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = 15 * time.Second
	}
}

// Handler serves the metrics gathered by gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Server exposes a gatherer over HTTP and optionally pushes it to a push gateway.
type Server struct {
	cfg      Cfg
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	started  time.Time

	srv    *http.Server
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a stopped server. A nil logger is replaced by zap.NewNop.
func NewServer(cfg Cfg, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	CheckCfgValid(&cfg)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Start listens on the configured address and returns the bound address.
func (s *Server) Start(ctx context.Context) (net.Addr, error) {
	l, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return nil, err
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.started = time.Now()

	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, Handler(s.gatherer))
	if s.cfg.EnableHealthCheck {
		mux.HandleFunc(s.cfg.HealthCheckPath, s.healthCheckHandler)
		s.logger.Info("health check endpoint enabled", zap.String("path", s.cfg.HealthCheckPath))
	}

	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics http server", zap.Error(err))
		}
	}()
	s.logger.Info("prometheus http start listen on",
		zap.String("addr", l.Addr().String()), zap.String("path", s.cfg.Path))

	if s.cfg.PushAddr != "" {
		s.startPusher(ctx)
	}
	return l.Addr(), nil
}

// Stop shuts the HTTP server down and stops pushing.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	var err error
	if s.srv != nil {
		err = s.srv.Shutdown(ctx)
	}
	s.wg.Wait()
	return err
}

func (s *Server) startPusher(ctx context.Context) {
	pusher := push.New(s.cfg.PushAddr, s.cfg.PushJobName).Gatherer(s.gatherer)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("prometheus pusher started", zap.String("addr", s.cfg.PushAddr))

		t := time.NewTicker(s.cfg.PushInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("prometheus pusher end")
				return
			case <-t.C:
				pushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				if err := pusher.PushContext(pushCtx); err != nil {
					s.logger.Warn("prometheus push", zap.Error(err))
				}
				cancel()
			}
		}
	}()
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   _serviceName,
		"uptime":    time.Since(s.started).String(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
