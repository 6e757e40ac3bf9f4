// Command logmgrd reads log records from stdin and routes them through a logmgr registry.
//
// Each input line is "category|verbosity|message". Lines without separators are written
// to the default log file at Log verbosity.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/linchenxuan/logmgr"
	"github.com/linchenxuan/logmgr/config"
	"github.com/linchenxuan/logmgr/log"
)

func main() {
	if err := run(); err != nil {
		stdlog.Fatalf("application error: %v", err)
	}
}

func run() error {
	// Parse command-line flags
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	// Priority: CLI flag > LOGMGR_CONFIG env var > defaults only
	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = os.Getenv("LOGMGR_CONFIG")
	}

	cfg, err := config.NewLoader().Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := logmgr.Init(ctx, *cfg)
	if err != nil {
		return err
	}
	m.Logger.Info("starting logmgrd",
		zap.String("config", cfgPath),
		zap.String("dir", m.Registry.GetCurrentLogDirectory()))

	readErrChan := make(chan error, 1)
	go func() {
		readErrChan <- pump(os.Stdin, m.Registry, m.Logger)
	}()

	// Wait for termination signal or end of input
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		m.Logger.Info("received termination signal", zap.Stringer("signal", sig))
	case runErr = <-readErrChan:
		if runErr != nil {
			m.Logger.Error("read input", zap.Error(runErr))
		}
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := m.TearDown(shutdownCtx); err != nil {
		m.Logger.Error("teardown", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// pump routes every line of r until EOF. Malformed lines are logged and skipped.
func pump(r io.Reader, registry *log.Registry, logger *zap.Logger) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)
	for scanner.Scan() {
		rec, err := parseRecord(scanner.Text())
		if err != nil {
			logger.Warn("skip malformed record", zap.Error(err))
			continue
		}
		if err := registry.Log(rec.category, rec.verbosity, rec.message); err != nil {
			logger.Error("write record", zap.String("category", rec.category), zap.Error(err))
		}
	}
	return scanner.Err()
}
