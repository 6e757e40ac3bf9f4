// Package diag reports the log engine's own failures through zap.
package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Cfg configures the diagnostic logger.
type Cfg struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Format is json or console.
	Format string `mapstructure:"format"`

	// Output is stderr, stdout or a file path. Files rotate through lumberjack.
	Output string `mapstructure:"output"`

	// RateLimit caps repeated reports of the same kind per writer.
	RateLimit RateCfg `mapstructure:"rateLimit"`
}

// RateCfg allows Burst reports per Window for each (event, writer) pair.
type RateCfg struct {
	Window time.Duration `mapstructure:"window"`
	Burst  int           `mapstructure:"burst"`
}

// CheckCfgValid applies defaults to unset fields.
func CheckCfgValid(cfg *Cfg) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 10
	}
}

// ParseLevel maps a level name onto zap's levels.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown diag level %q", level)
	}
}

// NewLogger builds the diagnostic zap logger.
func NewLogger(cfg Cfg) (*zap.Logger, error) {
	CheckCfgValid(&cfg)

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unknown diag format %q", cfg.Format)
	}

	var output zapcore.WriteSyncer
	switch cfg.Output {
	case "stderr":
		output = zapcore.Lock(os.Stderr)
	case "stdout":
		output = zapcore.Lock(os.Stdout)
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create diag log directory: %w", err)
		}
		output = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    50,
			MaxBackups: 3,
		})
	}

	core := zapcore.NewCore(encoder, output, zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller()).Named("logmgr"), nil
}
