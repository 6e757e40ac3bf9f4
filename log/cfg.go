package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SinkKind selects the Sink implementation used for every log file.
type SinkKind string

const (
	// SinkKindFile writes through a buffered file with optional size/time rotation.
	SinkKindFile SinkKind = "file"
	// SinkKindRolling delegates rotation and retention to lumberjack.
	SinkKindRolling SinkKind = "rolling"
	// SinkKindConsole writes every file to stdout.
	SinkKindConsole SinkKind = "console"
)

// SinkCfg configures how log files are opened and rotated.
type SinkCfg struct {
	// Kind is one of file, rolling or console. Default: file.
	Kind SinkKind `mapstructure:"kind"`

	// SplitMB is the size threshold in megabytes before a file is rotated.
	// For the file kind 0 disables size rotation. The rolling kind always rotates by
	// size, so 0 selects lumberjack's 100MB default.
	SplitMB int `mapstructure:"splitMB"`

	// SplitHour is the hour of day (1-23) at which a file kind sink rotates. 0 disables it.
	SplitHour int `mapstructure:"splitHour"`

	// MaxBackups bounds the rotated files kept by the rolling kind.
	MaxBackups int `mapstructure:"maxBackups"`

	// MaxAgeDays bounds the age of rotated files kept by the rolling kind.
	MaxAgeDays int `mapstructure:"maxAgeDays"`
}

// FilterCfg pre-registers a category with its own log file.
type FilterCfg struct {
	Category string    `mapstructure:"category"`
	FlushOn  Verbosity `mapstructure:"flushOn"`
}

// Cfg is the complete configuration of a Registry and the writers it creates.
type Cfg struct {
	// Dir is the parent of every session directory.
	Dir string `mapstructure:"dir"`

	// AppName prefixes session directories and names the default log file.
	AppName string `mapstructure:"appName"`

	// Filename overrides the default log file path. Relative names resolve inside the session directory.
	Filename string `mapstructure:"filename"`

	// BufferSize is the initial ring buffer capacity of each writer in bytes.
	BufferSize int `mapstructure:"bufferSize"`

	// FlushInterval bounds how long drained bytes wait for a Sink flush.
	FlushInterval time.Duration `mapstructure:"flushInterval"`

	// WakeInterval is the idle poll period of each background worker.
	WakeInterval time.Duration `mapstructure:"wakeInterval"`

	// ForceFlush flushes after every record regardless of thresholds.
	ForceFlush bool `mapstructure:"forceFlush"`

	// SyncWrite disables background workers; every append drains inline.
	SyncWrite bool `mapstructure:"syncWrite"`

	// DefaultFlushOn is the threshold of the fallback entry. Default: Warning.
	DefaultFlushOn Verbosity `mapstructure:"defaultFlushOn"`

	// OmitCategory never embeds the category in lines written through the fallback writer.
	OmitCategory bool `mapstructure:"omitCategory"`

	// NoBOM suppresses the UTF-8 byte order mark at the head of new files.
	NoBOM bool `mapstructure:"noBOM"`

	// LineTerminator ends every formatted line. Default: "\r\n".
	LineTerminator string `mapstructure:"lineTerminator"`

	// KeepSessions is how many session directories survive startup, the new one included. 0 keeps all.
	KeepSessions int `mapstructure:"keepSessions"`

	Sink    SinkCfg     `mapstructure:"sink"`
	Filters []FilterCfg `mapstructure:"filters"`
}

// CheckCfgValid applies defaults to unset fields of cfg.
//
// Defaults:
//   - Dir: "./logs"
//   - AppName: base name of the running executable
//   - BufferSize: 128KiB, FlushInterval: 200ms, WakeInterval: 10ms
//   - DefaultFlushOn: Warning; filters without a threshold inherit DefaultFlushOn
//   - LineTerminator: "\r\n"
//   - Sink.Kind: file
func CheckCfgValid(cfg *Cfg) error {
	if cfg.Dir == "" {
		cfg.Dir = "./logs"
	}
	if cfg.AppName == "" {
		cfg.AppName = strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.WakeInterval <= 0 {
		cfg.WakeInterval = defaultWakeInterval
	}
	if cfg.DefaultFlushOn == NoLogging {
		cfg.DefaultFlushOn = Warning
	}
	// Configured filters without a threshold inherit the default one.
	// The slice is copied so the caller's configuration stays untouched.
	cfg.Filters = append([]FilterCfg(nil), cfg.Filters...)
	for i := range cfg.Filters {
		if cfg.Filters[i].FlushOn == NoLogging {
			cfg.Filters[i].FlushOn = cfg.DefaultFlushOn
		}
	}
	if cfg.LineTerminator == "" {
		cfg.LineTerminator = "\r\n"
	}
	if cfg.Sink.Kind == "" {
		cfg.Sink.Kind = SinkKindFile
	}
	return nil
}

// Validate checks ranges after defaults have been applied.
//
// Checks performed:
//   - BufferSize holds at least one byte plus the slot that separates full from empty
//   - WakeInterval does not exceed FlushInterval
//   - DefaultFlushOn is a real verbosity (Fatal..All)
//   - Sink.Kind is file, rolling or console
//   - Sink.SplitMB is within 0..1024 and Sink.SplitHour within 0..23
//   - retention limits are non-negative
//   - every filter names a category
func (cfg *Cfg) Validate() error {
	if cfg.BufferSize < 2 {
		return fmt.Errorf("buffer size must be at least 2 bytes, got %d", cfg.BufferSize)
	}

	if cfg.WakeInterval > cfg.FlushInterval {
		return fmt.Errorf("wake interval %v must not exceed flush interval %v", cfg.WakeInterval, cfg.FlushInterval)
	}

	if cfg.DefaultFlushOn < Fatal || cfg.DefaultFlushOn > All {
		return fmt.Errorf("invalid default flush threshold: %d", cfg.DefaultFlushOn)
	}

	switch cfg.Sink.Kind {
	case SinkKindFile, SinkKindRolling, SinkKindConsole:
	default:
		return fmt.Errorf("unknown sink kind %q", cfg.Sink.Kind)
	}

	if cfg.Sink.SplitMB < 0 || cfg.Sink.SplitMB > 1024 {
		return fmt.Errorf("file split size must be between 0MB and 1024MB, got %dMB", cfg.Sink.SplitMB)
	}

	if cfg.Sink.SplitHour < 0 || cfg.Sink.SplitHour > 23 {
		return fmt.Errorf("file split hour must be between 0 and 23, got %d", cfg.Sink.SplitHour)
	}

	if cfg.Sink.MaxBackups < 0 || cfg.Sink.MaxAgeDays < 0 {
		return fmt.Errorf("rolling retention must be non-negative, got backups=%d age=%d",
			cfg.Sink.MaxBackups, cfg.Sink.MaxAgeDays)
	}

	for i, f := range cfg.Filters {
		if strings.TrimSpace(f.Category) == "" {
			return fmt.Errorf("filter %d has an empty category", i)
		}
	}
	return nil
}

// WriterCfg extracts the per-writer settings. Every writer created by a Registry
// shares them.
func (cfg *Cfg) WriterCfg() WriterCfg {
	return WriterCfg{
		BufferSize:    cfg.BufferSize,
		FlushInterval: cfg.FlushInterval,
		WakeInterval:  cfg.WakeInterval,
		SyncWrite:     cfg.SyncWrite,
	}
}
