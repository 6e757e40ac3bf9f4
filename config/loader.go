// Package config loads logmgr settings from a YAML file, LOGMGR_* environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/linchenxuan/logmgr/diag"
	"github.com/linchenxuan/logmgr/log"
	"github.com/linchenxuan/logmgr/metrics"
)

// EnvPrefix prefixes every environment override, e.g. LOGMGR_LOG_DIR.
const EnvPrefix = "LOGMGR"

// Config is the complete process configuration.
type Config struct {
	Log     log.Cfg     `mapstructure:"log"`
	Metrics metrics.Cfg `mapstructure:"metrics"`
	Diag    diag.Cfg    `mapstructure:"diag"`
}

// Loader handles configuration loading and validation
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Load reads path (optional), applies environment overrides and defaults, and validates the result.
func (l *Loader) Load(path string) (*Config, error) {
	l.setDefaults()

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Only values containing ${...} are expanded.
	for _, key := range l.v.AllKeys() {
		value, ok := l.v.Get(key).(string)
		if ok && strings.Contains(value, "${") {
			l.v.Set(key, os.ExpandEnv(value))
		}
	}

	cfg, err := Decode(l.v.AllSettings())
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Decode converts a generic settings map into a Config.
// Durations accept strings such as "200ms"; verbosities accept names or numbers.
func Decode(settings map[string]any) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			verbosityHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create config decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// verbosityHookFunc turns names like "warning" into log.Verbosity.
func verbosityHookFunc() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(log.Verbosity(0))
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != target || from.Kind() != reflect.String {
			return data, nil
		}
		return log.ParseVerbosity(data.(string))
	}
}

// setDefaults sets default configuration values
func (l *Loader) setDefaults() {
	// Log engine defaults
	l.v.SetDefault("log.dir", "./logs")
	l.v.SetDefault("log.appName", "")
	l.v.SetDefault("log.filename", "")
	l.v.SetDefault("log.bufferSize", 128<<10)
	l.v.SetDefault("log.flushInterval", "200ms")
	l.v.SetDefault("log.wakeInterval", "10ms")
	l.v.SetDefault("log.forceFlush", false)
	l.v.SetDefault("log.syncWrite", false)
	l.v.SetDefault("log.defaultFlushOn", "warning")
	l.v.SetDefault("log.omitCategory", false)
	l.v.SetDefault("log.noBOM", false)
	l.v.SetDefault("log.lineTerminator", "\r\n")
	l.v.SetDefault("log.keepSessions", 0)
	l.v.SetDefault("log.sink.kind", "file")
	l.v.SetDefault("log.sink.splitMB", 0)
	l.v.SetDefault("log.sink.splitHour", 0)
	l.v.SetDefault("log.sink.maxBackups", 0)
	l.v.SetDefault("log.sink.maxAgeDays", 0)

	// Metrics defaults
	l.v.SetDefault("metrics.enabled", false)
	l.v.SetDefault("metrics.listenAddr", ":9464")
	l.v.SetDefault("metrics.path", "/metrics")
	l.v.SetDefault("metrics.enableHealthCheck", false)
	l.v.SetDefault("metrics.healthCheckPath", "/health")
	l.v.SetDefault("metrics.pushAddr", "")
	l.v.SetDefault("metrics.pushJobName", "logmgr")
	l.v.SetDefault("metrics.pushInterval", "15s")

	// Diagnostic logger defaults
	l.v.SetDefault("diag.level", "info")
	l.v.SetDefault("diag.format", "json")
	l.v.SetDefault("diag.output", "stderr")
	l.v.SetDefault("diag.rateLimit.window", "1m")
	l.v.SetDefault("diag.rateLimit.burst", 10)
}

// Validate applies component defaults and checks the configuration.
func Validate(cfg *Config) error {
	if err := log.CheckCfgValid(&cfg.Log); err != nil {
		return err
	}
	if err := cfg.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	metrics.CheckCfgValid(&cfg.Metrics)
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/': %q", cfg.Metrics.Path)
	}

	diag.CheckCfgValid(&cfg.Diag)
	if _, err := diag.ParseLevel(cfg.Diag.Level); err != nil {
		return fmt.Errorf("diag: %w", err)
	}
	return nil
}
