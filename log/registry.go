package log

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/linchenxuan/logmgr/utils/file"
)

// FilterEntry binds a category to its writer and flush threshold.
// Writer is nil when its Sink could not be opened; records for the category are dropped.
type FilterEntry struct {
	Category string
	Writer   *AsyncWriter
	FlushOn  Verbosity
}

// Route is where a record goes.
type Route struct {
	Writer *AsyncWriter

	// FlushNow asks for a synchronous Flush right after the append.
	FlushNow bool

	// EmbedCategory is set when the record falls back to the shared default writer.
	EmbedCategory bool
}

// RegistryOption customizes a Registry at construction.
type RegistryOption interface {
	apply(*Registry)
}

type registryOptionFunc func(*Registry)

func (f registryOptionFunc) apply(r *Registry) {
	f(r)
}

// WithSinkFactory replaces the Sink factory derived from the configuration.
func WithSinkFactory(factory SinkFactory) RegistryOption {
	return registryOptionFunc(func(r *Registry) {
		r.factory = factory
	})
}

// WithObserver attaches an observer to the registry and every writer it creates.
func WithObserver(observer Observer) RegistryOption {
	return registryOptionFunc(func(r *Registry) {
		if observer != nil {
			r.observer = observer
		}
	})
}

// WithLogDir uses dir as the session directory instead of creating a new one.
func WithLogDir(dir string) RegistryOption {
	return registryOptionFunc(func(r *Registry) {
		r.logDir = dir
	})
}

// WithClock overrides the time source for session names, markers and line timestamps.
func WithClock(now func() time.Time) RegistryOption {
	return registryOptionFunc(func(r *Registry) {
		r.now = now
	})
}

// Registry maps log categories to writers. Entry 0 is the default entry: it has an
// empty category and owns the fallback writer shared by every unregistered category.
// Categories are compared case-insensitively. All methods are safe for concurrent use.
type Registry struct {
	cfg       Cfg
	logDir    string
	factory   SinkFactory
	observer  Observer
	formatter *Formatter
	now       func() time.Time

	lock    sync.RWMutex
	entries []*FilterEntry
	closed  bool
}

// NewRegistry creates the session directory, opens the default writer and registers
// every configured filter. Only configuration and directory errors are returned; a
// writer that fails to open leaves its category silently dropped.
func NewRegistry(cfg Cfg, opts ...RegistryOption) (*Registry, error) {
	if err := CheckCfgValid(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid log config: %w", err)
	}

	r := &Registry{
		cfg:      cfg,
		observer: NopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt.apply(r)
	}
	if r.factory == nil {
		r.factory = NewSinkFactory(cfg.Sink)
	}
	r.formatter = NewFormatter(cfg.LineTerminator, r.observer)
	r.formatter.now = r.now

	if r.logDir == "" {
		dir, err := file.NewSessionDir(cfg.Dir, cfg.AppName, r.now())
		if err != nil {
			return nil, err
		}
		r.logDir = dir
	}

	if cfg.KeepSessions > 0 {
		if err := r.RemainsLogCount(cfg.KeepSessions); err != nil {
			r.observer.SinkError(r.logDir, "prune", err)
		}
	}

	flushOn := cfg.DefaultFlushOn
	if cfg.ForceFlush {
		flushOn = All
	}
	r.entries = append(r.entries, &FilterEntry{
		Writer:  r.openWriter(r.defaultLogPath()),
		FlushOn: flushOn,
	})

	for _, f := range cfg.Filters {
		r.AddFilter(f.Category, f.FlushOn)
	}
	return r, nil
}

func (r *Registry) defaultLogPath() string {
	if r.cfg.Filename == "" {
		return filepath.Join(r.logDir, r.cfg.AppName+".log")
	}
	if filepath.IsAbs(r.cfg.Filename) {
		return r.cfg.Filename
	}
	return filepath.Join(r.logDir, r.cfg.Filename)
}

// openWriter creates the writer for path and stamps the file header. It returns nil
// when the Sink is unavailable.
func (r *Registry) openWriter(path string) *AsyncWriter {
	sink, err := r.factory(path)
	if err != nil {
		r.observer.SinkError(path, "open", err)
		return nil
	}

	w := NewAsyncWriter(path, sink, r.cfg.WriterCfg(), r.observer)
	if !r.cfg.NoBOM {
		w.Append(utf8BOM)
	}
	r.writeLine(w, "", Display, "Log file open, "+markerTimestamp(r.now()), false)
	return w
}

func (r *Registry) writeLine(w *AsyncWriter, category string, v Verbosity, msg string, showCategory bool) {
	buf := r.formatter.Format(category, v, msg, showCategory)
	w.Append(buf.Bytes())
	r.formatter.Release(buf)
}

// find returns the index of category or -1. Callers hold the lock.
func (r *Registry) find(category string) int {
	for i, e := range r.entries {
		if strings.EqualFold(e.Category, category) {
			return i
		}
	}
	return -1
}

// AddFilter gives category its own log file "<dir>/<category>.log" with the given
// flush threshold. Empty and already registered categories are ignored.
func (r *Registry) AddFilter(category string, flushOn Verbosity) {
	category = strings.TrimSpace(category)
	if category == "" {
		return
	}
	if r.cfg.ForceFlush {
		flushOn = All
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed || r.find(category) >= 0 {
		return
	}
	r.entries = append(r.entries, &FilterEntry{
		Category: category,
		Writer:   r.openWriter(filepath.Join(r.logDir, category+".log")),
		FlushOn:  flushOn,
	})
}

// ChangeThreshold updates the flush threshold of a registered category.
// Pass "" to change the default entry.
func (r *Registry) ChangeThreshold(category string, flushOn Verbosity) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if i := r.find(strings.TrimSpace(category)); i >= 0 {
		r.entries[i].FlushOn = flushOn
	}
}

// RemoveFilter closes the writer of a registered category and forgets it. Later records
// for the category go to the default writer. The default entry cannot be removed.
func (r *Registry) RemoveFilter(category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil
	}

	r.lock.Lock()
	i := r.find(category)
	if i <= 0 {
		r.lock.Unlock()
		return nil
	}
	entry := r.entries[i]
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	r.lock.Unlock()

	return r.closeWriter(entry.Writer)
}

// Entries returns a snapshot of the registered filters, default entry first.
func (r *Registry) Entries() []FilterEntry {
	r.lock.RLock()
	defer r.lock.RUnlock()

	out := make([]FilterEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out
}

// Route resolves the writer for a record. ok is false when the record must be dropped.
func (r *Registry) Route(category string, v Verbosity) (route Route, ok bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.closed || len(r.entries) == 0 {
		return Route{}, false
	}

	entry := r.entries[0]
	fallback := true
	if category != "" {
		if i := r.find(category); i >= 0 {
			entry = r.entries[i]
			fallback = i == 0
		}
	}
	if entry.Writer == nil {
		return Route{}, false
	}

	return Route{
		Writer:        entry.Writer,
		FlushNow:      r.cfg.ForceFlush || v.IsMoreUrgentOrEqual(entry.FlushOn),
		EmbedCategory: fallback && category != "" && !r.cfg.OmitCategory,
	}, true
}

// Record appends an already formatted payload for category and flushes synchronously
// when v reaches the category's threshold. The returned error is the flush error, if any.
func (r *Registry) Record(category string, v Verbosity, p []byte) error {
	if v == NoLogging {
		return nil
	}
	route, ok := r.Route(category, v)
	if !ok {
		r.observer.Dropped(category)
		return nil
	}
	route.Writer.Append(p)
	return r.flushRoute(route)
}

// Log formats msg and records it.
func (r *Registry) Log(category string, v Verbosity, msg string) error {
	if v == NoLogging {
		return nil
	}
	route, ok := r.Route(category, v)
	if !ok {
		r.observer.Dropped(category)
		return nil
	}
	r.writeLine(route.Writer, category, v, msg, route.EmbedCategory)
	return r.flushRoute(route)
}

// Logf formats according to a format specifier and records the result.
func (r *Registry) Logf(category string, v Verbosity, format string, args ...any) error {
	return r.Log(category, v, fmt.Sprintf(format, args...))
}

func (r *Registry) flushRoute(route Route) error {
	if !route.FlushNow {
		return nil
	}
	if err := route.Writer.Flush(); err != nil && !errors.Is(err, ErrWriterClosed) {
		return err
	}
	return nil
}

// Flush flushes every live writer and joins their errors.
func (r *Registry) Flush() error {
	r.lock.RLock()
	if r.closed {
		r.lock.RUnlock()
		return ErrRegistryClosed
	}
	writers := r.liveWriters()
	r.lock.RUnlock()

	var errs []error
	for _, w := range writers {
		if err := w.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TearDown stamps a closing marker into every file, flushes and closes all writers, and
// empties the registry. Records arriving afterwards are dropped. Later calls are no-ops.
func (r *Registry) TearDown() error {
	r.lock.Lock()
	if r.closed {
		r.lock.Unlock()
		return nil
	}
	r.closed = true
	writers := r.liveWriters()
	r.entries = nil
	r.lock.Unlock()

	var errs []error
	for _, w := range writers {
		if err := r.closeWriter(w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) closeWriter(w *AsyncWriter) error {
	if w == nil {
		return nil
	}
	r.writeLine(w, "", Display, "Log file closed, "+markerTimestamp(r.now()), false)
	return errors.Join(w.Flush(), w.Close())
}

// liveWriters lists non-nil writers. Callers hold the lock.
func (r *Registry) liveWriters() []*AsyncWriter {
	writers := make([]*AsyncWriter, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Writer != nil {
			writers = append(writers, e.Writer)
		}
	}
	return writers
}

// GetCurrentLogDirectory returns the session directory holding this run's log files.
func (r *Registry) GetCurrentLogDirectory() string {
	return r.logDir
}

// RemainsLogCount deletes the oldest session directories of this application so that
// at most n remain next to the current one's parent. The current session is kept.
func (r *Registry) RemainsLogCount(n int) error {
	if n < 0 {
		return nil
	}
	_, err := file.PruneSessions(filepath.Dir(r.logDir), r.cfg.AppName, r.logDir, n)
	return err
}
