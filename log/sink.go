package log

import "fmt"

// Sink is the append-only byte destination behind an AsyncWriter.
// An AsyncWriter never calls a Sink from two goroutines at once: either its worker
// owns the Sink, or the producer owns it inside the writer's critical section.
type Sink interface {
	// Write appends buf to the destination. Partial writes are reported as errors.
	Write(buf []byte) (n int, err error)

	// Flush forces data buffered by the Sink itself down to durable storage.
	Flush() error

	// Close releases the destination. The AsyncWriter flushes before closing.
	Close() error
}

// SinkFactory opens the Sink backing a log file path.
// A returned error means the category owning the path is never given a writer.
type SinkFactory func(path string) (Sink, error)

// NewSinkFactory returns the factory for the configured sink kind.
// Open failures are wrapped in ErrSinkUnavailable.
func NewSinkFactory(cfg SinkCfg) SinkFactory {
	return func(path string) (Sink, error) {
		var (
			sink Sink
			err  error
		)
		switch cfg.Kind {
		case SinkKindConsole:
			sink = NewConsoleSink()
		case SinkKindRolling:
			var rs *RollingSink
			if rs, err = NewRollingSink(path, cfg); err == nil {
				sink = rs
			}
		default:
			var fs *FileSink
			if fs, err = NewFileSink(path, cfg.SplitHour, cfg.SplitMB); err == nil {
				sink = fs
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSinkUnavailable, path, err)
		}
		return sink, nil
	}
}
