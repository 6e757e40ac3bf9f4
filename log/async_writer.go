package log

import (
	"errors"
	"sync"
	"time"
)

const (
	defaultBufferSize    = 128 << 10
	defaultFlushInterval = 200 * time.Millisecond
	defaultWakeInterval  = 10 * time.Millisecond
)

// WriterCfg holds the per-writer tuning knobs.
type WriterCfg struct {
	// BufferSize is the initial ring buffer capacity in bytes.
	BufferSize int

	// FlushInterval bounds how long drained bytes may sit unflushed in the Sink.
	FlushInterval time.Duration

	// WakeInterval is how often an idle worker re-checks the buffer.
	WakeInterval time.Duration

	// SyncWrite drains on the caller's goroutine instead of a background worker.
	SyncWrite bool
}

func (c *WriterCfg) normalize() {
	if c.BufferSize < 2 {
		c.BufferSize = defaultBufferSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = defaultFlushInterval
	}
	if c.WakeInterval <= 0 {
		c.WakeInterval = defaultWakeInterval
	}
}

// AsyncWriter buffers appended bytes in a RingBuffer and drains them to a Sink.
//
// Any number of goroutines may Append concurrently; their bytes reach the Sink in the
// order they acquired the producer lock. Flush blocks until everything appended before
// it has been written and the Sink has been flushed.
type AsyncWriter struct {
	name     string
	sink     Sink
	rb       *RingBuffer
	observer Observer

	lock    sync.Mutex
	closed  bool
	backend drainBackend

	// consumer-side state
	flushInterval time.Duration
	lastFlush     time.Time
	unflushed     int
	writeErr      error
}

// NewAsyncWriter wraps sink with a ring buffer and starts the configured drain backend.
// A nil observer is replaced by NopObserver.
func NewAsyncWriter(name string, sink Sink, cfg WriterCfg, observer Observer) *AsyncWriter {
	cfg.normalize()
	if observer == nil {
		observer = NopObserver{}
	}

	w := &AsyncWriter{
		name:          name,
		sink:          sink,
		rb:            NewRingBuffer(cfg.BufferSize),
		observer:      observer,
		flushInterval: cfg.FlushInterval,
		lastFlush:     time.Now(),
	}
	if cfg.SyncWrite {
		w.backend = inlineBackend{w: w}
	} else {
		w.backend = newWorkerBackend(w, cfg.WakeInterval)
	}
	return w
}

// Name returns the writer's name, usually the path of its log file.
func (w *AsyncWriter) Name() string {
	return w.name
}

// Append copies p into the buffer. Empty payloads and appends after Close are ignored.
// Append blocks only when the buffer has to be drained to make room.
func (w *AsyncWriter) Append(p []byte) {
	if len(p) == 0 {
		return
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	if w.closed {
		return
	}

	// A payload that exactly fills the free space would make end == start.
	if w.rb.Free() <= len(p) {
		// Write errors were already reported by drain.
		_ = w.backend.force(false)
		if len(p) >= w.rb.Cap() {
			w.rb.Grow(len(p))
			w.observer.Grew(w.name, w.rb.Cap())
		}
	}

	w.rb.Put(p)
	w.backend.pending()
}

// Write implements io.Writer on top of Append. It never fails.
func (w *AsyncWriter) Write(p []byte) (int, error) {
	w.Append(p)
	return len(p), nil
}

// Flush drains the buffer and flushes the Sink. It returns an *IoError if either step failed.
func (w *AsyncWriter) Flush() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	return w.backend.force(true)
}

// Close flushes, stops the drain backend and closes the Sink. Calling Close again is a no-op.
func (w *AsyncWriter) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.closed {
		return nil
	}

	err := w.backend.force(true)
	w.closed = true
	w.backend.stop()

	if cerr := w.sink.Close(); cerr != nil {
		w.observer.SinkError(w.name, "close", cerr)
		err = errors.Join(err, newIoError(w.name, "close", cerr))
	}
	return err
}

// Cap returns the current ring buffer capacity.
func (w *AsyncWriter) Cap() int {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.rb.Cap()
}

func (w *AsyncWriter) hasPending() bool {
	return !w.rb.Empty()
}

// drain hands every byte appended so far to the Sink, in at most two writes.
// Failed bytes are discarded: the cursor always advances to the snapshot.
func (w *AsyncWriter) drain() error {
	target, first, second := w.rb.Pending()
	if first == nil {
		return nil
	}

	written, err := w.sink.Write(first)
	if err == nil && second != nil {
		var n int
		n, err = w.sink.Write(second)
		written += n
	}
	w.rb.Consume(target)

	w.unflushed += written
	if written > 0 {
		w.observer.Drained(w.name, written)
	}
	if err != nil {
		w.observer.SinkError(w.name, "write", err)
		err = newIoError(w.name, "write", err)
		if w.writeErr == nil {
			w.writeErr = err
		}
	}
	return err
}

// forceDrain is the consumer side of a forced drain. With flush set it also flushes
// the Sink and reports the first write error seen since the previous flush, so that
// failures in background drains still reach a Flush caller.
func (w *AsyncWriter) forceDrain(flush bool) error {
	err := w.drain()
	if !flush {
		return err
	}

	err, w.writeErr = w.writeErr, nil
	if ferr := w.flushSink(); err == nil {
		err = ferr
	}
	return err
}

func (w *AsyncWriter) flushSink() error {
	begin := time.Now()
	err := w.sink.Flush()
	w.lastFlush = time.Now()
	w.unflushed = 0
	if err != nil {
		w.observer.SinkError(w.name, "flush", err)
		return newIoError(w.name, "flush", err)
	}
	w.observer.Flushed(w.name, w.lastFlush.Sub(begin))
	return nil
}

// periodicFlush flushes the Sink once FlushInterval has passed since the last flush,
// provided something was written in between.
func (w *AsyncWriter) periodicFlush() {
	if w.unflushed == 0 || time.Since(w.lastFlush) < w.flushInterval {
		return
	}
	_ = w.flushSink()
}
