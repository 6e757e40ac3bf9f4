package log

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// memSink records everything handed to it. Errors can be injected per operation.
type memSink struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	writes   [][]byte
	flushes  int
	closed   bool
	writeErr error
	flushErr error
	// flushedLen is len(buf) at the most recent Flush.
	flushedLen int
}

func newMemSink() *memSink {
	return &memSink{}
}

func (s *memSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	s.buf.Write(p)
	s.writes = append(s.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (s *memSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	s.flushedLen = s.buf.Len()
	return s.flushErr
}

func (s *memSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func (s *memSink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}

func (s *memSink) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

func (s *memSink) FlushedLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushedLen
}

func (s *memSink) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.writes...)
}

func (s *memSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *memSink) SetWriteErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

func (s *memSink) SetFlushErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushErr = err
}

// memSinkFactory hands out one memSink per path and can refuse selected paths.
type memSinkFactory struct {
	mu    sync.Mutex
	sinks map[string]*memSink
	fail  map[string]bool
}

func newMemSinkFactory() *memSinkFactory {
	return &memSinkFactory{
		sinks: make(map[string]*memSink),
		fail:  make(map[string]bool),
	}
}

func (f *memSinkFactory) Open(path string) (Sink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[path] {
		return nil, ErrSinkUnavailable
	}
	s := newMemSink()
	f.sinks[path] = s
	return s, nil
}

func (f *memSinkFactory) Fail(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[path] = true
}

func (f *memSinkFactory) Sink(path string) *memSink {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sinks[path]
}

// recordingObserver counts notifications.
type recordingObserver struct {
	mu        sync.Mutex
	sinkErrs  []error
	ops       []string
	drained   int
	grew      []int
	flushed   int
	dropped   []string
	allocated int
}

func (o *recordingObserver) SinkError(_, op string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sinkErrs = append(o.sinkErrs, err)
	o.ops = append(o.ops, op)
}

func (o *recordingObserver) Drained(_ string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.drained += n
}

func (o *recordingObserver) Grew(_ string, capacity int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.grew = append(o.grew, capacity)
}

func (o *recordingObserver) Flushed(string, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flushed++
}

func (o *recordingObserver) Dropped(category string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped = append(o.dropped, category)
}

func (o *recordingObserver) Allocated(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.allocated++
}

func (o *recordingObserver) Ops() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.ops...)
}

func (o *recordingObserver) DroppedCategories() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.dropped...)
}

var errDiskFull = errors.New("disk full")
