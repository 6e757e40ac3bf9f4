package log

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter(t *testing.T, sink Sink, cfg WriterCfg, obs Observer) *AsyncWriter {
	t.Helper()
	w := NewAsyncWriter("test", sink, cfg, obs)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestAsyncWriterFlushSmallMessage(t *testing.T) {
	for _, syncWrite := range []bool{false, true} {
		t.Run(fmt.Sprintf("SyncWrite=%v", syncWrite), func(t *testing.T) {
			sink := newMemSink()
			// A long flush interval keeps the periodic flush out of the count.
			w := newTestWriter(t, sink, WriterCfg{BufferSize: 128 << 10, FlushInterval: time.Hour, SyncWrite: syncWrite}, nil)

			w.Append([]byte("0123456789"))
			require.NoError(t, w.Flush())

			assert.Equal(t, "0123456789", sink.String())
			assert.Equal(t, 1, sink.Flushes())
		})
	}
}

func TestAsyncWriterIgnoresEmptyAppend(t *testing.T) {
	sink := newMemSink()
	w := newTestWriter(t, sink, WriterCfg{SyncWrite: true}, nil)

	w.Append(nil)
	w.Append([]byte{})
	require.NoError(t, w.Flush())
	assert.Empty(t, sink.Writes())
}

func TestAsyncWriterFlushWithNothingPending(t *testing.T) {
	sink := newMemSink()
	w := newTestWriter(t, sink, WriterCfg{FlushInterval: time.Hour}, nil)

	require.NoError(t, w.Flush())
	require.NoError(t, w.Flush())
	assert.Equal(t, 2, sink.Flushes())
}

func TestAsyncWriterConcurrentProducers(t *testing.T) {
	const (
		producers = 8
		perWorker = 500
	)

	for _, syncWrite := range []bool{false, true} {
		t.Run(fmt.Sprintf("SyncWrite=%v", syncWrite), func(t *testing.T) {
			sink := newMemSink()
			// A small buffer forces wraparound and forced drains.
			w := newTestWriter(t, sink, WriterCfg{BufferSize: 257, SyncWrite: syncWrite}, nil)

			var wg sync.WaitGroup
			for p := 0; p < producers; p++ {
				wg.Add(1)
				go func(p int) {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						w.Append([]byte(fmt.Sprintf("p%02d-%04d\n", p, i)))
					}
				}(p)
			}
			wg.Wait()
			require.NoError(t, w.Flush())

			lines := bytes.Split(bytes.TrimSuffix(sink.Bytes(), []byte("\n")), []byte("\n"))
			require.Len(t, lines, producers*perWorker)

			// Each producer's records must appear complete and in its own order.
			next := make([]int, producers)
			for _, line := range lines {
				var p, i int
				_, err := fmt.Sscanf(string(line), "p%02d-%04d", &p, &i)
				require.NoError(t, err, "corrupt record %q", line)
				require.Equal(t, next[p], i, "producer %d out of order", p)
				next[p]++
			}
		})
	}
}

func TestAsyncWriterInlineTwoThreads(t *testing.T) {
	sink := newMemSink()
	w := newTestWriter(t, sink, WriterCfg{BufferSize: 1024, SyncWrite: true}, nil)

	record := func(thread, i int) []byte {
		return []byte(fmt.Sprintf("%d:%04d:%s\n", thread, i, bytes.Repeat([]byte{'a' + byte(thread)}, 42)))
	}
	require.Len(t, record(0, 0), 50)

	var wg sync.WaitGroup
	for thread := 0; thread < 2; thread++ {
		wg.Add(1)
		go func(thread int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				w.Append(record(thread, i))
			}
		}(thread)
	}
	wg.Wait()
	require.NoError(t, w.Flush())

	out := sink.Bytes()
	require.Len(t, out, 2000*50)
	seen := make(map[string]bool, 2000)
	for off := 0; off < len(out); off += 50 {
		rec := string(out[off : off+50])
		var thread, i int
		_, err := fmt.Sscanf(rec, "%d:%04d:", &thread, &i)
		require.NoError(t, err)
		require.Equal(t, string(record(thread, i)), rec)
		seen[rec] = true
	}
	assert.Len(t, seen, 2000)
}

func TestAsyncWriterGrowth(t *testing.T) {
	sink := newMemSink()
	obs := &recordingObserver{}
	w := newTestWriter(t, sink, WriterCfg{BufferSize: 16}, obs)

	w.Append([]byte("head-"))
	big := bytes.Repeat([]byte{'B'}, 100)
	w.Append(big)
	w.Append([]byte("-tail"))
	require.NoError(t, w.Flush())

	assert.Equal(t, "head-"+string(big)+"-tail", sink.String())
	assert.Equal(t, 101, w.Cap())
	assert.Equal(t, []int{101}, obs.grew)

	// Growth never shrinks.
	w.Append([]byte("x"))
	require.NoError(t, w.Flush())
	assert.Equal(t, 101, w.Cap())
}

func TestAsyncWriterExactFitForcesDrain(t *testing.T) {
	sink := newMemSink()
	w := newTestWriter(t, sink, WriterCfg{BufferSize: 8, SyncWrite: false, FlushInterval: time.Hour}, nil)

	// 7 bytes fit; another byte would make end == start, so the writer drains first.
	w.Append([]byte("1234567"))
	w.Append([]byte("8"))
	require.NoError(t, w.Flush())
	assert.Equal(t, "12345678", sink.String())
	assert.Equal(t, 8, w.Cap())
}

func TestAsyncWriterPeriodicFlush(t *testing.T) {
	sink := newMemSink()
	w := newTestWriter(t, sink, WriterCfg{FlushInterval: 20 * time.Millisecond, WakeInterval: 5 * time.Millisecond}, nil)

	w.Append([]byte("background"))
	assert.Eventually(t, func() bool {
		return sink.Flushes() >= 1 && sink.FlushedLen() == len("background")
	}, time.Second, 5*time.Millisecond)

	// Nothing new was written, so the worker must not keep flushing.
	n := sink.Flushes()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, n, sink.Flushes())
}

func TestAsyncWriterSinkErrors(t *testing.T) {
	sink := newMemSink()
	obs := &recordingObserver{}
	w := newTestWriter(t, sink, WriterCfg{FlushInterval: time.Hour}, obs)

	t.Run("WriteError", func(t *testing.T) {
		sink.SetWriteErr(errDiskFull)
		w.Append([]byte("lost"))
		err := w.Flush()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrIo)
		assert.ErrorIs(t, err, errDiskFull)

		var ioErr *IoError
		require.True(t, errors.As(err, &ioErr))
		assert.Equal(t, "test", ioErr.Writer)
		assert.Contains(t, obs.Ops(), "write")
	})

	t.Run("RecoversAfterError", func(t *testing.T) {
		sink.SetWriteErr(nil)
		w.Append([]byte("kept"))
		require.NoError(t, w.Flush())
		assert.Equal(t, "kept", sink.String())
	})

	t.Run("FlushError", func(t *testing.T) {
		sink.SetFlushErr(errDiskFull)
		err := w.Flush()
		var ioErr *IoError
		require.True(t, errors.As(err, &ioErr))
		assert.Equal(t, "flush", ioErr.Op)
		sink.SetFlushErr(nil)
	})
}

func TestAsyncWriterClose(t *testing.T) {
	sink := newMemSink()
	w := NewAsyncWriter("close", sink, WriterCfg{}, nil)

	w.Append([]byte("pending"))
	require.NoError(t, w.Close())
	assert.Equal(t, "pending", sink.String())
	assert.True(t, sink.Closed())
	assert.GreaterOrEqual(t, sink.Flushes(), 1)

	// Closed writers drop appends and refuse flushes.
	require.NoError(t, w.Close())
	w.Append([]byte("dropped"))
	assert.ErrorIs(t, w.Flush(), ErrWriterClosed)
	assert.Equal(t, "pending", sink.String())
}

func TestAsyncWriterIsIOWriter(t *testing.T) {
	sink := newMemSink()
	w := newTestWriter(t, sink, WriterCfg{SyncWrite: true}, nil)

	n, err := fmt.Fprintf(w, "hello %s", "world")
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, "hello world", sink.String())
}
