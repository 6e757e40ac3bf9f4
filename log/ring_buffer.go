package log

import (
	"fmt"
	"sync/atomic"
)

// RingBuffer is a circular byte store shared by one producer critical section and one consumer.
//
// The producer owns end and the storage array; the consumer owns start. Both cursors are
// atomics so that the producer can read a stale start without a lock: a stale start only
// underestimates free space. Capacity always stays strictly larger than any message written
// into it, so start == end unambiguously means empty.
type RingBuffer struct {
	buf   []byte
	start atomic.Int64
	end   atomic.Int64
}

// NewRingBuffer allocates a ring buffer with the given capacity in bytes.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 2 {
		panic(fmt.Sprintf("ringbuffer: capacity %d too small", capacity))
	}
	return &RingBuffer{buf: make([]byte, capacity)}
}

// Cap returns the current storage size. Producer side only.
func (r *RingBuffer) Cap() int {
	return len(r.buf)
}

// Free returns the free space as seen by the producer.
func (r *RingBuffer) Free() int {
	start := r.start.Load()
	end := r.end.Load()
	if start <= end {
		return len(r.buf) - int(end) + int(start)
	}
	return int(start - end)
}

// Len returns the number of buffered bytes. Producer side only.
func (r *RingBuffer) Len() int {
	return len(r.buf) - r.Free()
}

// Empty reports whether every written byte has been consumed.
func (r *RingBuffer) Empty() bool {
	return r.start.Load() == r.end.Load()
}

// Put copies p at the write cursor, wrapping once past the end of storage.
// The caller holds the producer lock and has made room: len(p) must be below Free.
func (r *RingBuffer) Put(p []byte) {
	if len(p) >= r.Free() {
		panic(fmt.Sprintf("ringbuffer: put of %d bytes with %d free", len(p), r.Free()))
	}

	end := int(r.end.Load())
	if n := copy(r.buf[end:], p); n < len(p) {
		copy(r.buf, p[n:])
	}
	r.end.Store(int64((end + len(p)) % len(r.buf)))
}

// Grow resizes an empty buffer so that a message of n bytes fits, leaving one spare byte.
// Storage never shrinks.
func (r *RingBuffer) Grow(n int) {
	if !r.Empty() {
		panic("ringbuffer: grow while data is pending")
	}
	if n+1 <= len(r.buf) {
		panic(fmt.Sprintf("ringbuffer: grow to %d does not exceed capacity %d", n+1, len(r.buf)))
	}

	buf := make([]byte, n+1)
	copy(buf, r.buf)
	r.buf = buf
}

// Pending snapshots the write cursor and returns the unconsumed bytes up to it.
// second is non-nil only when the data wraps. The producer may keep appending; those
// bytes belong to the next pass. Consumer side only.
func (r *RingBuffer) Pending() (target int64, first, second []byte) {
	target = r.end.Load()
	start := r.start.Load()
	if target == start {
		return target, nil, nil
	}
	if target > start {
		return target, r.buf[start:target], nil
	}
	return target, r.buf[start:], r.buf[:target]
}

// Consume moves the read cursor to target. Consumer side only.
func (r *RingBuffer) Consume(target int64) {
	r.start.Store(target)
}
