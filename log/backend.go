package log

import (
	"sync"
	"time"
)

// drainBackend decides who runs the consumer side of an AsyncWriter.
// Every method is called with the writer's producer lock held.
type drainBackend interface {
	// pending signals that new bytes were appended.
	pending()

	// force drains everything appended so far and, when flush is set, flushes the Sink.
	// It blocks until the consumer has acknowledged the request.
	force(flush bool) error

	// stop terminates the consumer. No further calls follow.
	stop()
}

// drainRequest is a forced drain waiting for acknowledgement.
type drainRequest struct {
	flush bool
	done  chan error
}

// workerBackend runs the consumer on a dedicated goroutine.
// dirty coalesces "data pending" signals; reqChan carries acknowledged drains.
type workerBackend struct {
	w       *AsyncWriter
	wake    time.Duration
	dirty   chan struct{}
	reqChan chan drainRequest
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func newWorkerBackend(w *AsyncWriter, wake time.Duration) *workerBackend {
	b := &workerBackend{
		w:       w,
		wake:    wake,
		dirty:   make(chan struct{}, 1),
		reqChan: make(chan drainRequest),
		stopCh:  make(chan struct{}),
	}
	b.wg.Add(1)
	go b.loop()
	return b
}

func (b *workerBackend) pending() {
	select {
	case b.dirty <- struct{}{}:
	default:
	}
}

func (b *workerBackend) force(flush bool) error {
	req := drainRequest{flush: flush, done: make(chan error, 1)}
	b.reqChan <- req
	return <-req.done
}

func (b *workerBackend) stop() {
	close(b.stopCh)
	b.wg.Wait()
}

// loop is the background consumer. Sink errors never end it.
func (b *workerBackend) loop() {
	defer b.wg.Done()

	tickTimer := time.NewTicker(b.wake)
	defer tickTimer.Stop()
	for {
		select {
		case <-b.stopCh:
			// Producers are gone once stop is called; pick up anything left behind.
			_ = b.w.drain()
			return
		case req := <-b.reqChan:
			req.done <- b.w.forceDrain(req.flush)
		case <-b.dirty:
			_ = b.w.drain()
			b.w.periodicFlush()
		case <-tickTimer.C:
			if b.w.hasPending() {
				_ = b.w.drain()
			}
			b.w.periodicFlush()
		}
	}
}

// inlineBackend drains on the producer's goroutine, inside the producer lock.
type inlineBackend struct {
	w *AsyncWriter
}

func (b inlineBackend) pending() {
	_ = b.w.drain()
}

func (b inlineBackend) force(flush bool) error {
	return b.w.forceDrain(flush)
}

func (inlineBackend) stop() {}
