package log

import "time"

// Observer receives notifications about the engine's own behaviour.
// Implementations must be safe for concurrent use and must not call back into the
// writer that reported the event.
type Observer interface {
	// SinkError reports a failed Sink operation. op is "write", "flush", "close" or "open".
	SinkError(writer, op string, err error)

	// Drained reports n bytes handed to a writer's Sink by one drain pass.
	Drained(writer string, n int)

	// Grew reports a ring buffer resize to the new capacity.
	Grew(writer string, capacity int)

	// Flushed reports a completed Sink flush and its duration.
	Flushed(writer string, d time.Duration)

	// Dropped reports a record that no writer could accept.
	Dropped(category string)

	// Allocated reports a buffer pool miss.
	Allocated(pool string)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) SinkError(string, string, error) {}
func (NopObserver) Drained(string, int)             {}
func (NopObserver) Grew(string, int)                {}
func (NopObserver) Flushed(string, time.Duration)   {}
func (NopObserver) Dropped(string)                  {}
func (NopObserver) Allocated(string)                {}

// MultiObserver fans every notification out to a list of observers in order.
type MultiObserver []Observer

// NewMultiObserver drops nil entries and returns a single observer.
func NewMultiObserver(observers ...Observer) Observer {
	m := make(MultiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	switch len(m) {
	case 0:
		return NopObserver{}
	case 1:
		return m[0]
	}
	return m
}

func (m MultiObserver) SinkError(writer, op string, err error) {
	for _, o := range m {
		o.SinkError(writer, op, err)
	}
}

func (m MultiObserver) Drained(writer string, n int) {
	for _, o := range m {
		o.Drained(writer, n)
	}
}

func (m MultiObserver) Grew(writer string, capacity int) {
	for _, o := range m {
		o.Grew(writer, capacity)
	}
}

func (m MultiObserver) Flushed(writer string, d time.Duration) {
	for _, o := range m {
		o.Flushed(writer, d)
	}
}

func (m MultiObserver) Dropped(category string) {
	for _, o := range m {
		o.Dropped(category)
	}
}

func (m MultiObserver) Allocated(pool string) {
	for _, o := range m {
		o.Allocated(pool)
	}
}
