package log

import (
	"errors"
	"fmt"
)

// Sentinel errors reported by writers and the registry.
var (
	ErrSinkUnavailable = errors.New("sink unavailable")
	ErrIo              = errors.New("sink io error")
	ErrWriterClosed    = errors.New("async writer is closed")
	ErrRegistryClosed  = errors.New("writer registry is torn down")
)

// IoError is a failed Write or Flush against a Sink.
type IoError struct {
	Writer string
	Op     string
	Err    error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("sink io error: writer=%s op=%s: %v", e.Writer, e.Op, e.Err)
}

func (e *IoError) Unwrap() []error {
	return []error{ErrIo, e.Err}
}

func newIoError(writer, op string, err error) error {
	if err == nil {
		return nil
	}
	return &IoError{Writer: writer, Op: op, Err: err}
}
