package log

import (
	"io"
	"os"
)

// ConsoleSink writes log bytes straight to a terminal stream, stdout by default.
// Writes are unbuffered, so Flush and Close have nothing to do.
type ConsoleSink struct {
	out io.Writer
}

// NewConsoleSink returns a sink writing to stdout.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{out: os.Stdout}
}

func (s *ConsoleSink) Write(buf []byte) (int, error) {
	return s.out.Write(buf)
}

func (s *ConsoleSink) Flush() error {
	return nil
}

func (s *ConsoleSink) Close() error {
	return nil
}
