package log

import (
	"bufio"
	"fmt"
	"os"
	"time"
)

const fileSinkBufferSize = 64 << 10

// FileSink is a buffered append-only log file with optional size and time rotation.
// Flush pushes the user-space buffer to the kernel and fsyncs the file.
//
// A failed rotation never ends logging: the sink keeps appending to the live file, or
// reopens it on the next Write when the rotation left no file open.
// FileSink is not safe for concurrent use; an AsyncWriter serializes access to it.
type FileSink struct {
	path       string
	splitHour  int
	splitMB    int
	fd         *os.File
	bw         *bufio.Writer
	size       int64
	createTime time.Time
	closed     bool
}

// NewFileSink opens path for appending, creating parent directories as needed.
//
// Parameters:
//   - path: log file path, the live file always keeps this name
//   - splitHour: hour of day (1-23) at which the file is rotated, 0 disables it
//   - splitMB: size in megabytes at which the file is rotated, 0 disables it
func NewFileSink(path string, splitHour, splitMB int) (*FileSink, error) {
	s := &FileSink{
		path:      path,
		splitHour: splitHour,
		splitMB:   splitMB,
	}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// open (re)opens the live file and points the buffered writer at it.
func (s *FileSink) open() error {
	fd, size, createTime, err := openLogFile(s.path)
	if err != nil {
		return err
	}
	s.fd = fd
	s.size = size
	s.createTime = createTime
	if s.bw == nil {
		s.bw = bufio.NewWriterSize(fd, fileSinkBufferSize)
	} else {
		s.bw.Reset(fd)
	}
	return nil
}

// ensureOpen reopens the live file when an earlier rotation lost it.
func (s *FileSink) ensureOpen() error {
	if s.closed {
		return os.ErrClosed
	}
	if s.fd != nil {
		return nil
	}
	if err := s.open(); err != nil {
		return fmt.Errorf("reopen log file: %w", err)
	}
	return nil
}

// Path returns the path of the live file.
func (s *FileSink) Path() string {
	return s.path
}

// Write buffers buf for the live file, rotating first when a threshold was crossed.
// After Close it returns os.ErrClosed.
func (s *FileSink) Write(buf []byte) (int, error) {
	if err := s.ensureOpen(); err != nil {
		return 0, err
	}
	if err := s.rotateIfNeeded(time.Now()); err != nil {
		return 0, err
	}

	n, err := s.bw.Write(buf)
	s.size += int64(n)
	return n, err
}

// Flush writes buffered bytes to the file and fsyncs it.
// After Close it returns os.ErrClosed.
func (s *FileSink) Flush() error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.bw.Flush(); err != nil {
		return err
	}
	return s.fd.Sync()
}

// Close flushes and closes the file. Calling Close again is a no-op.
func (s *FileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.fd == nil {
		return nil
	}

	err := s.bw.Flush()
	if err == nil {
		err = s.fd.Sync()
	}
	if cerr := s.fd.Close(); err == nil {
		err = cerr
	}
	s.fd = nil
	return err
}

// rotateIfNeeded moves the live file aside and reopens path once a threshold is crossed.
// Buffered bytes belong to the old file and are flushed before the rename.
//
// When no backup name is free or the rename fails, the live file is kept and its
// rotation clock restarts, so the next attempt waits for another full period.
// When the new file cannot be opened, fd stays nil and Write retries the open.
func (s *FileSink) rotateIfNeeded(now time.Time) error {
	if !shouldRotateByTime(s.createTime, now, s.splitHour) && !shouldRotateBySize(s.size, s.splitMB) {
		return nil
	}

	backup, err := backupFileName(s.path, now)
	if err != nil {
		s.restartRotationClock(now)
		return fmt.Errorf("generate backup filename: %w", err)
	}

	if err := s.bw.Flush(); err != nil {
		return fmt.Errorf("flush before rotation: %w", err)
	}
	cerr := s.fd.Close()
	s.fd = nil
	if cerr != nil {
		return fmt.Errorf("close old file: %w", cerr)
	}

	if err := os.Rename(s.path, backup); err != nil {
		if oerr := s.open(); oerr != nil {
			return fmt.Errorf("rename file: %w (reopen: %v)", err, oerr)
		}
		s.restartRotationClock(now)
		return fmt.Errorf("rename file: %w", err)
	}

	if err := s.open(); err != nil {
		return fmt.Errorf("open new log file: %w", err)
	}
	return nil
}

func (s *FileSink) restartRotationClock(now time.Time) {
	s.size = 0
	s.createTime = now
}
