package log

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// defaultRollingSplitMB matches lumberjack's own default for MaxSize.
const defaultRollingSplitMB = 100

// RollingSink rotates by size through lumberjack and prunes old backups by count and age.
// lumberjack writes straight to the file, so Flush has nothing to push.
type RollingSink struct {
	lj *lumberjack.Logger
}

// NewRollingSink creates the rolling file for path. lumberjack opens the file lazily,
// so the parent directory is created here to surface permission problems early.
func NewRollingSink(path string, cfg SinkCfg) (*RollingSink, error) {
	fd, _, _, err := openLogFile(path)
	if err != nil {
		return nil, err
	}
	fd.Close()

	maxSize := cfg.SplitMB
	if maxSize <= 0 {
		maxSize = defaultRollingSplitMB
	}
	return &RollingSink{
		lj: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			LocalTime:  true,
		},
	}, nil
}

// Write appends buf, rotating first when buf would push the file past MaxSize.
func (s *RollingSink) Write(buf []byte) (int, error) {
	return s.lj.Write(buf)
}

// Flush is a no-op: lumberjack keeps no user-space buffer.
func (s *RollingSink) Flush() error {
	return nil
}

// Close closes the current file. lumberjack reopens it on the next Write.
func (s *RollingSink) Close() error {
	return s.lj.Close()
}

// Rotate closes the current file and starts a new one immediately.
func (s *RollingSink) Rotate() error {
	return s.lj.Rotate()
}
