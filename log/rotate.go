package log

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// Default file permissions for log files and directories
	defaultFileMode = 0644
	defaultDirMode  = 0755

	// Time-related constants for rotation calculations
	secondsPerDay = 24 * 60 * 60
)

// shouldRotateByTime reports whether a file created at createTime has crossed splitHour.
//
// Rotation triggers when:
//   - the file is at least a day old
//   - the file was created today before splitHour and now is at or past it
//   - the file was created on an earlier day and now is at or past splitHour
//
// A zero splitHour disables time rotation.
func shouldRotateByTime(createTime, now time.Time, splitHour int) bool {
	if splitHour == 0 {
		return false
	}

	if createTime.Unix()+secondsPerDay <= now.Unix() {
		return true
	}

	if createTime.Day() == now.Day() {
		return now.Hour() >= splitHour && createTime.Hour() < splitHour
	}

	return now.Hour() >= splitHour
}

// shouldRotateBySize reports whether size has reached splitMB megabytes.
// A zero splitMB disables size rotation. size counts bytes handed to the sink,
// including bytes still sitting in its buffer.
func shouldRotateBySize(size int64, splitMB int) bool {
	if splitMB == 0 {
		return false
	}
	return size >= int64(splitMB)<<20
}

// backupFileName picks an unused "<path>.YYYYMMDD-HHMMSS" name for a rotated file.
//
// Candidates start at now and step forward a second at a time. After five taken
// names it gives up; the caller keeps the live file and tries again later.
func backupFileName(filePath string, now time.Time) (string, error) {
	for i := 0; i < 5; i++ {
		ts := now.Add(time.Duration(i) * time.Second)
		candidate := fmt.Sprintf("%s.%04d%02d%02d-%02d%02d%02d",
			filePath, ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second())

		_, err := os.Stat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat backup candidate: %w", err)
		}
	}
	return "", errors.New("cannot generate unique backup filename")
}

// openLogFile opens filePath for appending, creating parent directories as needed.
//
// Returns:
//   - fd: the file opened with O_APPEND
//   - size: the current file size, used by size rotation
//   - createTime: the modification time of a non-empty existing file, else now
//   - error: empty path, directory creation, open or stat failure
func openLogFile(filePath string) (*os.File, int64, time.Time, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, 0, time.Time{}, errors.New("filename is empty")
	}

	if dir := filepath.Dir(filePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return nil, 0, time.Time{}, fmt.Errorf("create directory: %w", err)
		}
	}

	fd, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, defaultFileMode)
	if err != nil {
		return nil, 0, time.Time{}, fmt.Errorf("open file: %w", err)
	}

	fi, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, 0, time.Time{}, fmt.Errorf("stat file: %w", err)
	}

	// An existing file keeps its age so that time rotation still fires after a restart.
	createTime := time.Now()
	if fi.Size() > 0 {
		createTime = fi.ModTime()
	}
	return fd, fi.Size(), createTime, nil
}
