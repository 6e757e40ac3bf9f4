// Package file manages per-run log session directories.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrEmptyAppName is returned when a session is requested without an application name.
var ErrEmptyAppName = errors.New("application name is empty")

// _dirMode is the permission set for created session directories.
var _dirMode fs.FileMode = 0o755

// SessionDirName returns "<appName> YYYY.MM.DD-HH.MM.SS.mmm". Names sort by start time.
func SessionDirName(appName string, t time.Time) string {
	return fmt.Sprintf("%s %04d.%02d.%02d-%02d.%02d.%02d.%03d", appName,
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(),
		t.Nanosecond()/int(time.Millisecond))
}

// NewSessionDir creates the session directory for a run started at t under root.
func NewSessionDir(root, appName string, t time.Time) (string, error) {
	if appName == "" {
		return "", ErrEmptyAppName
	}
	dir := filepath.Join(root, SessionDirName(appName, t))
	if err := os.MkdirAll(dir, _dirMode); err != nil {
		return "", fmt.Errorf("create session directory: %w", err)
	}
	return dir, nil
}

// PruneSessions keeps at most keep session directories of appName under root and
// deletes the oldest of the rest. The current directory is never deleted. A negative
// keep disables pruning. It returns the removed directories.
func PruneSessions(root, appName, current string, keep int) ([]string, error) {
	if keep < 0 {
		return nil, nil
	}
	if appName == "" {
		return nil, ErrEmptyAppName
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read log root: %w", err)
	}

	prefix := strings.ToLower(appName)
	var sessions []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(strings.ToLower(e.Name()), prefix) {
			sessions = append(sessions, e.Name())
		}
	}
	if len(sessions) <= keep {
		return nil, nil
	}
	sort.Strings(sessions)

	var (
		removed []string
		errs    []error
	)
	for _, name := range sessions[:len(sessions)-keep] {
		dir := filepath.Join(root, name)
		if strings.EqualFold(filepath.Clean(dir), filepath.Clean(current)) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", dir, err))
			continue
		}
		removed = append(removed, dir)
	}
	return removed, errors.Join(errs...)
}
