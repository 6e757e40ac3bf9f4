package log

import (
	"fmt"
	"strconv"
	"strings"
)

// Verbosity defines the ordered urgency of a log record.
// Lower numeric values are more urgent: Fatal < Error < Warning < Display < Log < Verbose.
// A record triggers an immediate flush when its verbosity is at or below a filter's FlushOn threshold.
type Verbosity int8

const (
	// NoLogging disables a record entirely. Records with this verbosity are never written.
	NoLogging Verbosity = iota

	// Fatal marks unrecoverable failures that precede process termination.
	Fatal

	// Error marks failed operations that the process survives.
	Error

	// Warning marks suspicious but tolerated conditions.
	Warning

	// Display marks messages intended for an operator console.
	Display

	// Log is the default verbosity for routine messages.
	Log

	// Verbose marks detailed diagnostic output.
	Verbose

	// VeryVerbose marks tracing output.
	VeryVerbose

	// All is the least urgent verbosity; as a FlushOn threshold it flushes every record.
	All = VeryVerbose
)

// String returns the human-readable name used in formatted log lines.
func (v Verbosity) String() string {
	switch v {
	case NoLogging:
		return "NoLogging"
	case Fatal:
		return "Fatal"
	case Error:
		return "Error"
	case Warning:
		return "Warning"
	case Display:
		return "Display"
	case Log:
		return "Log"
	case Verbose:
		return "Verbose"
	case VeryVerbose:
		return "VeryVerbose"
	default:
		return "Unknown"
	}
}

// IsMoreUrgentOrEqual reports whether v is at least as urgent as threshold.
func (v Verbosity) IsMoreUrgentOrEqual(threshold Verbosity) bool {
	return v <= threshold
}

// ParseVerbosity converts a name or a numeric string into a Verbosity.
// Names are matched case-insensitively; "warn" and "all" are accepted aliases.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nologging", "none", "off":
		return NoLogging, nil
	case "fatal":
		return Fatal, nil
	case "error":
		return Error, nil
	case "warning", "warn":
		return Warning, nil
	case "display":
		return Display, nil
	case "log":
		return Log, nil
	case "verbose":
		return Verbose, nil
	case "veryverbose", "all":
		return VeryVerbose, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < int(NoLogging) || n > int(VeryVerbose) {
		return NoLogging, fmt.Errorf("invalid verbosity %q", s)
	}
	return Verbosity(n), nil
}
