package main

import (
	"fmt"
	"strings"

	"github.com/linchenxuan/logmgr/log"
)

type record struct {
	category  string
	verbosity log.Verbosity
	message   string
}

// parseRecord splits "category|verbosity|message". The message may itself contain '|'.
func parseRecord(line string) (record, error) {
	parts := strings.SplitN(line, "|", 3)
	if len(parts) < 3 {
		return record{verbosity: log.Log, message: line}, nil
	}

	v, err := log.ParseVerbosity(parts[1])
	if err != nil {
		return record{}, fmt.Errorf("record %q: %w", line, err)
	}
	return record{
		category:  strings.TrimSpace(parts[0]),
		verbosity: v,
		message:   parts[2],
	}, nil
}
