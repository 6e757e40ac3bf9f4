package log

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedFormatter(terminator string) *Formatter {
	f := NewFormatter(terminator, nil)
	ts := time.Date(2024, 3, 7, 9, 5, 4, 7*int(time.Millisecond), time.Local)
	f.now = func() time.Time { return ts }
	return f
}

func TestFormatterLayouts(t *testing.T) {
	tests := []struct {
		name         string
		category     string
		verbosity    Verbosity
		showCategory bool
		want         string
	}{
		{"CategoryWarning", "Net", Warning, true, "Net:Warning: hello"},
		{"CategoryLog", "Net", Log, true, "Net: hello"},
		{"NoCategoryError", "Net", Error, false, "Error: hello"},
		{"NoCategoryLog", "Net", Log, false, "hello"},
		{"EmptyCategoryShown", "", Display, true, "Display: hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fixedFormatter("\r\n")
			buf := f.Format(tt.category, tt.verbosity, "hello", tt.showCategory)
			defer f.Release(buf)
			assert.Equal(t, "[2024.03.07-09.05.04:007][  0]"+tt.want+"\r\n", buf.String())
		})
	}
}

func TestFormatterSequenceWraps(t *testing.T) {
	f := fixedFormatter("\n")
	f.seq.Store(998)

	var got []string
	for i := 0; i < 3; i++ {
		buf := f.Format("", Log, "x", false)
		got = append(got, buf.String()[25:30])
		f.Release(buf)
	}
	assert.Equal(t, []string{"[998]", "[999]", "[  0]"}, got)

	f.seq.Store(42)
	buf := f.Format("", Log, "x", false)
	assert.Equal(t, "[ 42]", buf.String()[25:30])
}

func TestFormatterReportsPoolMisses(t *testing.T) {
	obs := &recordingObserver{}
	f := NewFormatter("\n", obs)

	buf := f.Format("", Log, "x", false)
	f.Release(buf)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.GreaterOrEqual(t, obs.allocated, 1)
}
