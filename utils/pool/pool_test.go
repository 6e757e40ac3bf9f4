package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolReportsMisses(t *testing.T) {
	var misses []string
	p := NewPool("line", func() any { return new(bytes.Buffer) }, func(name string) {
		misses = append(misses, name)
	})

	buf, ok := p.Get().(*bytes.Buffer)
	require.True(t, ok)
	assert.Equal(t, []string{"line"}, misses)

	buf.WriteString("x")
	p.Put(buf)
	assert.Equal(t, "line", p.Name)
}

func TestPoolWithoutCallback(t *testing.T) {
	p := NewPool("plain", func() any { return 7 }, nil)
	assert.Equal(t, 7, p.Get())
}
