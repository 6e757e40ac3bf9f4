package log

import (
	"bytes"
	"sync/atomic"
	"time"

	"github.com/linchenxuan/logmgr/utils/pool"
)

const linePoolName = "log_line"

// utf8BOM is written at the head of every new log file unless disabled.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Formatter renders records as
//
//	[YYYY.MM.DD-HH.MM.SS:mmm][seq]Category:Verbosity: message<terminator>
//
// seq is a per-formatter line counter modulo 1000, right-aligned to three columns.
// The category is only shown when the caller asks for it, and the verbosity is omitted
// for Log records.
type Formatter struct {
	terminator string
	seq        atomic.Uint64
	lines      *pool.Pool
	now        func() time.Time
}

// NewFormatter creates a formatter ending each line with terminator.
// Line buffer allocations are reported to observer.
func NewFormatter(terminator string, observer Observer) *Formatter {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Formatter{
		terminator: terminator,
		lines: pool.NewPool(linePoolName, func() any {
			return bytes.NewBuffer(make([]byte, 0, 256))
		}, observer.Allocated),
		now: time.Now,
	}
}

// Format renders one line into a pooled buffer. Hand it back with Release.
func (f *Formatter) Format(category string, v Verbosity, msg string, showCategory bool) *bytes.Buffer {
	buf := f.lines.Get().(*bytes.Buffer)
	buf.Reset()

	appendTimestamp(buf, f.now())
	appendSeq(buf, f.seq.Add(1)-1)

	if showCategory && category != "" {
		buf.WriteString(category)
		if v != Log {
			buf.WriteByte(':')
			buf.WriteString(v.String())
		}
		buf.WriteString(": ")
	} else if v != Log {
		buf.WriteString(v.String())
		buf.WriteString(": ")
	}

	buf.WriteString(msg)
	buf.WriteString(f.terminator)
	return buf
}

// Release returns a buffer obtained from Format to the pool.
func (f *Formatter) Release(buf *bytes.Buffer) {
	if buf.Cap() > 64<<10 {
		return
	}
	f.lines.Put(buf)
}

// appendTimestamp writes "[YYYY.MM.DD-HH.MM.SS:mmm]" without allocating.
func appendTimestamp(buf *bytes.Buffer, t time.Time) {
	const tsLen = 25
	var ts [tsLen]byte

	y, mo, d := t.Date()
	h, m, s := t.Clock()
	ms := t.Nanosecond() / int(time.Millisecond)

	ts[0] = '['
	ts[1] = byte('0' + y/1000%10)
	ts[2] = byte('0' + (y/100)%10)
	ts[3] = byte('0' + (y/10)%10)
	ts[4] = byte('0' + y%10)
	ts[5] = '.'
	ts[6] = byte('0' + mo/10)
	ts[7] = byte('0' + mo%10)
	ts[8] = '.'
	ts[9] = byte('0' + d/10)
	ts[10] = byte('0' + d%10)
	ts[11] = '-'
	ts[12] = byte('0' + h/10)
	ts[13] = byte('0' + h%10)
	ts[14] = '.'
	ts[15] = byte('0' + m/10)
	ts[16] = byte('0' + m%10)
	ts[17] = '.'
	ts[18] = byte('0' + s/10)
	ts[19] = byte('0' + s%10)
	ts[20] = ':'
	ts[21] = byte('0' + ms/100)
	ts[22] = byte('0' + (ms/10)%10)
	ts[23] = byte('0' + ms%10)
	ts[24] = ']'

	buf.Write(ts[:])
}

// appendSeq writes "[nnn]" with n = seq % 1000, space padded on the left.
func appendSeq(buf *bytes.Buffer, seq uint64) {
	n := seq % 1000
	var b [5]byte
	b[0] = '['
	b[1] = ' '
	b[2] = ' '
	b[3] = byte('0' + n%10)
	b[4] = ']'
	if n >= 10 {
		b[2] = byte('0' + (n/10)%10)
	}
	if n >= 100 {
		b[1] = byte('0' + n/100)
	}
	buf.Write(b[:])
}

// markerTimestamp is the wall-clock form used in file open and close markers.
func markerTimestamp(t time.Time) string {
	return t.Format("01/02/06 15:04:05")
}
