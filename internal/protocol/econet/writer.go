package econet

import (
	"strings"
	"time"
)

// Writer provides sequential writing of little-endian Econet wire data.
type Writer struct {
	buf []byte
}

// NewWriter creates a new Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{
		buf: make([]byte, 0, capacity),
	}
}

// WriteUint8 appends a single byte.
func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteVal appends v as an n-byte little-endian field, saturating to the
// largest value the field can hold.
func (w *Writer) WriteVal(v uint64, n int) {
	var b [8]byte
	PutVal(b[:n], v)
	w.buf = append(w.buf, b[:n]...)
}

// WriteUint16 appends a little-endian uint16.
func (w *Writer) WriteUint16(v uint16) {
	w.WriteVal(uint64(v), 2)
}

// WriteUint32 appends a little-endian uint32.
func (w *Writer) WriteUint32(v uint32) {
	w.WriteVal(uint64(v), 4)
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(data []byte) {
	w.buf = append(w.buf, data...)
}

// WriteZeros appends n zero bytes.
func (w *Writer) WriteZeros(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

// WritePadded appends s truncated or space padded to exactly n bytes.
func (w *Writer) WritePadded(s string, n int) {
	w.buf = append(w.buf, Padded(s, n)...)
}

// WriteString appends s followed by a CR.
func (w *Writer) WriteString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, CR)
}

// WriteDate appends the two-byte file-server date for t.
func (w *Writer) WriteDate(t time.Time) {
	d := FSDate(t)
	w.buf = append(w.buf, d[:]...)
}

// Bytes returns the accumulated bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current length of the buffer.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Padded returns s truncated or padded with spaces to exactly n bytes.
func Padded(s string, n int) []byte {
	if len(s) > n {
		s = s[:n]
	}
	return []byte(s + strings.Repeat(" ", n-len(s)))
}
