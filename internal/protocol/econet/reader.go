package econet

import (
	"errors"
	"fmt"
)

// ErrShortRead is returned when there are insufficient bytes to complete a read.
var ErrShortRead = errors.New("econet: short read")

// CR terminates strings on the wire.
const CR = 0x0d

// Reader provides sequential reading of little-endian Econet wire data with
// error accumulation. Once an error occurs, all subsequent reads become
// no-ops returning zero values.
type Reader struct {
	data []byte
	pos  int
	err  error
}

// NewReader creates a new Reader wrapping the given byte slice with position at 0.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// require checks that n bytes are available at the current position.
func (r *Reader) require(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.data) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortRead, n, r.pos, len(r.data)-r.pos)
		return false
	}
	return true
}

// ReadUint8 reads a single byte and advances the position by 1.
func (r *Reader) ReadUint8() uint8 {
	if !r.require(1) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

// ReadVal reads an n-byte little-endian unsigned value (1 <= n <= 8).
func (r *Reader) ReadVal(n int) uint64 {
	if !r.require(n) {
		return 0
	}
	v := Val(r.data[r.pos : r.pos+n])
	r.pos += n
	return v
}

// ReadUint32 reads a little-endian uint32 and advances the position by 4.
func (r *Reader) ReadUint32() uint32 {
	return uint32(r.ReadVal(4))
}

// ReadBytes reads n bytes and advances the position.
// The returned slice is a copy.
func (r *Reader) ReadBytes(n int) []byte {
	if !r.require(n) {
		return nil
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+n])
	r.pos += n
	return b
}

// ReadString reads a string terminated by CR, NUL or the end of the data.
// The terminator, if present, is consumed but not returned. A missing
// terminator is not an error: clients routinely omit it.
func (r *Reader) ReadString() string {
	if r.err != nil {
		return ""
	}
	start := r.pos
	for r.pos < len(r.data) {
		c := r.data[r.pos]
		if c == CR || c == 0 {
			s := string(r.data[start:r.pos])
			r.pos++
			return s
		}
		r.pos++
	}
	return string(r.data[start:r.pos])
}

// Rest returns all remaining bytes and moves the position to the end.
func (r *Reader) Rest() []byte {
	if r.err != nil {
		return nil
	}
	b := r.data[r.pos:]
	r.pos = len(r.data)
	return b
}

// Skip advances the position by n bytes without reading.
func (r *Reader) Skip(n int) {
	if !r.require(n) {
		return
	}
	r.pos += n
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	if r.pos >= len(r.data) {
		return 0
	}
	return len(r.data) - r.pos
}

// Position returns the current read offset.
func (r *Reader) Position() int {
	return r.pos
}

// Err returns the first error encountered, or nil.
func (r *Reader) Err() error {
	return r.err
}
