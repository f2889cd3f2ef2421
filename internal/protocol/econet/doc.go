// Package econet provides binary encoding and decoding utilities for the
// Econet file-server wire protocol as carried over AUN.
//
// The package uses the same error-accumulation pattern as bufio.Scanner:
// callers perform several reads or writes and check the error once at the
// end.
//
//	r := econet.NewReader(data)
//	handle := r.ReadUint8()
//	nbytes := r.ReadVal(3)
//	path := r.ReadString()
//	if r.Err() != nil {
//	    return r.Err()
//	}
//
// Multi-byte fields in file-server payloads are little-endian and of
// irregular width (1 to 4 bytes, 3-byte sizes being the most common).
// ReadVal and WriteVal handle these; values too large for a field saturate
// to the field maximum instead of wrapping.
//
// Strings on the wire are terminated by a carriage return (0x0D). Fixed
// width names (object titles, disc names) are space padded.
package econet
