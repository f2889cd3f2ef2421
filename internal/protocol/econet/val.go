package econet

// Val decodes a little-endian unsigned value of len(b) bytes.
func Val(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// MaxVal returns the largest value an n-byte field can hold.
func MaxVal(n int) uint64 {
	if n >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*uint(n)) - 1
}

// PutVal encodes v little-endian into b, saturating to MaxVal(len(b)).
func PutVal(b []byte, v uint64) {
	if max := MaxVal(len(b)); v > max {
		v = max
	}
	for i := range b {
		b[i] = byte(v)
		v >>= 8
	}
}
