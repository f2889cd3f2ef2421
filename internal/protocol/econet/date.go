package econet

import "time"

// riscosEpochOffset is the number of seconds between 1900-01-01 and
// 1970-01-01 as RISC OS counts them (70 years of 365 days plus 17 leap days).
const riscosEpochOffset = 31536000*70 + 86400*17

// RISCOSStamp converts t to a RISC OS time stamp: centiseconds since 1900.
func RISCOSStamp(t time.Time) uint64 {
	return uint64(t.Unix()+riscosEpochOffset) * 100
}

// FSDate encodes t (in local time) as the two-byte file-server date.
//
// The original format ran out of year bits in 1997; the high nibble of the
// year offset is carried in the top bits of the day byte.
func FSDate(t time.Time) [2]byte {
	t = t.Local()
	year81 := t.Year() - 1981
	if year81 < 0 {
		return [2]byte{1, 1}
	}
	day := byte(t.Day()) | byte((year81&0xf0)<<1)
	yearMonth := byte(int(t.Month())) | byte(year81<<4)
	return [2]byte{day, yearMonth}
}

// ParseFSDate decodes a two-byte file-server date into a local midnight.
func ParseFSDate(d [2]byte) time.Time {
	day := int(d[0] & 0x1f)
	month := int(d[1] & 0x0f)
	year81 := int(d[1]>>4) | int(d[0]&0xe0)>>1
	if day == 0 {
		day = 1
	}
	if month == 0 {
		month = 1
	}
	return time.Date(1981+year81, time.Month(month), day, 0, 0, 0, 0, time.Local)
}
