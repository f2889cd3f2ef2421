package fileserver

import "strings"

// wcmatch reports whether name matches the Acorn wildcard pattern. The
// match is case-insensitive, "?" matches any one character and "*" any run
// of characters. A pattern without "*" must match the whole name.
func wcmatch(pattern, name string) bool {
	frags := strings.Split(pattern, "*")
	if len(frags) == 1 {
		return len(name) == len(pattern) && fragEqual(pattern, name)
	}

	first := frags[0]
	if len(name) < len(first) || !fragEqual(first, name[:len(first)]) {
		return false
	}
	name = name[len(first):]

	for _, f := range frags[1 : len(frags)-1] {
		if f == "" {
			continue
		}
		i := fragIndex(name, f)
		if i < 0 {
			return false
		}
		name = name[i+len(f):]
	}

	last := frags[len(frags)-1]
	if len(name) < len(last) {
		return false
	}
	return fragEqual(last, name[len(name)-len(last):])
}

// fragEqual compares a wildcard fragment with an equal-length piece of name.
func fragEqual(frag, s string) bool {
	if len(frag) != len(s) {
		return false
	}
	for i := 0; i < len(frag); i++ {
		if frag[i] != '?' && upper(frag[i]) != upper(s[i]) {
			return false
		}
	}
	return true
}

// fragIndex finds the leftmost place frag matches in s.
func fragIndex(s, frag string) int {
	for i := 0; i+len(frag) <= len(s); i++ {
		if fragEqual(frag, s[i:i+len(frag)]) {
			return i
		}
	}
	return -1
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
