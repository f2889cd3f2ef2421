package fileserver

import (
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultFileType is the RISC OS type of untyped files (Data).
const DefaultFileType = 0xFFD

// TypeRule assigns a RISC OS file type to host files. A rule applies when
// every condition it sets holds: Name is a shell glob matched
// case-insensitively against the host leaf name, and PermMask/PermValue
// test the permission bits (mode & PermMask == PermValue).
type TypeRule struct {
	Name      string
	PermMask  fs.FileMode
	PermValue fs.FileMode
	Type      int
}

func (r TypeRule) matches(name string, mode fs.FileMode) bool {
	if r.Name != "" {
		ok, err := filepath.Match(strings.ToLower(r.Name), strings.ToLower(name))
		if err != nil || !ok {
			return false
		}
	}
	if r.PermMask != 0 && mode.Perm()&r.PermMask != r.PermValue {
		return false
	}
	return true
}

// Typemap guesses file types for files without recorded metadata.
type Typemap struct {
	Rules   []TypeRule
	Default int
}

// Guess returns the type of a host file: an explicit ",xxx" suffix first,
// then the first matching rule, then the default.
func (t *Typemap) Guess(name string, mode fs.FileMode) int {
	if n := len(name); n >= 4 && name[n-4] == ',' {
		if v, err := strconv.ParseUint(name[n-3:], 16, 12); err == nil {
			return int(v)
		}
	}
	if t == nil {
		return DefaultFileType
	}
	for _, r := range t.Rules {
		if r.matches(name, mode) {
			return r.Type & 0xFFF
		}
	}
	if t.Default != 0 {
		return t.Default & 0xFFF
	}
	return DefaultFileType
}
