package fileserver

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// maxLeafLen is the longest name an Acorn client can type for a
// case-insensitive or wildcard match.
const maxLeafLen = 10

// hostPath joins a root-relative path onto root.
func hostPath(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

// pathContext is what a client path is resolved against: the server root
// and the session's standing directories, each root-relative.
type pathContext struct {
	root string
	urd  string
	csd  string
	lib  string
}

// resolve converts an Acorn path into a path relative to the server root.
//
// The steps run in a fixed order: skip a ":disc." prefix, pick the base from
// a leading $, &, @ or % selector (csd otherwise), swap "." and "/" while
// dot-stuffing components that would start with a dot, strip "^" against
// the components before it, then match every component against the
// directory holding it.
func (pc pathContext) resolve(acorn string) (string, error) {
	p := acorn
	if strings.HasPrefix(p, ":") {
		p = p[1:]
		if i := strings.IndexByte(p, '.'); i >= 0 {
			p = p[i+1:]
		} else {
			p = ""
		}
	}

	base := pc.csd
	if p != "" && strings.IndexByte("$&@%", p[0]) >= 0 && (len(p) == 1 || p[1] == '.') {
		switch p[0] {
		case '$':
			base = "."
		case '&':
			base = pc.urd
		case '@':
			base = pc.csd
		case '%':
			base = pc.lib
		}
		p = p[1:]
		if p != "" {
			p = p[1:]
		}
	}

	var parts []string
	if base != "" && base != "." {
		parts = strings.Split(base, "/")
	}
	for _, c := range strings.Split(transSimple(p), "/") {
		if c != "" {
			parts = append(parts, c)
		}
	}
	parts = unhat(parts)
	if len(parts) == 0 {
		return ".", nil
	}

	resolved := make([]string, 0, len(parts))
	for _, c := range parts {
		if c == ".." {
			return "", ErrBadName
		}
		dir := "."
		if len(resolved) > 0 {
			dir = path.Join(resolved...)
		}
		resolved = append(resolved, matchLeaf(hostPath(pc.root, dir), c))
	}
	return path.Join(resolved...), nil
}

// transSimple swaps the Acorn and Unix separators. A component starting
// with "/" (a Unix dot) gets two more dots in front so that ".", ".." and
// ".Acorn" can never be named by a client.
func transSimple(p string) string {
	if p == "" {
		return ""
	}
	comps := strings.Split(p, ".")
	for i, c := range comps {
		stuffed := strings.HasPrefix(c, "/")
		c = strings.ReplaceAll(c, "/", ".")
		if stuffed {
			c = ".." + c
		}
		comps[i] = c
	}
	return strings.Join(comps, "/")
}

// unhat drops every "^" component together with the component before it.
// A "^" with nothing before it is ignored: the root has no parent.
func unhat(parts []string) []string {
	out := parts[:0]
	for _, c := range parts {
		if c == "^" {
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// matchLeaf returns the name in dir that leaf refers to. An existing name
// is returned unchanged. Otherwise the first entry in name order that
// matches case-insensitively, as a wildcard, or with a ",xxx" type suffix
// wins. With no match leaf is returned as is and the caller's filesystem
// operation reports the error.
func matchLeaf(dir, leaf string) string {
	if _, err := os.Lstat(filepath.Join(dir, leaf)); !errors.Is(err, fs.ErrNotExist) {
		return leaf
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return leaf
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	pattern := unstuff(leaf)
	for _, name := range names {
		candidate, ok := visibleName(name)
		if !ok {
			continue
		}
		candidate = stripType(candidate)
		if len(candidate) <= maxLeafLen && wcmatch(pattern, candidate) {
			return name
		}
	}
	return leaf
}

// visibleName un-dot-stuffs a host name. Hidden host names report false.
func visibleName(name string) (string, bool) {
	if !strings.HasPrefix(name, ".") {
		return name, true
	}
	if strings.HasPrefix(name, "...") {
		return name[2:], true
	}
	return "", false
}

func unstuff(name string) string {
	if strings.HasPrefix(name, "...") {
		return name[2:]
	}
	return name
}

// stripType removes a ",xxx" file type suffix.
func stripType(name string) string {
	if n := len(name); n >= 4 && name[n-4] == ',' {
		return name[:n-4]
	}
	return name
}

// acornName converts a host leaf name to the form shown to clients.
func acornName(name string) string {
	name = unstuff(name)
	name = strings.ReplaceAll(name, ".", "/")
	return stripType(name)
}

// acornLeaf returns the client-visible leaf of a root-relative path, "$"
// for the root.
func acornLeaf(rel string) string {
	if rel == "" || rel == "." {
		return "$"
	}
	return acornName(path.Base(rel))
}
