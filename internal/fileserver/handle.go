package fileserver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
)

// MaxHandles is the ceiling on a session's handle table, slot 0 included.
const MaxHandles = 256

// initialHandles is the size of a fresh table: the null slot plus room for
// the three standing directories.
const initialHandles = 4

// HandleKind says what a handle refers to.
type HandleKind uint8

const (
	KindFile HandleKind = iota + 1
	KindDir
)

func (k HandleKind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// Handle is one slot of a session's handle table.
type Handle struct {
	// Path is the object's path relative to the server root, "." for the
	// root itself.
	Path string
	Kind HandleKind

	file *os.File

	// sequence is the flag bit of the last sequenced request, or -1 before
	// the first one.
	sequence int

	// GETBYTE and bulk transfer state kept for answering retransmissions.
	lastByte  uint8
	lastFlag  uint8
	lastStart int64
}

// IsDir reports whether the handle refers to a directory.
func (h *Handle) IsDir() bool { return h.Kind == KindDir }

// duplicate reports whether flag repeats the previous sequenced request
// and records it as the latest otherwise.
func (h *Handle) duplicate(flag uint8) bool {
	seq := int(flag & 1)
	if seq == h.sequence {
		return true
	}
	h.sequence = seq
	return false
}

func (h *Handle) close() error {
	if h.file == nil {
		return nil
	}
	err := h.file.Close()
	h.file = nil
	return err
}

// allocHandle returns the lowest free slot, growing the table one slot at a
// time up to MaxHandles. It returns 0 when the table is full.
func (s *Session) allocHandle() uint8 {
	for i := 1; i < len(s.handles); i++ {
		if s.handles[i] == nil {
			return uint8(i)
		}
	}
	if len(s.handles) >= MaxHandles {
		return 0
	}
	s.handles = append(s.handles, nil)
	return uint8(len(s.handles) - 1)
}

// openHandle opens rel (relative to root) and installs it in a new slot.
// Directories are recorded without an open descriptor. Files are opened
// read-only or read-write and created unless mustExist is set.
func (s *Session) openHandle(root, rel string, mustExist, readOnly bool) (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.allocHandle()
	if id == 0 {
		return 0, ErrTooManyOpen
	}

	host := hostPath(root, rel)
	h := &Handle{Path: rel, Kind: KindFile, sequence: -1}

	st, err := os.Stat(host)
	switch {
	case err == nil && st.IsDir():
		h.Kind = KindDir
	case err == nil && !st.Mode().IsRegular():
		return 0, fmt.Errorf("open %s: %w", host, syscall.ENOENT)
	case err != nil && (mustExist || !errors.Is(err, fs.ErrNotExist)):
		return 0, err
	default:
		flags := os.O_RDWR
		if readOnly {
			flags = os.O_RDONLY
		}
		if !mustExist {
			flags |= os.O_CREATE
		}
		f, err := os.OpenFile(host, flags, 0o666)
		if err != nil {
			return 0, err
		}
		h.file = f
	}

	s.handles[id] = h
	return id, nil
}

// closeHandle releases slot id. Closing slot 0 or a free slot is a no-op.
func (s *Session) closeHandle(id uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(id) >= len(s.handles) || id == 0 {
		return nil
	}
	h := s.handles[id]
	if h == nil {
		return nil
	}
	s.handles[id] = nil
	return h.close()
}

// Handle returns the object behind id, or nil if id is not open.
func (s *Session) Handle(id uint8) *Handle {
	if s == nil || id == 0 || int(id) >= len(s.handles) {
		return nil
	}
	return s.handles[id]
}

// checkHandle returns id if it names an open slot and 0 otherwise.
func (s *Session) checkHandle(id uint8) uint8 {
	if s.Handle(id) == nil {
		return 0
	}
	return id
}

// fileHandle returns the open file behind id or ErrChannel.
func (s *Session) fileHandle(id uint8) (*Handle, error) {
	h := s.Handle(id)
	if h == nil || h.file == nil {
		return nil, ErrChannel
	}
	return h, nil
}

// closeAll closes every handle, directories included.
func (s *Session) closeAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var first error
	for i, h := range s.handles {
		if h == nil {
			continue
		}
		if err := h.close(); err != nil && first == nil {
			first = err
		}
		s.handles[i] = nil
	}
	return first
}

// OpenHandles counts the occupied slots.
func (s *Session) OpenHandles() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, h := range s.handles {
		if h != nil {
			n++
		}
	}
	return n
}
