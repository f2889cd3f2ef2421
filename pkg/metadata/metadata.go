// Package metadata stores the Acorn load and execute addresses that a Unix
// filesystem has no attribute for.
//
// Two stores exist. The symlink store keeps one symlink per object in a
// hidden ".Acorn" directory beside it, readable by other aund instances and
// by hand. The badger store keeps the same data in an embedded key-value
// database, for hosts where the served tree must stay free of extra files.
package metadata

import (
	"context"
	"encoding/binary"
	"errors"
)

// ErrNotFound is returned by Get when no metadata is recorded for a path.
var ErrNotFound = errors.New("metadata: not found")

// Meta is the pair of 32-bit addresses RISC OS keeps for every object. For
// typed files, Load carries 0xFFF in the top bits, the file type and the
// high byte of the timestamp. Exec carries the low 32 bits of the timestamp.
type Meta struct {
	Load uint32
	Exec uint32
}

// Bytes returns the wire form: four load bytes then four exec bytes, both
// little-endian.
func (m Meta) Bytes() [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint32(b[0:4], m.Load)
	binary.LittleEndian.PutUint32(b[4:8], m.Exec)
	return b
}

// FromBytes decodes the wire form. b must hold at least 8 bytes.
func FromBytes(b []byte) Meta {
	return Meta{
		Load: binary.LittleEndian.Uint32(b[0:4]),
		Exec: binary.LittleEndian.Uint32(b[4:8]),
	}
}

// IsTyped reports whether the load address encodes a file type and date.
func (m Meta) IsTyped() bool {
	return m.Load&0xfff00000 == 0xfff00000
}

// FileType returns the 12-bit file type of a typed object.
func (m Meta) FileType() int {
	return int(m.Load>>8) & 0xfff
}

// Store persists Meta by host path. Paths are absolute.
type Store interface {
	// Get returns the recorded metadata or ErrNotFound.
	Get(ctx context.Context, path string) (Meta, error)

	// Set records metadata for path, replacing any previous value.
	Set(ctx context.Context, path string, m Meta) error

	// Delete forgets path. Forgetting an unknown path is not an error.
	Delete(ctx context.Context, path string) error

	// Rename moves recorded metadata from one path to another.
	Rename(ctx context.Context, from, to string) error

	// RemoveDir drops whatever the store keeps inside dir so that the
	// directory itself can be removed.
	RemoveDir(ctx context.Context, dir string) error

	// Healthcheck reports whether the store can serve requests.
	Healthcheck(ctx context.Context) error

	// Close releases the store.
	Close() error
}
