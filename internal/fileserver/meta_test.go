package fileserver

import (
	"io/fs"
	"testing"
	"time"

	"github.com/marmos91/aund/internal/protocol/econet"
	"github.com/stretchr/testify/assert"
)

func TestAccessString(t *testing.T) {
	assert.Equal(t, "WR/R", accessString(AccessUW|AccessUR|AccessOR))
	assert.Equal(t, "DLWR/WR", accessString(AccessD|AccessL|AccessUW|AccessUR|AccessOW|AccessOR))
	assert.Equal(t, "/", accessString(0))
}

func TestModeToAccess(t *testing.T) {
	assert.Equal(t, AccessUR|AccessUW|AccessOR, modeToAccess(0o644))
	assert.Equal(t, AccessD|AccessUR|AccessUW|AccessOR, modeToAccess(fs.ModeDir|0o755))
	assert.Equal(t, uint8(0), modeToAccess(0o000))
}

func TestAccessToMode(t *testing.T) {
	all := AccessUR | AccessUW | AccessOR

	assert.Equal(t, fs.FileMode(0o644), accessToMode(all, false))
	assert.Equal(t, fs.FileMode(0o664), accessToMode(all, true))
	assert.Equal(t, fs.FileMode(0o066), accessToMode(AccessOR|AccessOW, false))
	assert.Equal(t, fs.FileMode(0o006), accessToMode(AccessOR|AccessOW, true))

	for _, a := range []uint8{0, AccessUR, all, all | AccessOW} {
		assert.Equal(t, a, modeToAccess(accessToMode(a, true)), "access %02x", a)
	}
}

func TestDefaultMeta(t *testing.T) {
	mtime := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	m := defaultMeta(mtime, 0xFFB)
	stamp := econet.RISCOSStamp(mtime)

	assert.True(t, m.IsTyped())
	assert.Equal(t, 0xFFB, m.FileType())
	assert.Equal(t, uint32(stamp), m.Exec)
	assert.Equal(t, uint32(stamp>>32)&0xFF, m.Load&0xFF)
}
