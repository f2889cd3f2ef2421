package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetaBytes(t *testing.T) {
	m := Meta{Load: 0xfffffd12, Exec: 0x34567890}
	b := m.Bytes()
	assert.Equal(t, [8]byte{0x12, 0xfd, 0xff, 0xff, 0x90, 0x78, 0x56, 0x34}, b)
	assert.Equal(t, m, FromBytes(b[:]))
}

func TestMetaFileType(t *testing.T) {
	typed := Meta{Load: 0xfffffd12}
	assert.True(t, typed.IsTyped())
	assert.Equal(t, 0xffd, typed.FileType())

	untyped := Meta{Load: 0x00001900, Exec: 0x00008023}
	assert.False(t, untyped.IsTyped())
}
