package badger

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/aund/pkg/metadata"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Get(ctx, "/srv/a")
	assert.ErrorIs(t, err, metadata.ErrNotFound)

	m := metadata.Meta{Load: 0xfffffd11, Exec: 0x22334455}
	require.NoError(t, s.Set(ctx, "/srv/a", m))
	got, err := s.Get(ctx, "/srv/a")
	require.NoError(t, err)
	assert.Equal(t, m, got)

	require.NoError(t, s.Delete(ctx, "/srv/a"))
	_, err = s.Get(ctx, "/srv/a")
	assert.ErrorIs(t, err, metadata.ErrNotFound)
}

func TestRenameDirectoryMovesChildren(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Set(ctx, "/srv/dir", metadata.Meta{Load: 1}))
	require.NoError(t, s.Set(ctx, "/srv/dir/f", metadata.Meta{Load: 2}))
	require.NoError(t, s.Set(ctx, "/srv/dirty", metadata.Meta{Load: 3}))

	require.NoError(t, s.Rename(ctx, "/srv/dir", "/srv/new"))

	got, err := s.Get(ctx, "/srv/new")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got.Load)
	got, err = s.Get(ctx, "/srv/new/f")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got.Load)

	_, err = s.Get(ctx, "/srv/dir/f")
	assert.ErrorIs(t, err, metadata.ErrNotFound)

	// A sibling sharing the name prefix is untouched.
	got, err = s.Get(ctx, "/srv/dirty")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), got.Load)
}

func TestRemoveDir(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Set(ctx, "/srv/d/x", metadata.Meta{Load: 1}))
	require.NoError(t, s.RemoveDir(ctx, "/srv/d"))
	_, err := s.Get(ctx, "/srv/d/x")
	assert.ErrorIs(t, err, metadata.ErrNotFound)
	assert.NoError(t, s.Healthcheck(ctx))
}

func TestInMemory(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(context.Background(), "/x", metadata.Meta{Exec: 9}))
	got, err := s.Get(context.Background(), "/x")
	require.NoError(t, err)
	assert.Equal(t, uint32(9), got.Exec)
}

func TestRemoveDirKeepsLiveEntries(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "File")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	m := metadata.Meta{Load: 0xfffffa00, Exec: 0x12345678}
	require.NoError(t, s.Set(ctx, file, m))
	require.NoError(t, s.Set(ctx, filepath.Join(dir, "Gone"), metadata.Meta{Load: 1}))

	assert.ErrorIs(t, s.RemoveDir(ctx, dir), syscall.ENOTEMPTY)

	got, err := s.Get(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	_, err = s.Get(ctx, filepath.Join(dir, "Gone"))
	assert.NoError(t, err, "a refused RemoveDir changes nothing")
}
