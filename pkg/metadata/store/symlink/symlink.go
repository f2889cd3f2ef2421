// Package symlink stores Acorn metadata as symlinks in a hidden ".Acorn"
// directory next to each object. The link target is the eight metadata
// bytes as space-separated hex: "ll ll ll ll ee ee ee ee".
package symlink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/marmos91/aund/pkg/metadata"
)

// DirName is the hidden directory holding the metadata links.
const DirName = ".Acorn"

// targetLen is the length of a well-formed link target.
const targetLen = 23

// Store is a metadata.Store backed by symlinks. It has no state of its own.
type Store struct{}

// New returns a symlink store.
func New() *Store {
	return &Store{}
}

// LinkPath returns where the metadata link for path lives.
func LinkPath(path string) string {
	return filepath.Join(filepath.Dir(path), DirName, filepath.Base(path))
}

func (s *Store) Get(ctx context.Context, path string) (metadata.Meta, error) {
	if err := ctx.Err(); err != nil {
		return metadata.Meta{}, err
	}

	target, err := os.Readlink(LinkPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.EINVAL) {
			return metadata.Meta{}, metadata.ErrNotFound
		}
		return metadata.Meta{}, err
	}
	m, ok := parseTarget(target)
	if !ok {
		return metadata.Meta{}, metadata.ErrNotFound
	}
	return m, nil
}

func (s *Store) Set(ctx context.Context, path string, m metadata.Meta) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(filepath.Dir(path), DirName)
	if err := os.Mkdir(dir, 0o777); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	link := filepath.Join(dir, filepath.Base(path))
	if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("replace %s: %w", link, err)
	}
	if err := os.Symlink(formatTarget(m), link); err != nil {
		return fmt.Errorf("write %s: %w", link, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(LinkPath(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) Rename(ctx context.Context, from, to string) error {
	m, err := s.Get(ctx, from)
	if errors.Is(err, metadata.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.Set(ctx, to, m); err != nil {
		return err
	}
	return s.Delete(ctx, from)
}

// RemoveDir deletes dir's own ".Acorn" directory, which would otherwise
// keep an apparently empty directory from being removed. Links whose
// object is gone are dropped. A link for an object that still exists
// fails the call with ENOTEMPTY and nothing is removed.
func (s *Store) RemoveDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	acorn := filepath.Join(dir, DirName)
	links, err := os.ReadDir(acorn)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, l := range links {
		if _, err := os.Lstat(filepath.Join(dir, l.Name())); err == nil {
			return &fs.PathError{Op: "rmdir", Path: acorn, Err: syscall.ENOTEMPTY}
		}
	}
	return os.RemoveAll(acorn)
}

func (s *Store) Healthcheck(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

func formatTarget(m metadata.Meta) string {
	b := m.Bytes()
	return fmt.Sprintf("%02x %02x %02x %02x %02x %02x %02x %02x",
		b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7])
}

func parseTarget(target string) (metadata.Meta, bool) {
	if len(target) != targetLen {
		return metadata.Meta{}, false
	}
	fields := strings.Fields(target)
	if len(fields) != 8 {
		return metadata.Meta{}, false
	}
	var b [8]byte
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return metadata.Meta{}, false
		}
		b[i] = byte(v)
	}
	return metadata.FromBytes(b[:]), true
}

var _ metadata.Store = (*Store)(nil)
