// Package badger stores Acorn metadata in an embedded BadgerDB database
// instead of beside the files.
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"syscall"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/pkg/metadata"
)

// ============================================================================
// Key Namespace
// ============================================================================
//
// Key Format          Value
// =============================================
// m:<absolute path>   8 bytes: load LE, exec LE

const prefixMeta = "m:"

func keyMeta(path string) []byte {
	return []byte(prefixMeta + path)
}

// keyChildren is the prefix shared by everything below dir.
func keyChildren(dir string) []byte {
	return []byte(prefixMeta + dir + "/")
}

// Store is a metadata.Store backed by BadgerDB.
type Store struct {
	db *badgerdb.DB
}

// Open opens (creating if needed) the database in dir.
func Open(dir string) (*Store, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger metadata store %s: %w", dir, err)
	}
	logger.Info("Metadata store opened", "type", "badger", "path", dir)
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that keeps nothing on disk.
func OpenInMemory() (*Store, error) {
	db, err := badgerdb.Open(badgerdb.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger metadata store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, path string) (metadata.Meta, error) {
	if err := ctx.Err(); err != nil {
		return metadata.Meta{}, err
	}

	var m metadata.Meta
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyMeta(path))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return metadata.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt metadata for %s: %d bytes", path, len(val))
			}
			m = metadata.FromBytes(val)
			return nil
		})
	})
	return m, err
}

func (s *Store) Set(ctx context.Context, path string, m metadata.Meta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := m.Bytes()
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(keyMeta(path), b[:])
	})
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(keyMeta(path))
	})
}

// Rename moves the entry for from, and for a directory every entry below
// it, to the new path.
func (s *Store) Rename(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyMeta(from))
		switch {
		case err == nil:
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := txn.Set(keyMeta(to), val); err != nil {
				return err
			}
			if err := txn.Delete(keyMeta(from)); err != nil {
				return err
			}
		case !errors.Is(err, badgerdb.ErrKeyNotFound):
			return err
		}

		oldPrefix := keyChildren(from)
		newPrefix := keyChildren(to)
		moves, err := collect(txn, oldPrefix)
		if err != nil {
			return err
		}
		for _, kv := range moves {
			newKey := append(append([]byte{}, newPrefix...), bytes.TrimPrefix(kv.key, oldPrefix)...)
			if err := txn.Set(newKey, kv.val); err != nil {
				return err
			}
			if err := txn.Delete(kv.key); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveDir drops stale entries recorded below dir. An entry for an
// object that still exists fails the call with ENOTEMPTY and nothing is
// deleted.
func (s *Store) RemoveDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		stale, err := collect(txn, keyChildren(dir))
		if err != nil {
			return err
		}
		for _, kv := range stale {
			if _, err := os.Lstat(strings.TrimPrefix(string(kv.key), prefixMeta)); err == nil {
				return &fs.PathError{Op: "rmdir", Path: dir, Err: syscall.ENOTEMPTY}
			}
		}
		for _, kv := range stale {
			if err := txn.Delete(kv.key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Healthcheck verifies the database still serves transactions.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.View(func(txn *badgerdb.Txn) error { return nil }); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type kv struct {
	key []byte
	val []byte
}

func collect(txn *badgerdb.Txn, prefix []byte) ([]kv, error) {
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []kv
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		out = append(out, kv{key: item.KeyCopy(nil), val: val})
	}
	return out, nil
}

var _ metadata.Store = (*Store)(nil)
