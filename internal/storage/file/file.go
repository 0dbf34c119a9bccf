// Package file implements storage.KV on top of a local state directory,
// one file per key.
package file

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"

	"github.com/veilmart/storefront/internal/storage"
)

var _ storage.KV = (*Store)(nil)

// Store persists each key as a file under a state directory. Writes go to a
// temp file first and are renamed into place, so readers never observe a
// partially written value.
type Store struct {
	dir string
}

// New creates the state directory if needed and returns a Store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create state dir %s", dir)
	}
	return &Store{dir: dir}, nil
}

// Get reads the value for key. It returns storage.ErrNotFound when the key
// has never been written.
func (s *Store) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrapf(err, "read key %s", key)
	}
	return data, nil
}

// Set writes the value for key atomically.
func (s *Store) Set(key string, value []byte) error {
	target := s.path(key)

	tmp, err := os.CreateTemp(s.dir, "."+sanitize(key)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "write key %s", key)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "close temp file for key %s", key)
	}

	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "replace key %s", key)
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, sanitize(key))
}

// sanitize maps a key to a safe file name. Keys are internal identifiers, not
// user input, so a simple separator replacement is enough.
func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		default:
			return r
		}
	}, key)
}
