// Package storage defines the narrow key-value interface the cart persists
// through. Implementations only need Get and Set; the cart treats every
// storage failure as non-fatal and keeps its in-memory state authoritative.
package storage

import "github.com/go-faster/errors"

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// KV is a durable key-value store. Values are opaque byte slices.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}
