package storage

import "errors"

var ErrClosed = errors.New("store is closed")

// Store is the key-value backend supplied by the host. Get returns a nil
// value and a nil error for a missing key.
type Store interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// ForEach visits every record whose key starts with prefix. Order is
	// unspecified. Returning an error from fn stops the walk.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	// Sync flushes written records to durable media.
	Sync() error
	Close() error
}
