package carcomms

import "errors"

// ErrNotFound is returned by a Store when no blob exists under the key.
var ErrNotFound = errors.New("not found")

// Store persists opaque blobs by namespace and key.
type Store interface {
	Get(namespace, key string) ([]byte, error)
	Put(namespace, key string, b []byte) error
}
