package core

import "context"

// ObjectStore is the external store holding logo assets. Keys are opaque.
type ObjectStore interface {
	// Delete removes the object. A missing object is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public display URL for key.
	URL(key string) string
}
