// Package media manages athlete media assets: uploads into an S3-compatible
// object store and best-effort cleanup when athletes or items are deleted.
package media

import (
	"context"
	"fmt"
	"io"
)

// Storage is the object store contract for media files.
type Storage interface {
	// Save stores the file at the given key.
	Save(ctx context.Context, key string, data io.Reader, contentType string) error

	// Delete removes the file. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for a stored key.
	URL(key string) string

	// KeyFromURL inverts URL. Returns empty when the URL is not ours.
	KeyFromURL(url string) string
}

// OperationError reports a failed storage operation against the media
// provider.
type OperationError struct {
	Op  string
	Key string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("media %s failed for %s: %v", e.Op, e.Key, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
