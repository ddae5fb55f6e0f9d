package object

import (
	"context"
	"io"
)

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	// Save stores the reader under the user's namespace and returns the
	// generated storage key, the byte count, and the sniffed content type.
	Save(ctx context.Context, userID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	// Open retrieves a stored object for reading.
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// SaveWithKey stores the reader at an exact storage key.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
}
