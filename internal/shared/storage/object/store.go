package object

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidKey is returned for storage keys that escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// ObjectStore defines the contract for saving and retrieving uploaded files.
// Keys are slash-separated and stable for the lifetime of the object.
type ObjectStore interface {
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
