package domain

import (
	"context"
	"io"
)

// MediaStore persists uploaded files such as profile pictures.
type MediaStore interface {
	// Save stores the content under a name derived from filename and returns
	// the storage key.
	Save(ctx context.Context, filename, contentType string, r io.Reader) (string, error)

	// URL returns the public URL for a storage key.
	URL(key string) string
}
