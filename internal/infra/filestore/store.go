// Package filestore keeps photo bytes outside the database. Keys are opaque
// slash-separated paths such as "listings/12/3f0c....jpg".
package filestore

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by Get when a key has no stored content.
var ErrNotExist = errors.New("filestore: object does not exist")

type Store interface {
	Put(ctx context.Context, key string, data io.Reader, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
