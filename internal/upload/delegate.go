// Package upload forwards binary assets to the external media host and
// returns stable references that content records embed.
package upload

import (
	"context"
	"errors"
)

var (
	// ErrUpload is returned when the remote host rejects or fails an upload.
	// The underlying cause is logged, never returned.
	ErrUpload = errors.New("file could not be uploaded")
	// ErrDelete is returned when a remote delete fails.
	ErrDelete = errors.New("file could not be deleted")
)

// Asset identifies an object stored on the media host.
type Asset struct {
	PublicID string
	URL      string
}

// Delegate is the boundary to the external media host. Callers apply their
// own deadline through ctx.
type Delegate interface {
	Upload(ctx context.Context, data []byte, folder string) (Asset, error)
	Delete(ctx context.Context, publicID string) error
}
