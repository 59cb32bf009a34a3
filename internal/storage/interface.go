// Package storage is the media storage boundary for evidence and receipt
// files. The orchestration core only ever persists the returned URL.
package storage

import (
	"context"
	"io"
)

type MediaStorage interface {
	// Store writes the file under key and returns its public URL.
	Store(ctx context.Context, key string, contentType string, content io.Reader) (string, error)

	// URL returns the download URL for a previously stored key.
	URL(key string) string

	// Read opens a stored file (used by the mock download handler).
	Read(key string) (io.ReadCloser, error)

	// Delete removes a stored file.
	Delete(ctx context.Context, key string) error
}
