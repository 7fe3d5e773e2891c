// Package storage keeps raw source downloads on disk so a failed fetch can
// fall back to the last good copy.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a collection holds no stored file.
var ErrNotFound = errors.New("file not found")

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // Internal storage path
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the operations the source cache needs. Files are grouped
// by collection name; the newest file of a collection is its current copy.
type Storage interface {
	// Save stores a file under collection and returns its metadata
	Save(ctx context.Context, collection string, contentType string, r io.Reader) (*FileInfo, error)

	// Latest opens the newest file of collection
	Latest(ctx context.Context, collection string) (io.ReadCloser, *FileInfo, error)

	// List returns the files of collection, newest first
	List(ctx context.Context, collection string) ([]*FileInfo, error)

	// Prune deletes all but the newest keep files of collection
	Prune(ctx context.Context, collection string, keep int) error
}

// Config holds storage configuration
type Config struct {
	LocalPath string
	Keep      int
}

// New creates the local filesystem storage described by cfg.
func New(cfg *Config) (Storage, error) {
	return NewLocalStorage(cfg.LocalPath)
}
