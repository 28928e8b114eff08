package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads a named object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader downloads named objects from blob storage. Get returns
// ErrNotFound (wrapped) when the object does not exist.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// BlobInfo describes one stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Archiver writes a settlement report for a finalized market to blob
// storage and returns the report's object key.
type Archiver interface {
	ArchiveMarket(ctx context.Context, marketID uint64) (string, error)
}
