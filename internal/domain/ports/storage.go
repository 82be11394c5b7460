package ports

import "io"

// BlobStore addresses payload bytes by key. Keys are slash-separated relative
// paths produced by the transfer engine.
type BlobStore interface {
	// OpenRange returns a reader over [start, end] inclusive.
	OpenRange(key string, start, end int64) (io.ReadCloser, error)
	Create(key string) (io.WriteCloser, error)
	Delete(key string) error
	Exists(key string) bool
	Size(key string) (int64, error)
	// ResolvePath maps a key to an absolute filesystem path when the store
	// is disk-backed.
	ResolvePath(key string) (string, error)
}
