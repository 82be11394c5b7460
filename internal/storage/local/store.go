package local

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/2xkl/PeerFlow/internal/domain/ports"
)

var errPathEscape = errors.New("key escapes base dir")

// Store is a filesystem BlobStore rooted at the transfer engine's data dir,
// so payloads written by the engine are directly range-readable.
type Store struct {
	base string
}

var _ ports.BlobStore = (*Store)(nil)

func New(baseDir string) (*Store, error) {
	base := strings.TrimSpace(baseDir)
	if base == "" {
		return nil, errors.New("base dir is required")
	}
	base = filepath.Clean(base)
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}
	return &Store{base: base}, nil
}

// ResolvePath maps a key to an absolute path under the base dir, rejecting
// anything that would escape it.
func (s *Store) ResolvePath(key string) (string, error) {
	joined := filepath.Join(s.base, filepath.FromSlash(key))
	joined = filepath.Clean(joined)
	if abs, err := filepath.Abs(joined); err == nil {
		joined = abs
	}
	if joined != s.base && !strings.HasPrefix(joined, s.base+string(filepath.Separator)) {
		return "", errPathEscape
	}
	return joined, nil
}

// OpenRange returns a reader over the inclusive byte range [start, end].
func (s *Store) OpenRange(key string, start, end int64) (io.ReadCloser, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid range %d-%d", start, end)
	}
	path, err := s.ResolvePath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return &rangeReader{f: f, remaining: end - start + 1}, nil
}

func (s *Store) Create(key string) (io.WriteCloser, error) {
	path, err := s.ResolvePath(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func (s *Store) Delete(key string) error {
	path, err := s.ResolvePath(key)
	if err != nil {
		return err
	}
	err = os.RemoveAll(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) Exists(key string) bool {
	path, err := s.ResolvePath(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (s *Store) Size(key string) (int64, error) {
	path, err := s.ResolvePath(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// rangeReader limits reads to the requested window and closes the
// underlying file with the response.
type rangeReader struct {
	f         *os.File
	remaining int64
}

func (r *rangeReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.f.Read(p)
	r.remaining -= int64(n)
	return n, err
}

func (r *rangeReader) Close() error {
	return r.f.Close()
}
