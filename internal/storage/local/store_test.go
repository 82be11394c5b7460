package local

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func writeFile(t *testing.T, s *Store, key, content string) {
	t.Helper()
	path, err := s.ResolvePath(key)
	if err != nil {
		t.Fatalf("ResolvePath(%q): %v", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolvePathRejectsTraversal(t *testing.T) {
	s := newTestStore(t)
	cases := []string{
		"../../etc/passwd",
		"nested/../../escape.txt",
	}
	for _, key := range cases {
		if _, err := s.ResolvePath(key); err == nil {
			t.Errorf("ResolvePath(%q): expected error", key)
		}
	}
}

func TestResolvePathNested(t *testing.T) {
	s := newTestStore(t)
	got, err := s.ResolvePath("hash/sub/movie.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(s.base, "hash", "sub", "movie.mp4")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestOpenRange(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, s, "hash/movie.mp4", "0123456789")

	cases := []struct {
		name       string
		start, end int64
		want       string
	}{
		{"full", 0, 9, "0123456789"},
		{"head", 0, 3, "0123"},
		{"mid", 3, 6, "3456"},
		{"tail", 7, 9, "789"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rc, err := s.OpenRange("hash/movie.mp4", tc.start, tc.end)
			if err != nil {
				t.Fatalf("OpenRange: %v", err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if string(data) != tc.want {
				t.Fatalf("got %q, want %q", data, tc.want)
			}
		})
	}
}

func TestOpenRangeInvalid(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, s, "f.bin", "abc")

	if _, err := s.OpenRange("f.bin", -1, 2); err == nil {
		t.Error("negative start should error")
	}
	if _, err := s.OpenRange("f.bin", 5, 2); err == nil {
		t.Error("end before start should error")
	}
	if _, err := s.OpenRange("missing.bin", 0, 2); err == nil {
		t.Error("missing file should error")
	}
}

func TestSizeAndExists(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, s, "hash/f.bin", "hello")

	if !s.Exists("hash/f.bin") {
		t.Fatal("Exists = false for present file")
	}
	if s.Exists("hash/other.bin") {
		t.Fatal("Exists = true for absent file")
	}
	size, err := s.Size("hash/f.bin")
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 5 {
		t.Fatalf("Size = %d, want 5", size)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, s, "hash/f.bin", "hello")

	if err := s.Delete("hash"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists("hash/f.bin") {
		t.Fatal("file should be gone")
	}
	// Deleting an absent key is not an error.
	if err := s.Delete("hash"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestCreateWritesNestedDirs(t *testing.T) {
	s := newTestStore(t)
	w, err := s.Create("a/b/c.bin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte("data")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	size, err := s.Size("a/b/c.bin")
	if err != nil || size != 4 {
		t.Fatalf("Size = %d, err %v", size, err)
	}
}
