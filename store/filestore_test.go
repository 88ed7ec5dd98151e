package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonwraymond/packcache/pack"
)

// TestNewHasher tests algorithm selection and digest shape.
func TestNewHasher(t *testing.T) {
	tests := []struct {
		algorithm string
		wantLen   int
		wantErr   bool
	}{
		{"xxh64", 16, false},
		{"", 16, false},
		{"sha256", 64, false},
		{"md5", 32, false},
		{"crc32", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			h, err := NewHasher(tt.algorithm)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewHasher(%q) = nil error, want error", tt.algorithm)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewHasher(%q) = %v", tt.algorithm, err)
			}

			digest := h("some/identifier")
			if len(digest) != tt.wantLen {
				t.Errorf("digest length = %d, want %d", len(digest), tt.wantLen)
			}
			// Deterministic across calls.
			if h("some/identifier") != digest {
				t.Error("hasher is not deterministic")
			}
			if h("other/identifier") == digest {
				t.Error("distinct identifiers share a digest")
			}
		})
	}
}

// TestFileStore_Path tests the two-character shard layout.
func TestFileStore_Path(t *testing.T) {
	h, err := NewHasher("xxh64")
	if err != nil {
		t.Fatal(err)
	}
	s := NewFileStore("/cache/root", h)

	path := s.Path("module-a")
	rel, err := filepath.Rel("/cache/root", path)
	if err != nil {
		t.Fatal(err)
	}

	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) != 2 {
		t.Fatalf("path %q has %d components under root, want 2", rel, len(parts))
	}
	if len(parts[0]) != 2 {
		t.Errorf("shard directory %q length = %d, want 2", parts[0], len(parts[0]))
	}
	if !strings.HasSuffix(parts[1], FileExtension) {
		t.Errorf("file name %q missing %q suffix", parts[1], FileExtension)
	}
}

// TestFileStore_WriteRead tests per-file round trips.
func TestFileStore_WriteRead(t *testing.T) {
	h, _ := NewHasher("xxh64")
	s := NewFileStore(t.TempDir(), h)
	ctx := context.Background()

	entry := pack.NewEntry("mod/a.js", "etag-1", "v2", []byte("compiled output"))
	if err := s.Write(ctx, entry); err != nil {
		t.Fatalf("Write() = %v, want nil", err)
	}

	got, err := s.Read(ctx, "mod/a.js")
	if err != nil {
		t.Fatalf("Read() = %v, want nil", err)
	}
	if got.Identifier != "mod/a.js" || got.ETag != "etag-1" || got.Version != "v2" {
		t.Errorf("entry = {%s %s %s}", got.Identifier, got.ETag, got.Version)
	}
	data, err := got.Data()
	if err != nil || string(data) != "compiled output" {
		t.Errorf("Data() = %q, %v", data, err)
	}
}

// TestFileStore_ReadAbsent tests the not-found path.
func TestFileStore_ReadAbsent(t *testing.T) {
	h, _ := NewHasher("xxh64")
	s := NewFileStore(t.TempDir(), h)

	if _, err := s.Read(context.Background(), "never-stored"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() = %v, want ErrNotFound", err)
	}
}

// TestFileStore_Overwrite tests last-writer-wins on one identifier.
func TestFileStore_Overwrite(t *testing.T) {
	h, _ := NewHasher("xxh64")
	s := NewFileStore(t.TempDir(), h)
	ctx := context.Background()

	if err := s.Write(ctx, pack.NewEntry("x", "e1", "v1", []byte("first"))); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, pack.NewEntry("x", "e2", "v1", []byte("second"))); err != nil {
		t.Fatal(err)
	}

	got, err := s.Read(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := got.Data()
	if got.ETag != "e2" || string(data) != "second" {
		t.Errorf("entry = {%s %q}, want {e2 second}", got.ETag, data)
	}
}
