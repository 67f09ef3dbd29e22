package fs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tendant/folio/pkg/folio"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp, URLPrefix: "/assets/"})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()
	key := "resumes/abc.pdf"

	data := []byte("hello fs")
	if err := backend.UploadWithParams(ctx, bytes.NewReader(data), folio.UploadParams{ObjectKey: key, MimeType: "application/pdf"}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	url, err := backend.GetPublicURL(ctx, key)
	if err != nil {
		t.Fatalf("public url: %v", err)
	}
	if url != "/assets/resumes/abc.pdf" {
		t.Fatalf("unexpected url %q", url)
	}

	got, err := os.ReadFile(filepath.Join(tmp, "resumes", "abc.pdf"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("content mismatch: %q", string(got))
	}

	if err := backend.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, key)); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	// the emptied resumes/ directory is cleaned up, the base dir is kept
	if _, err := os.Stat(filepath.Join(tmp, "resumes")); !os.IsNotExist(err) {
		t.Fatalf("expected empty directory removed, stat err=%v", err)
	}
	if _, err := os.Stat(tmp); err != nil {
		t.Fatalf("base dir removed: %v", err)
	}
}

func TestFSBackend_KeysStayInsideBaseDir(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: filepath.Join(tmp, "assets")})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()
	if err := backend.UploadWithParams(ctx, bytes.NewReader([]byte("x")), folio.UploadParams{ObjectKey: "../../escape.txt"}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "assets", "escape.txt")); err != nil {
		t.Fatalf("expected file inside base dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "escape.txt")); !os.IsNotExist(err) {
		t.Fatalf("file escaped base dir")
	}
}

func TestFSBackend_Errors(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without base dir")
	}

	backend, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	if err := backend.Delete(context.Background(), "missing.txt"); err == nil {
		t.Fatalf("expected error deleting missing object")
	}
	if _, err := backend.GetPublicURL(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestFSBackend_ObjectKeyForURL(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir(), URLPrefix: "/assets"})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	tests := []struct {
		url  string
		key  string
		want bool
	}{
		{"/assets/resumes/abc.pdf", "resumes/abc.pdf", true},
		{"/assets/", "", false},
		{"/other/resumes/abc.pdf", "", false},
		{"/assets/../etc/passwd", "", false},
		{"https://cdn.example.com/assets/resumes/abc.pdf", "", false},
	}
	for _, tt := range tests {
		key, ok := backend.ObjectKeyForURL(tt.url)
		if ok != tt.want || key != tt.key {
			t.Errorf("ObjectKeyForURL(%q) = %q, %v; want %q, %v", tt.url, key, ok, tt.key, tt.want)
		}
	}
}
