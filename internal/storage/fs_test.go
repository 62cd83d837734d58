package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/starford/kdoc/internal/apperr"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempStore(t)
	content := []byte("=== KDOC:v1 ===\n[TITLE]\nHello\n=== END_KDOC ===")
	if err := s.Write("faq_1.txt", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("faq_1.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Read("nope.txt"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("del.txt", []byte("bye"))
	if err := s.Delete("del.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.txt"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("old.txt", []byte("data"))
	if err := s.Move("old.txt", "new.txt"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("new.txt")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.txt"); err == nil {
		t.Error("old name should not exist")
	}
}

func TestList_SkipsBlobDirAndHiddenFiles(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("a.txt", []byte("a"))
	_ = s.Write("b", []byte("b"))
	_ = os.WriteFile(filepath.Join(s.Root(), ".hidden"), []byte("x"), 0o644)
	_ = s.WriteBlob(uuid.NewString(), []byte{1})

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2: %+v", len(items), items)
	}
}

func TestInvalidNamesRejected(t *testing.T) {
	s := tempStore(t)
	cases := []string{
		"../../etc/passwd",
		"../outside.txt",
		"/etc/shadow",
		"sub/dir.txt",
		`win\path.txt`,
		".images",
		"",
		" padded.txt ",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrInvalidName) {
			t.Errorf("read %q: err = %v", p, err)
		}
		if err := s.Write(p, []byte("x")); !errors.Is(err, apperr.ErrInvalidName) {
			t.Errorf("write %q: err = %v", p, err)
		}
	}
}

func TestAtomicWriteOverwrites(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("atomic.txt", []byte("original content"))
	updated := []byte("updated content")
	if err := s.Write("atomic.txt", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.txt")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}
	items, _ := s.List()
	if len(items) != 1 {
		t.Errorf("leftover files: %+v", items)
	}
}

func TestBlobs(t *testing.T) {
	s := tempStore(t)
	id := uuid.NewString()
	if err := s.WriteBlob(id, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	got, err := s.ReadBlob(id)
	if err != nil || len(got) != 3 {
		t.Fatalf("ReadBlob = %v, %v", got, err)
	}
	if err := s.DeleteBlob(id); err != nil {
		t.Fatalf("DeleteBlob: %v", err)
	}
	if err := s.DeleteBlob(id); err != nil {
		t.Errorf("second DeleteBlob: %v", err)
	}
	if _, err := s.ReadBlob("../../x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("bad id: err = %v", err)
	}
}

func TestNewFS_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "docs")
	if _, err := NewFS(dir); err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, BlobDir)); err != nil {
		t.Errorf("blob dir missing: %v", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "kdoc-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
