package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"github.com/starford/kdoc/internal/apperr"
	"github.com/starford/kdoc/internal/checksum"
	"github.com/starford/kdoc/internal/models"
)

// BlobDir holds image bytes inside the store root. Document names may not
// start with a dot, so it never collides with a document.
const BlobDir = ".images"

const maxNameLen = 255

// FS implements Provider backed by a flat directory.
type FS struct {
	root string // absolute path to the document directory
}

// NewFS creates a new FS provider rooted at the given directory, creating
// the directory when it does not exist yet.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, BlobDir), 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute document directory.
func (f *FS) Root() string { return f.root }

// ValidateName rejects names that are not a single plain file name.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) != name || name == "":
		return fmt.Errorf("%w: %q", apperr.ErrInvalidName, name)
	case len(name) > maxNameLen:
		return fmt.Errorf("%w: name longer than %d bytes", apperr.ErrInvalidName, maxNameLen)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q starts with a dot", apperr.ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", apperr.ErrInvalidName, name)
	}
	return nil
}

// IsDocumentFile reports whether a directory entry name is a document.
func IsDocumentFile(name string) bool {
	return ValidateName(name) == nil
}

// safePath resolves a document name against the root.
func (f *FS) safePath(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(f.root, name), nil
}

func (f *FS) blobPath(id string) (string, error) {
	if err := uuid.Validate(id); err != nil {
		return "", fmt.Errorf("storage: invalid blob id %q: %w", id, apperr.ErrNotFound)
	}
	return filepath.Join(f.root, BlobDir, id), nil
}

func notFound(err error, what string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: %s: %w", what, apperr.ErrNotFound)
	}
	return fmt.Errorf("storage: %s: %w", what, err)
}

// List returns metadata for every document file in the root.
func (f *FS) List() ([]models.DocumentMetadata, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []models.DocumentMetadata
	for _, e := range entries {
		if e.IsDir() || !IsDocumentFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		data, err := os.ReadFile(filepath.Join(f.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		out = append(out, models.DocumentMetadata{
			Name:      e.Name(),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
	}
	return out, nil
}

// Read returns the raw bytes of a document.
func (f *FS) Read(name string) ([]byte, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, notFound(err, "read "+name)
	}
	return data, nil
}

// Write atomically writes content: temp file, fsync, rename.
func (f *FS) Write(name string, content []byte) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(abs, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("storage: write %s: %w", name, err)
	}
	return nil
}

// Delete removes a document.
func (f *FS) Delete(name string) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return notFound(err, "delete "+name)
	}
	return nil
}

// Move renames a document.
func (f *FS) Move(oldName, newName string) error {
	absOld, err := f.safePath(oldName)
	if err != nil {
		return err
	}
	absNew, err := f.safePath(newName)
	if err != nil {
		return err
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return notFound(err, "move "+oldName)
	}
	return nil
}

// WriteBlob atomically stores image bytes.
func (f *FS) WriteBlob(id string, data []byte) error {
	abs, err := f.blobPath(id)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(abs, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("storage: write blob: %w", err)
	}
	return nil
}

// ReadBlob returns image bytes.
func (f *FS) ReadBlob(id string) ([]byte, error) {
	abs, err := f.blobPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, notFound(err, "read blob")
	}
	return data, nil
}

// DeleteBlob removes image bytes. A missing blob is not an error.
func (f *FS) DeleteBlob(id string) error {
	abs, err := f.blobPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete blob: %w", err)
	}
	return nil
}
