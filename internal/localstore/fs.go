package localstore

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/natefinch/atomic"
)

var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// FS stores each key as <dir>/<key>.json. Writes are atomic (temp file and
// rename), so a crash never leaves a half-written record behind.
type FS struct {
	dir string
}

// NewFS creates the state directory if needed and returns a store rooted there.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("localstore: resolve dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("localstore: mkdir: %w", err)
	}
	return &FS{dir: abs}, nil
}

// Dir returns the absolute state directory.
func (f *FS) Dir() string { return f.dir }

func (f *FS) path(key string) (string, error) {
	if !keyRe.MatchString(key) {
		return "", fmt.Errorf("localstore: invalid key %q", key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}

func (f *FS) Get(key string) ([]byte, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("localstore: read %s: %w", key, err)
	}
	return data, true, nil
}

func (f *FS) Set(key string, value []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(p, bytes.NewReader(value)); err != nil {
		return fmt.Errorf("localstore: write %s: %w", key, err)
	}
	return nil
}

func (f *FS) Delete(key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("localstore: delete %s: %w", key, err)
	}
	return nil
}
