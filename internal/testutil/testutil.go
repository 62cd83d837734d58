// Package testutil provides shared test helpers for setting up document
// directories, databases and services.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/starford/kdoc/internal/docservice"
	"github.com/starford/kdoc/internal/index"
	"github.com/starford/kdoc/internal/storage"
)

// PNG is the smallest byte prefix sniffed as image/png.
var PNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// JPEG is the smallest byte prefix sniffed as image/jpeg.
var JPEG = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "kdoc-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary document directory with a storage.FS.
func TestStore(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}

// QuietLogger discards everything below error level.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestService wires a document service over a temporary store and database.
func TestService(t *testing.T, opts docservice.Options) (*docservice.Service, *storage.FS, *index.DB) {
	t.Helper()
	_, store := TestStore(t)
	db := TestDB(t)
	if opts.Logger == nil {
		opts.Logger = QuietLogger()
	}
	return docservice.NewService(store, db, opts), store, db
}
