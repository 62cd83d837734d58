package index

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/kdoc/internal/apperr"
	"github.com/starford/kdoc/internal/checksum"
	"github.com/starford/kdoc/internal/storage"
)

// Watcher event kinds.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// ReconcileDelay is how long the watcher waits after the last file event
// before reconciling the changed names.
const ReconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
// kind is one of EventCreated, EventUpdated, EventDeleted.
type EventCallback func(kind string, name string)

// Watch starts an fsnotify watcher on the document directory and processes
// file change events until ctx is cancelled. It calls cb (if non-nil) after
// each index mutation.
//
// Events only mark a name as pending. Once no event has arrived for
// ReconcileDelay, every pending name is compared against the index by
// checksum, so temporary files of atomic writes and writes already indexed
// by the service produce no callbacks.
func Watch(ctx context.Context, db DocumentIndex, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]struct{})
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	schedule := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(ReconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(ReconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			for name := range pending {
				reconcileName(db, store, root, name, logger, cb)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if filepath.Dir(ev.Name) != filepath.Clean(root) || !storage.IsDocumentFile(name) {
				continue
			}
			pending[name] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcileName brings the index entry for one document in line with disk.
func reconcileName(db DocumentIndex, store storage.Provider, root, name string, logger *slog.Logger, cb EventCallback) {
	indexed, err := db.GetChecksum(name)
	if err != nil {
		logger.Warn("watcher: checksum lookup failed", slog.String("name", name), slog.String("error", err.Error()))
		return
	}

	info, statErr := os.Stat(filepath.Join(root, name))
	if statErr != nil || info.IsDir() {
		if indexed == "" {
			return
		}
		if err := db.DeleteDocument(name); err != nil {
			logger.Warn("watcher: delete failed", slog.String("name", name), slog.String("error", err.Error()))
			return
		}
		logger.Debug("watcher: deleted", slog.String("name", name))
		if cb != nil {
			cb(EventDeleted, name)
		}
		return
	}

	data, err := store.Read(name)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			logger.Warn("watcher: read failed", slog.String("name", name), slog.String("error", err.Error()))
		}
		return
	}
	if checksum.Sum(data) == indexed {
		return
	}
	if err := IndexDocument(db, name, data, info.ModTime()); err != nil {
		logger.Warn("watcher: index failed", slog.String("name", name), slog.String("error", err.Error()))
		return
	}
	kind := EventUpdated
	if indexed == "" {
		kind = EventCreated
	}
	logger.Debug("watcher: indexed", slog.String("name", name), slog.String("op", kind))
	if cb != nil {
		cb(kind, name)
	}
}
