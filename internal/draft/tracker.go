// Package draft tracks unsaved editor changes and keeps a local draft of the
// editor buffer so work survives a restart.
package draft

import (
	"sync"

	"github.com/starford/kdoc/internal/checksum"
)

// Transition describes how an edit changed the dirty flag.
type Transition int

const (
	Unchanged Transition = iota
	BecameDirty
	BecameClean
)

// Tracker compares the editor buffer with the last saved snapshot.
type Tracker struct {
	mu    sync.Mutex
	saved string
	dirty bool
}

// NewTracker returns a clean tracker whose saved snapshot is an empty buffer.
func NewTracker() *Tracker {
	return &Tracker{saved: checksum.Snapshot("", "")}
}

// MarkSaved records name and text as the saved baseline and clears the flag.
func (t *Tracker) MarkSaved(name, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.saved = checksum.Snapshot(name, text)
	t.dirty = false
}

// Update recomputes the dirty flag for the current buffer.
func (t *Tracker) Update(name, text string) Transition {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := checksum.Snapshot(name, text) != t.saved
	prev := t.dirty
	t.dirty = now
	switch {
	case now && !prev:
		return BecameDirty
	case !now && prev:
		return BecameClean
	default:
		return Unchanged
	}
}

// ForceDirty marks the buffer dirty regardless of its content, e.g. after a
// failed save or a restored draft.
func (t *Tracker) ForceDirty() {
	t.mu.Lock()
	t.dirty = true
	t.mu.Unlock()
}

// Dirty reports whether the buffer has unsaved changes.
func (t *Tracker) Dirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}
