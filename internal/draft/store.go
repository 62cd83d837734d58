package draft

import (
	"strings"
	"time"

	"github.com/starford/kdoc/internal/localstore"
)

// Key is the localstore key of the editor draft.
const Key = "editor_draft.v1"

// Draft is the last known editor buffer.
type Draft struct {
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Empty reports whether the draft carries no content.
func (d Draft) Empty() bool {
	return strings.TrimSpace(d.Name) == "" && strings.TrimSpace(d.Text) == ""
}

// Store persists the single editor draft.
type Store struct {
	kv  localstore.Store
	now func() time.Time
}

// NewStore returns a draft store backed by kv.
func NewStore(kv localstore.Store) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Save overwrites the draft with the current buffer.
func (s *Store) Save(name, text string) error {
	return localstore.SaveJSON(s.kv, Key, Draft{Name: name, Text: text, UpdatedAt: s.now().UTC()})
}

// Load returns the stored draft. A missing or unreadable draft is reported
// as absent.
func (s *Store) Load() (Draft, bool) {
	var d Draft
	ok, err := localstore.LoadJSON(s.kv, Key, &d)
	if err != nil || !ok {
		return Draft{}, false
	}
	return d, true
}

// ShouldRestore reports whether a stored draft may replace the editor buffer:
// only when no document is selected and the buffer is blank.
func ShouldRestore(d Draft, selected, buffer string) bool {
	return !d.Empty() && strings.TrimSpace(selected) == "" && strings.TrimSpace(buffer) == ""
}
