package organize

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/kdoc/internal/apperr"
	"github.com/starford/kdoc/internal/localstore"
)

// StateKey is the localstore key holding folder and tag state together, so
// one write persists both maps.
const StateKey = "organize_state.v1"

type record struct {
	FolderState  FolderState `json:"folderState"`
	NoteTagState TagState    `json:"noteTagState"`
}

// Store owns the folder and tag maps and flushes them after every mutation.
type Store struct {
	mu      sync.Mutex
	kv      localstore.Store
	folders FolderState
	tags    TagState
}

// Load reads persisted state from kv. Missing or corrupt state starts from
// the defaults; corruption is logged and otherwise ignored.
func Load(kv localstore.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	var rec record
	if _, err := localstore.LoadJSON(kv, StateKey, &rec); err != nil {
		logger.Warn("organize state unreadable, using defaults", slog.String("error", err.Error()))
	}
	return &Store{
		kv:      kv,
		folders: rec.FolderState.Normalize(),
		tags:    rec.NoteTagState.Normalize(),
	}
}

func (s *Store) flushLocked() error {
	if err := localstore.SaveJSON(s.kv, StateKey, record{FolderState: s.folders, NoteTagState: s.tags}); err != nil {
		return fmt.Errorf("organize: persist: %w", err)
	}
	return nil
}

// Snapshot returns deep copies of both maps.
func (s *Store) Snapshot() (FolderState, TagState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folders.Clone(), s.tags.Clone()
}

// Replace swaps in new state (normalized) and persists it.
func (s *Store) Replace(folders FolderState, tags TagState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders = folders.Normalize()
	s.tags = tags.Normalize()
	return s.flushLocked()
}

// Clear drops every assignment and tag. Folders are kept.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders.Assignments = map[string]string{}
	s.tags = TagState{}
	return s.flushLocked()
}

// Folders returns the folder list, default first.
func (s *Store) Folders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.folders.Folders...)
}

// HasFolder reports whether name is a known folder.
func (s *Store) HasFolder(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasFolderLocked(name)
}

func (s *Store) hasFolderLocked(name string) bool {
	for _, f := range s.folders.Folders {
		if f == name {
			return true
		}
	}
	return false
}

// ensureFolderLocked adds name to the list if missing and returns the
// sanitized name, or the default folder for blank and reserved input.
func (s *Store) ensureFolderLocked(name string) string {
	name = SanitizeFolder(name)
	if name == "" || name == AllFolder {
		return DefaultFolder
	}
	if !s.hasFolderLocked(name) {
		s.folders.Folders = append(s.folders.Folders, name)
	}
	return name
}

// AddFolder creates a folder. Adding an existing folder is a no-op.
func (s *Store) AddFolder(name string) (string, error) {
	clean := SanitizeFolder(name)
	if clean == "" {
		return "", apperr.ErrInvalidFolder
	}
	if clean == AllFolder {
		return "", fmt.Errorf("folder %q is reserved: %w", clean, apperr.ErrInvalidFolder)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureFolderLocked(clean)
	return clean, s.flushLocked()
}

// RemoveFolder deletes a folder and moves its documents to the default folder.
// It returns the number of documents moved.
func (s *Store) RemoveFolder(name string) (int, error) {
	clean := SanitizeFolder(name)
	if clean == "" {
		return 0, apperr.ErrInvalidFolder
	}
	if clean == DefaultFolder {
		return 0, apperr.ErrProtected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFolderLocked(clean) {
		return 0, fmt.Errorf("folder %q: %w", clean, apperr.ErrNotFound)
	}
	prev := s.folders.Clone()
	kept := make([]string, 0, len(s.folders.Folders))
	for _, f := range s.folders.Folders {
		if f != clean {
			kept = append(kept, f)
		}
	}
	s.folders.Folders = kept
	moved := 0
	for doc, f := range s.folders.Assignments {
		if f == clean {
			s.folders.Assignments[doc] = DefaultFolder
			moved++
		}
	}
	if err := s.flushLocked(); err != nil {
		s.folders = prev
		return 0, err
	}
	return moved, nil
}

// FolderOf returns the folder of doc, or the default folder when unassigned.
func (s *Store) FolderOf(doc string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folderOfLocked(doc)
}

func (s *Store) folderOfLocked(doc string) string {
	if f := SanitizeFolder(s.folders.Assignments[doc]); f != "" {
		return f
	}
	return DefaultFolder
}

// SetFolder assigns doc to folder, creating the folder if needed.
func (s *Store) SetFolder(doc, folder string) error {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return apperr.ErrInvalidName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders.Assignments[doc] = s.ensureFolderLocked(folder)
	return s.flushLocked()
}

// CountIn returns how many of docs belong to folder. AllKey counts every doc.
func (s *Store) CountIn(folder string, docs []string) int {
	if folder == AllKey {
		return len(docs)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range docs {
		if s.folderOfLocked(d) == folder {
			n++
		}
	}
	return n
}

// Tags returns the tags of doc. Without explicit tags they are inferred from
// the name and snippet; persist stores the inferred set.
func (s *Store) Tags(doc, snippet string, persist bool) ([]string, error) {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tagsLocked(doc, snippet, persist)
}

func (s *Store) tagsLocked(doc, snippet string, persist bool) ([]string, error) {
	if tags := s.tags[doc]; len(tags) > 0 {
		return append([]string(nil), tags...), nil
	}
	inferred := NormalizeTags(InferTags(doc, snippet))
	if persist {
		s.tags[doc] = inferred
		if err := s.flushLocked(); err != nil {
			return inferred, err
		}
	}
	return append([]string(nil), inferred...), nil
}

// SetTags replaces the tags of doc with the normalized list.
func (s *Store) SetTags(doc string, tags []string) ([]string, error) {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return nil, apperr.ErrInvalidName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setTagsLocked(doc, tags)
}

func (s *Store) setTagsLocked(doc string, tags []string) ([]string, error) {
	s.tags[doc] = NormalizeTags(tags)
	return append([]string(nil), s.tags[doc]...), s.flushLocked()
}

// storedTagsLocked returns a copy of the explicit tags of doc. Inferred tags are a
// display fallback only and never feed a mutation.
func (s *Store) storedTagsLocked(doc string) []string {
	return append([]string(nil), s.tags[doc]...)
}

// AddTag appends tag to the stored tags of doc. A tag equal to an existing
// one ignoring case is dropped, so the first casing stays.
func (s *Store) AddTag(doc, tag string) ([]string, error) {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return nil, apperr.ErrInvalidName
	}
	if tag = SanitizeTag(tag); tag == "" {
		return nil, apperr.ErrInvalidTag
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setTagsLocked(doc, append(s.storedTagsLocked(doc), tag))
}

// RenameTag replaces oldTag with newTag on doc.
func (s *Store) RenameTag(doc, oldTag, newTag string) ([]string, error) {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return nil, apperr.ErrInvalidName
	}
	if newTag = SanitizeTag(newTag); newTag == "" {
		return nil, apperr.ErrInvalidTag
	}
	oldTag = SanitizeTag(oldTag)
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.storedTagsLocked(doc)
	found := false
	for i, t := range current {
		if strings.EqualFold(t, oldTag) {
			current[i] = newTag
			found = true
		}
	}
	if !found {
		return current, fmt.Errorf("tag %q: %w", oldTag, apperr.ErrNotFound)
	}
	return s.setTagsLocked(doc, current)
}

// RemoveTag drops tag from doc. Removing the last tag makes the document fall
// back to inferred tags on the next read.
func (s *Store) RemoveTag(doc, tag string) ([]string, error) {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return nil, apperr.ErrInvalidName
	}
	tag = SanitizeTag(tag)
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.storedTagsLocked(doc)
	kept := current[:0]
	for _, t := range current {
		if !strings.EqualFold(t, tag) {
			kept = append(kept, t)
		}
	}
	return s.setTagsLocked(doc, kept)
}

// Reassign moves the folder and tag assignments of oldName to newName after a
// save. The target folder is explicitFolder if given, else the previous
// folder of oldName, else activeFolder (unless it is AllKey), else the
// default. The new keys are written before the old ones are deleted and both
// maps are persisted in a single write. It returns the target folder.
func (s *Store) Reassign(oldName, newName, explicitFolder, activeFolder string) (string, error) {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return "", apperr.ErrInvalidName
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	target := SanitizeFolder(explicitFolder)
	if target == "" && oldName != "" {
		target = SanitizeFolder(s.folders.Assignments[oldName])
	}
	if target == "" && activeFolder != AllKey {
		target = SanitizeFolder(activeFolder)
	}
	target = s.ensureFolderLocked(target)
	s.folders.Assignments[newName] = target

	if oldTags, ok := s.tags[oldName]; ok && oldName != "" && oldName != newName {
		s.tags[newName] = NormalizeTags(oldTags)
	} else if _, ok := s.tags[newName]; !ok {
		s.tags[newName] = NormalizeTags(InferTags(newName, ""))
	}

	if oldName != "" && oldName != newName {
		delete(s.folders.Assignments, oldName)
		delete(s.tags, oldName)
	}
	return target, s.flushLocked()
}
