package console

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/kdoc/internal/apperr"
	"github.com/starford/kdoc/internal/client"
	"github.com/starford/kdoc/internal/organize"
)

// Sort orders the document list.
type Sort string

const (
	SortUpdatedDesc Sort = "updated_desc"
	SortUpdatedAsc  Sort = "updated_asc"
	SortNameAsc     Sort = "name_asc"
	SortNameDesc    Sort = "name_desc"
)

// Filter narrows the cached document list.
type Filter struct {
	// Keyword matches document names.
	Keyword string
	// SideKeyword matches names, tags and snippets.
	SideKeyword string
	// Folder restricts to one folder; empty uses the active folder.
	Folder string
	Sort   Sort
}

// Entry is a listed document with its organization.
type Entry struct {
	client.DocumentSummary
	Folder string
	Tags   []string
	Active bool
}

// Documents filters and sorts the cached document list.
func (s *Session) Documents(f Filter) []Entry {
	s.mu.Lock()
	docs := slices.Clone(s.docs)
	selected := s.selected
	folder := s.activeFolder
	s.mu.Unlock()
	if f.Folder != "" {
		folder = f.Folder
	}
	keyword := strings.ToLower(strings.TrimSpace(f.Keyword))
	side := strings.ToLower(strings.TrimSpace(f.SideKeyword))

	out := make([]Entry, 0, len(docs))
	for _, d := range docs {
		tags, _ := s.org.Tags(d.Name, d.Snippet, false)
		e := Entry{
			DocumentSummary: d,
			Folder:          s.org.FolderOf(d.Name),
			Tags:            tags,
			Active:          selected != "" && selected == d.Name,
		}
		name := strings.ToLower(d.Name)
		if keyword != "" && !strings.Contains(name, keyword) {
			continue
		}
		if side != "" &&
			!strings.Contains(name, side) &&
			!strings.Contains(strings.ToLower(strings.Join(tags, " ")), side) &&
			!strings.Contains(strings.ToLower(d.Snippet), side) {
			continue
		}
		if folder != organize.AllKey && e.Folder != folder {
			continue
		}
		out = append(out, e)
	}

	slices.SortStableFunc(out, func(a, b Entry) int {
		switch f.Sort {
		case SortNameAsc:
			return strings.Compare(a.Name, b.Name)
		case SortNameDesc:
			return strings.Compare(b.Name, a.Name)
		case SortUpdatedAsc:
			return a.UpdatedAt.Compare(b.UpdatedAt.Time)
		default:
			return b.UpdatedAt.Compare(a.UpdatedAt.Time)
		}
	})
	return out
}

// SetActiveFolder changes the folder filter. Blank or the reserved name
// selects every document.
func (s *Session) SetActiveFolder(folder string) {
	clean := organize.SanitizeFolder(folder)
	if clean == "" || clean == organize.AllFolder || clean == organize.AllKey {
		clean = organize.AllKey
	}
	s.mu.Lock()
	s.activeFolder = clean
	s.mu.Unlock()
}

// SetFolderChoice picks the folder of the buffer. An open document moves
// immediately; a new document gets it on its first save.
func (s *Session) SetFolderChoice(folder string) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()
	clean := organize.SanitizeFolder(folder)
	if clean == "" || clean == organize.AllFolder {
		clean = organize.DefaultFolder
	}
	s.mu.Lock()
	selected := s.selected
	s.pendingFolder = clean
	s.mu.Unlock()

	if selected != "" {
		if err := s.org.SetFolder(selected, clean); err != nil {
			return s.fail("Folder not changed", err)
		}
		s.status(ToneInfo, fmt.Sprintf("Moved the current document to folder %q.", clean))
		return nil
	}
	if clean != organize.DefaultFolder {
		if _, err := s.org.AddFolder(clean); err != nil {
			return s.fail("Folder not changed", err)
		}
	}
	s.status(ToneInfo, fmt.Sprintf("Folder %q applies when the new document is saved.", clean))
	return nil
}

// AddFolder creates a folder.
func (s *Session) AddFolder(name string) (string, error) {
	if err := s.enter(); err != nil {
		return "", err
	}
	defer s.leave()
	clean, err := s.org.AddFolder(name)
	switch {
	case err == nil:
		s.status(ToneOK, fmt.Sprintf("Created folder %q.", clean))
		return clean, nil
	case errors.Is(err, apperr.ErrInvalidFolder) && organize.SanitizeFolder(name) == organize.AllFolder:
		s.status(ToneWarn, fmt.Sprintf("Folder name %q is reserved.", organize.AllFolder))
	case errors.Is(err, apperr.ErrInvalidFolder):
		s.status(ToneWarn, "Enter a folder name.")
	default:
		s.status(ToneWarn, "Folder not created: "+err.Error())
	}
	return "", err
}

// RemoveFolder deletes a folder; its documents move to the default folder.
func (s *Session) RemoveFolder(name string) (int, error) {
	if err := s.enter(); err != nil {
		return 0, err
	}
	defer s.leave()
	moved, err := s.org.RemoveFolder(name)
	if err != nil {
		if errors.Is(err, apperr.ErrProtected) {
			s.status(ToneWarn, fmt.Sprintf("Folder %q cannot be removed.", organize.DefaultFolder))
			return 0, err
		}
		return 0, s.fail("Folder not removed", err)
	}
	clean := organize.SanitizeFolder(name)
	s.mu.Lock()
	if s.activeFolder == clean {
		s.activeFolder = organize.AllKey
	}
	if s.pendingFolder == clean {
		s.pendingFolder = organize.DefaultFolder
	}
	s.mu.Unlock()
	s.status(ToneOK, fmt.Sprintf("Removed folder %q, %d documents moved to %q.", clean, moved, organize.DefaultFolder))
	return moved, nil
}

// tagTarget is the document tags apply to: the buffer name, which is the
// open document or the name typed for a new one.
func (s *Session) tagTarget() (doc, snippet string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc = strings.TrimSpace(s.name)
	for _, d := range s.docs {
		if d.Name == doc {
			return doc, d.Snippet
		}
	}
	return doc, ""
}

// Tags returns the tags of the buffer's document, inferred when none are set.
func (s *Session) Tags() []string {
	doc, snippet := s.tagTarget()
	tags, _ := s.org.Tags(doc, snippet, false)
	return tags
}

func (s *Session) tagFailure(err error) error {
	switch {
	case errors.Is(err, apperr.ErrInvalidName):
		s.status(ToneWarn, "Enter a document name before editing tags.")
	case errors.Is(err, apperr.ErrInvalidTag):
		s.status(ToneWarn, "Enter a valid tag.")
	default:
		s.status(ToneWarn, "Tags not changed: "+err.Error())
	}
	return err
}

// AddTag tags the buffer's document.
func (s *Session) AddTag(tag string) ([]string, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.leave()
	doc, _ := s.tagTarget()
	tags, err := s.org.AddTag(doc, tag)
	if err != nil {
		return nil, s.tagFailure(err)
	}
	s.status(ToneOK, "Tag added.")
	return tags, nil
}

// RenameTag renames one tag of the buffer's document.
func (s *Session) RenameTag(oldTag, newTag string) ([]string, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.leave()
	doc, _ := s.tagTarget()
	tags, err := s.org.RenameTag(doc, oldTag, newTag)
	if err != nil {
		return nil, s.tagFailure(err)
	}
	s.status(ToneOK, "Tag updated.")
	return tags, nil
}

// RemoveTag removes one tag from the buffer's document.
func (s *Session) RemoveTag(tag string) ([]string, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.leave()
	doc, _ := s.tagTarget()
	tags, err := s.org.RemoveTag(doc, tag)
	if err != nil {
		return nil, s.tagFailure(err)
	}
	s.status(ToneInfo, "Tag removed.")
	return tags, nil
}
