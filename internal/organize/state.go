// Package organize keeps the operator's folder and tag assignments for
// documents. Both maps are keyed by document name and survive renames.
package organize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultFolder always exists and cannot be removed.
	DefaultFolder = "Mặc định"
	// AllFolder is the display name of the "all documents" filter. It is
	// reserved and never stored as a real folder.
	AllFolder = "Tất cả"
	// AllKey selects every document when used as the active folder.
	AllKey = "__ALL__"

	maxFolderLen = 48
	maxTagLen    = 32
	maxTags      = 8
	maxInferred  = 3
)

var spaceRe = regexp.MustCompile(`\s+`)

func clean(s string, limit int) string {
	s = spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:limit]))
}

// SanitizeFolder trims, collapses whitespace and truncates a folder name.
func SanitizeFolder(name string) string { return clean(name, maxFolderLen) }

// SanitizeTag trims, collapses whitespace and truncates a tag.
func SanitizeTag(tag string) string { return clean(tag, maxTagLen) }

// NormalizeTags sanitizes tags, drops blanks and case-insensitive duplicates
// (the first casing wins) and keeps at most eight.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = SanitizeTag(t)
		if t == "" {
			continue
		}
		k := strings.ToLower(t)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

// InferTags derives up to three tags from a document's name and snippet.
// Documents matching no keyword get "note".
func InferTags(name, snippet string) []string {
	src := strings.ToLower(name) + " " + strings.ToLower(snippet)
	var tags []string
	if strings.Contains(src, "faq") {
		tags = append(tags, "faq")
	}
	if strings.Contains(src, "policy") || strings.Contains(src, "chính sách") {
		tags = append(tags, "policy")
	}
	if strings.Contains(src, "chanh") || strings.Contains(src, "sản phẩm") {
		tags = append(tags, "product")
	}
	if strings.Contains(src, "hướng dẫn") || strings.Contains(src, "guide") {
		tags = append(tags, "guide")
	}
	if len(tags) == 0 {
		tags = append(tags, "note")
	}
	if len(tags) > maxInferred {
		tags = tags[:maxInferred]
	}
	return tags
}

// FolderState is the persisted folder list and document assignments.
type FolderState struct {
	Folders     []string          `json:"folders"`
	Assignments map[string]string `json:"assignments"`
}

// TagState maps document names to their tags.
type TagState map[string][]string

// DefaultFolderState returns a state holding only the default folder.
func DefaultFolderState() FolderState {
	return FolderState{Folders: []string{DefaultFolder}, Assignments: map[string]string{}}
}

// Normalize returns a copy that satisfies the folder invariants: the default
// folder first, no blank or reserved names, no duplicates, and every assigned
// folder present in the list.
func (fs FolderState) Normalize() FolderState {
	out := DefaultFolderState()
	has := map[string]bool{DefaultFolder: true}
	add := func(f string) {
		if !has[f] {
			has[f] = true
			out.Folders = append(out.Folders, f)
		}
	}
	for _, f := range fs.Folders {
		if f = SanitizeFolder(f); f != "" && f != AllFolder {
			add(f)
		}
	}
	docs := make([]string, 0, len(fs.Assignments))
	for doc := range fs.Assignments {
		docs = append(docs, doc)
	}
	sort.Strings(docs)
	for _, doc := range docs {
		f := SanitizeFolder(fs.Assignments[doc])
		if f == "" || f == AllFolder {
			continue
		}
		add(f)
		out.Assignments[doc] = f
	}
	return out
}

// Clone returns a deep copy.
func (fs FolderState) Clone() FolderState {
	out := FolderState{
		Folders:     append([]string(nil), fs.Folders...),
		Assignments: make(map[string]string, len(fs.Assignments)),
	}
	for k, v := range fs.Assignments {
		out.Assignments[k] = v
	}
	return out
}

// Normalize returns a copy with trimmed document names and normalized tag lists.
func (ts TagState) Normalize() TagState {
	out := make(TagState, len(ts))
	for doc, tags := range ts {
		if doc = strings.TrimSpace(doc); doc == "" {
			continue
		}
		out[doc] = NormalizeTags(tags)
	}
	return out
}

// Clone returns a deep copy.
func (ts TagState) Clone() TagState {
	out := make(TagState, len(ts))
	for k, v := range ts {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// FolderStateFrom builds a normalized state from loosely typed JSON data
// (for example an imported payload). Unexpected shapes yield the default.
func FolderStateFrom(raw any) FolderState {
	m, ok := raw.(map[string]any)
	if !ok {
		return DefaultFolderState()
	}
	var fs FolderState
	if list, ok := m["folders"].([]any); ok {
		for _, v := range list {
			fs.Folders = append(fs.Folders, asString(v))
		}
	}
	if assigned, ok := m["assignments"].(map[string]any); ok {
		fs.Assignments = make(map[string]string, len(assigned))
		for doc, v := range assigned {
			fs.Assignments[doc] = asString(v)
		}
	}
	return fs.Normalize()
}

// TagStateFrom builds a normalized tag map from loosely typed JSON data.
func TagStateFrom(raw any) TagState {
	m, ok := raw.(map[string]any)
	if !ok {
		return TagState{}
	}
	ts := make(TagState, len(m))
	for doc, v := range m {
		list, _ := v.([]any)
		tags := make([]string, 0, len(list))
		for _, t := range list {
			tags = append(tags, asString(t))
		}
		ts[doc] = tags
	}
	return ts.Normalize()
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64, bool:
		return fmt.Sprint(x)
	default:
		return ""
	}
}
