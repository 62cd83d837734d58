package kdoc

import (
	"regexp"
	"strings"
)

var (
	headerRe  = regexp.MustCompile(`^\s*\[([A-Z_]+)\]\s*$`)
	listSepRe = regexp.MustCompile(`[\n|,;]+`)
	crlf      = strings.NewReplacer("\r\n", "\n")
)

// Sections is an insertion-ordered map from section key to trimmed body.
type Sections struct {
	keys   []string
	values map[string]string
}

// NewSections returns an empty section map.
func NewSections() *Sections {
	return &Sections{values: make(map[string]string)}
}

// Set stores value under key. A key keeps the position of its first insertion.
func (s *Sections) Set(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns the body stored for key.
func (s *Sections) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Value returns the body for key or the empty string.
func (s *Sections) Value(key string) string {
	return s.values[key]
}

// Keys returns the section keys in document order.
func (s *Sections) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of sections.
func (s *Sections) Len() int {
	return len(s.keys)
}

// Equal reports whether both maps hold the same keys, order and bodies.
func (s *Sections) Equal(other *Sections) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.keys) != len(other.keys) {
		return false
	}
	for i, k := range s.keys {
		if other.keys[i] != k || other.values[k] != s.values[k] {
			return false
		}
	}
	return true
}

// Parse extracts the sections of a KDOC document. The boolean is false when
// the start or end marker is missing or the end marker does not follow the
// start marker; an empty but well-formed document yields (empty, true).
func Parse(text string) (*Sections, bool) {
	lines := strings.Split(strings.TrimSpace(crlf.Replace(text)), "\n")

	start, end := -1, -1
	for i, line := range lines {
		if strings.TrimSpace(line) == StartMarker {
			start = i
			break
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == EndMarker {
			end = i
			break
		}
	}
	if start < 0 || end < 0 || end <= start {
		return nil, false
	}

	sections := NewSections()
	current := ""
	var buf []string
	flush := func() {
		if current == "" {
			return
		}
		sections.Set(current, strings.TrimSpace(strings.Join(buf, "\n")))
		buf = buf[:0]
	}

	for _, line := range lines[start+1 : end] {
		if m := headerRe.FindStringSubmatch(line); m != nil {
			flush()
			current = m[1]
			continue
		}
		if current != "" {
			buf = append(buf, line)
		}
	}
	flush()

	return sections, true
}

// Serialize renders sections as KDOC text. Keys are emitted in order (or in
// document order when order is nil), skipping blanks and duplicates.
func Serialize(sections *Sections, order []string) string {
	if order == nil && sections != nil {
		order = sections.keys
	}
	seen := make(map[string]struct{}, len(order))
	blocks := make([]string, 0, len(order))
	for _, key := range order {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		value := ""
		if sections != nil {
			value = strings.TrimSpace(crlf.Replace(sections.Value(key)))
		}
		blocks = append(blocks, "["+key+"]\n"+value)
	}
	return StartMarker + "\n" + strings.Join(blocks, "\n\n") + "\n" + EndMarker
}

// OrderedKeys returns the canonical keys present in sections followed by any
// extension keys in document order.
func OrderedKeys(sections *Sections) []string {
	var out []string
	for _, k := range SectionOrder {
		if _, ok := sections.Get(k); ok {
			out = append(out, k)
		}
	}
	for _, k := range sections.keys {
		if !isKnown(k) {
			out = append(out, k)
		}
	}
	return out
}

// Canonicalize reorders a parsable document into canonical section order.
func Canonicalize(text string) (string, bool) {
	sections, ok := Parse(text)
	if !ok {
		return "", false
	}
	return Serialize(sections, OrderedKeys(sections)), true
}

// SplitList splits a section body into display items. ALIASES and KEYWORDS
// accept new lines, pipes, commas and semicolons as separators; other
// sections split on lines.
func SplitList(key, value string) []string {
	var parts []string
	if key == KeyAliases || key == KeyKeywords {
		parts = listSepRe.Split(value, -1)
	} else {
		parts = strings.Split(value, "\n")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
