package index

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/starford/kdoc/internal/kdoc"
	"github.com/starford/kdoc/internal/models"
)

// Search bounds for top_k.
const (
	MinTopK     = 1
	MaxTopK     = 10
	DefaultTopK = 5
)

// field label used in field_hits for the document name.
const fieldName = "NAME"

const snippetRadius = 80

var fieldWeights = map[string]float64{
	kdoc.KeyTitle:    3,
	kdoc.KeyAliases:  3,
	kdoc.KeyKeywords: 2,
	fieldName:        2,
	kdoc.KeySummary:  1.5,
	kdoc.KeyContent:  1,
}

const otherWeight = 0.5

// ClampTopK bounds n to [MinTopK, MaxTopK]; zero means DefaultTopK.
func ClampTopK(n int) int {
	switch {
	case n == 0:
		return DefaultTopK
	case n < MinTopK:
		return MinTopK
	case n > MaxTopK:
		return MaxTopK
	}
	return n
}

// Terms splits a query into lower-cased, de-duplicated words.
func Terms(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// Search ranks documents against query. Each (term, field) match adds the
// field weight; documents without any match are omitted. Results are sorted by
// score descending, then name.
func (db *DB) Search(query string, topK int) ([]models.SearchResult, error) {
	terms := Terms(query)
	if len(terms) == 0 {
		return []models.SearchResult{}, nil
	}
	topK = ClampTopK(topK)

	rows, err := db.conn.Query(`SELECT name, title, doc_type, content FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	results := []models.SearchResult{}
	for rows.Next() {
		var name, title, docType, content string
		if err := rows.Scan(&name, &title, &docType, &content); err != nil {
			return nil, err
		}
		if r, ok := scoreDocument(name, content, terms); ok {
			r.Title = title
			r.DocType = docType
			results = append(results, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

type field struct {
	key  string
	text string
}

// documentFields returns the searchable fields of a document in canonical
// order. Text that is not KDOC is searched as CONTENT.
func documentFields(name, content string) []field {
	fields := []field{{fieldName, name}}
	sections, ok := kdoc.Parse(content)
	if !ok {
		return append(fields, field{kdoc.KeyContent, content})
	}
	for _, key := range kdoc.OrderedKeys(sections) {
		fields = append(fields, field{key, sections.Value(key)})
	}
	return fields
}

func weightOf(key string) float64 {
	if w, ok := fieldWeights[key]; ok {
		return w
	}
	return otherWeight
}

func scoreDocument(name, content string, terms []string) (models.SearchResult, bool) {
	var (
		score   float64
		hits    []string
		snippet string
	)
	for _, f := range documentFields(name, content) {
		lower := strings.ToLower(f.text)
		matched := false
		for _, term := range terms {
			if !strings.Contains(lower, term) {
				continue
			}
			score += weightOf(f.key)
			if !matched {
				matched = true
				hits = append(hits, f.key)
			}
			if snippet == "" && f.key != fieldName {
				snippet = snippetAround(f.text, term)
			}
		}
	}
	if len(hits) == 0 {
		return models.SearchResult{}, false
	}
	if snippet == "" {
		snippet = snippetAround(content, "")
	}
	return models.SearchResult{
		Name:      name,
		Score:     math.Round(score*100) / 100,
		FieldHits: hits,
		Snippet:   snippet,
	}, true
}

// snippetAround returns up to snippetRadius runes on either side of the first
// case-insensitive occurrence of term, whitespace collapsed.
func snippetAround(text, term string) string {
	runes := []rune(text)
	lowerRunes := []rune(strings.ToLower(text))
	start := 0
	if term != "" && len(lowerRunes) == len(runes) {
		if at := indexRunes(lowerRunes, []rune(term)); at >= 0 {
			start = max(at-snippetRadius, 0)
		}
	}
	end := min(start+2*snippetRadius, len(runes))
	out := strings.Join(strings.Fields(string(runes[start:end])), " ")
	if start > 0 {
		out = "…" + out
	}
	if end < len(runes) {
		out += "…"
	}
	return out
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
