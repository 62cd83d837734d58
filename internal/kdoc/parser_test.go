package kdoc

import (
	"strings"
	"testing"
)

const sample = `=== KDOC:v1 ===
[DOC_ID]
faq_shipping

[DOC_TYPE]
faq

[TITLE]
Shipping questions

[CONTENT]
Q: How long?
A: Two days.
=== END_KDOC ===`

func TestParse_Sections(t *testing.T) {
	s, ok := Parse(sample)
	if !ok {
		t.Fatal("expected sections")
	}
	want := []string{"DOC_ID", "DOC_TYPE", "TITLE", "CONTENT"}
	if got := s.Keys(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	if v := s.Value(KeyContent); v != "Q: How long?\nA: Two days." {
		t.Errorf("content = %q", v)
	}
}

func TestParse_CRLFAndIndentedMarkers(t *testing.T) {
	in := "\r\n  === KDOC:v1 ===  \r\n[TITLE]\r\nHello\r\n\t=== END_KDOC ===\r\n"
	s, ok := Parse(in)
	if !ok {
		t.Fatal("expected sections")
	}
	if s.Value(KeyTitle) != "Hello" {
		t.Errorf("title = %q", s.Value(KeyTitle))
	}
}

func TestParse_MissingMarkers(t *testing.T) {
	cases := map[string]string{
		"no start":    "[TITLE]\nx\n=== END_KDOC ===",
		"no end":      "=== KDOC:v1 ===\n[TITLE]\nx",
		"end first":   "=== END_KDOC ===\n[TITLE]\nx\n=== KDOC:v1 ===",
		"empty":       "",
		"plain prose": "just some notes",
	}
	for name, in := range cases {
		if s, ok := Parse(in); ok || s != nil {
			t.Errorf("%s: expected no sections, got %v", name, s)
		}
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	s, ok := Parse("=== KDOC:v1 ===\n=== END_KDOC ===")
	if !ok {
		t.Fatal("expected well-formed empty document")
	}
	if s.Len() != 0 {
		t.Errorf("len = %d, want 0", s.Len())
	}
}

func TestParse_IgnoresTextBeforeFirstHeader(t *testing.T) {
	s, ok := Parse("=== KDOC:v1 ===\nstray line\n[TITLE]\nT\n=== END_KDOC ===")
	if !ok {
		t.Fatal("expected sections")
	}
	if s.Len() != 1 || s.Value(KeyTitle) != "T" {
		t.Errorf("unexpected sections: %v", s.Keys())
	}
}

func TestParse_DuplicateKeyKeepsFirstPosition(t *testing.T) {
	s, _ := Parse("=== KDOC:v1 ===\n[TITLE]\nA\n[SUMMARY]\nS\n[TITLE]\nB\n=== END_KDOC ===")
	if got := s.Keys(); got[0] != KeyTitle || len(got) != 2 {
		t.Fatalf("keys = %v", got)
	}
	if s.Value(KeyTitle) != "B" {
		t.Errorf("title = %q, want B", s.Value(KeyTitle))
	}
}

func TestParse_LastEndMarkerWins(t *testing.T) {
	in := "=== KDOC:v1 ===\n[CONTENT]\nline\n=== END_KDOC ===\nmore\n=== END_KDOC ==="
	s, ok := Parse(in)
	if !ok {
		t.Fatal("expected sections")
	}
	if s.Value(KeyContent) != "line\n=== END_KDOC ===\nmore" {
		t.Errorf("content = %q", s.Value(KeyContent))
	}
}

func TestSerialize_Shape(t *testing.T) {
	s := NewSections()
	s.Set(KeyTitle, "  Hello  ")
	s.Set(KeySummary, "a\r\nb")
	got := Serialize(s, []string{KeyTitle, "", KeySummary, KeyTitle})
	want := "=== KDOC:v1 ===\n[TITLE]\nHello\n\n[SUMMARY]\na\nb\n=== END_KDOC ==="
	if got != want {
		t.Errorf("serialize:\n%s\nwant:\n%s", got, want)
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	inputs := []string{
		sample,
		"=== KDOC:v1 ===\n=== END_KDOC ===",
		"=== KDOC:v1 ===\n[EMPTY]\n\n[X_EXT]\n  spaced  \n=== END_KDOC ===",
		"=== KDOC:v1 ===\n[CONTENT]\n=== KDOC:v1 ===\ninner\n=== END_KDOC ===\ntail\n=== END_KDOC ===",
	}
	for _, in := range inputs {
		first, ok := Parse(in)
		if !ok {
			t.Fatalf("parse failed: %q", in)
		}
		second, ok := Parse(Serialize(first, nil))
		if !ok {
			t.Fatalf("reparse failed: %q", in)
		}
		if !first.Equal(second) {
			t.Errorf("round trip mismatch for %q: %v vs %v", in, first.Keys(), second.Keys())
		}
	}
}

func TestOrderedKeys_CanonicalThenExtensions(t *testing.T) {
	s, _ := Parse("=== KDOC:v1 ===\n[X_EXTRA]\n1\n[TITLE]\nt\n[DOC_ID]\nd\n[Y_MORE]\n2\n=== END_KDOC ===")
	got := strings.Join(OrderedKeys(s), ",")
	if got != "DOC_ID,TITLE,X_EXTRA,Y_MORE" {
		t.Errorf("ordered = %s", got)
	}
}

func TestCanonicalize(t *testing.T) {
	out, ok := Canonicalize("=== KDOC:v1 ===\n[TITLE]\nt\n[DOC_ID]\nd\n=== END_KDOC ===")
	if !ok {
		t.Fatal("expected ok")
	}
	if !strings.HasPrefix(out, StartMarker+"\n[DOC_ID]\nd\n\n[TITLE]") {
		t.Errorf("canonical = %q", out)
	}
	if _, ok := Canonicalize("nope"); ok {
		t.Error("expected failure without markers")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(KeyAliases, "A | B,C;\n D ||")
	if strings.Join(got, "/") != "A/B/C/D" {
		t.Errorf("aliases = %v", got)
	}
	got = SplitList(KeyContent, "one, two\n\n three ")
	if len(got) != 2 || got[0] != "one, two" || got[1] != "three" {
		t.Errorf("content = %v", got)
	}
}

func TestInfo(t *testing.T) {
	if !Info(KeyTitle).SingleLine {
		t.Error("TITLE should be single-line")
	}
	if Info(KeyContent).SingleLine {
		t.Error("CONTENT should be multi-line")
	}
	if got := Info("CUSTOM"); got.Label != "CUSTOM" {
		t.Errorf("label = %q", got.Label)
	}
	if len(Catalog) != len(SectionOrder) {
		t.Errorf("catalog has %d entries, order has %d", len(Catalog), len(SectionOrder))
	}
}
