package kdoc

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/kdoc/internal/apperr"
)

const validDoc = `=== KDOC:v1 ===
[DOC_ID]
lemon_oil
[DOC_TYPE]
Product
[TITLE]
Lemon oil
[ALIASES]
lemon | citrus oil
[SUMMARY]
Essential oil.
[CONTENT]
- 10ml bottle
[LAST_UPDATED]
2026-02-08
=== END_KDOC ===`

func TestValidate_OK(t *testing.T) {
	r := Validate(validDoc)
	if !r.OK || len(r.Errors) != 0 {
		t.Fatalf("expected ok, got %v", r.Errors)
	}
}

func TestValidate_FormatErrorIsSingle(t *testing.T) {
	r := Validate("[DOC_ID]\nx")
	if r.OK {
		t.Fatal("expected failure")
	}
	if len(r.Errors) != 1 || r.Errors[0] != MsgFormat {
		t.Errorf("errors = %v", r.Errors)
	}
}

func TestValidate_EmptyDocumentListsEveryRequiredKey(t *testing.T) {
	r := Validate("=== KDOC:v1 ===\n=== END_KDOC ===")
	if len(r.Errors) != len(RequiredKeys) {
		t.Fatalf("errors = %v", r.Errors)
	}
	for i, key := range RequiredKeys {
		if r.Errors[i] != MissingSectionMessage(key) {
			t.Errorf("errors[%d] = %q", i, r.Errors[i])
		}
	}
}

func TestValidate_BadDocTypeAndDate(t *testing.T) {
	doc := strings.Replace(validDoc, "Product", "brochure", 1)
	doc = strings.Replace(doc, "2026-02-08", "08/02/2026", 1)
	r := Validate(doc)
	if r.OK {
		t.Fatal("expected failure")
	}
	if len(r.Errors) != 2 || r.Errors[0] != DocTypeMessage() || r.Errors[1] != MsgDate {
		t.Errorf("errors = %v", r.Errors)
	}
}

func TestValidate_AcceptsDateTime(t *testing.T) {
	doc := strings.Replace(validDoc, "2026-02-08", "2026-02-08T10:00:00Z", 1)
	if r := Validate(doc); !r.OK {
		t.Errorf("expected ok, got %v", r.Errors)
	}
}

func TestValidate_BlankSectionCountsAsMissing(t *testing.T) {
	doc := strings.Replace(validDoc, "Essential oil.", "   ", 1)
	r := Validate(doc)
	if len(r.Errors) != 1 || r.Errors[0] != MissingSectionMessage(KeySummary) {
		t.Errorf("errors = %v", r.Errors)
	}
}

func TestResult_Summary(t *testing.T) {
	r := Result{Errors: []string{"a", "b", "c"}}
	if got := r.Summary(2); got != "a | b" {
		t.Errorf("summary = %q", got)
	}
	if got := r.Summary(0); got != "a | b | c" {
		t.Errorf("summary = %q", got)
	}
}

func TestTemplate_AllTypesValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, key := range TemplateKeys() {
		if key == SynonymsTemplate {
			continue
		}
		text, err := Template(key, now)
		if err != nil {
			t.Fatalf("%s: %v", key, err)
		}
		if r := Validate(text); !r.OK {
			t.Errorf("%s: template does not validate: %v", key, r.Errors)
		}
		s, _ := Parse(text)
		if s.Value(KeyLastUpdated) != "2026-03-01" {
			t.Errorf("%s: last updated = %q", key, s.Value(KeyLastUpdated))
		}
	}
}

func TestTemplate_CoversEveryDocType(t *testing.T) {
	now := time.Now()
	for _, dt := range DocTypes {
		if _, err := Template(dt, now); err != nil {
			t.Errorf("no template for %s: %v", dt, err)
		}
	}
}

func TestTemplate_Synonyms(t *testing.T) {
	text, err := Template("synonyms", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(text, "[ALIASES]\n") || strings.Contains(text, StartMarker) {
		t.Errorf("synonyms = %q", text)
	}
}

func TestTemplate_Unknown(t *testing.T) {
	_, err := Template("brochure", time.Now())
	if !errors.Is(err, apperr.ErrUnknownTemplate) {
		t.Errorf("err = %v, want ErrUnknownTemplate", err)
	}
}

func TestFromFreeText(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	text := FromFreeText("  Lemon oil is great.\r\nUse daily.  ", now)
	s, ok := Parse(text)
	if !ok {
		t.Fatal("expected parsable skeleton")
	}
	if s.Value(KeyContent) != "Lemon oil is great.\nUse daily." {
		t.Errorf("content = %q", s.Value(KeyContent))
	}
	if s.Value(KeyDocType) != "product" || s.Value(KeyLastUpdated) != "2026-01-02" {
		t.Errorf("doc type %q, date %q", s.Value(KeyDocType), s.Value(KeyLastUpdated))
	}
	r := Validate(text)
	if r.OK {
		t.Fatal("skeleton should still need operator input")
	}
	if r.Errors[0] != MissingSectionMessage(KeyDocID) {
		t.Errorf("first error = %q", r.Errors[0])
	}
}

func TestInsert(t *testing.T) {
	if got := Insert("", "B"); got != "B" {
		t.Errorf("got %q", got)
	}
	if got := Insert("A\n\n", "B"); got != "A\n\nB" {
		t.Errorf("got %q", got)
	}
}

func TestSuggestName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	if got := SuggestName("faq", now); got != "faq_1700000000123.txt" {
		t.Errorf("got %q", got)
	}
}
