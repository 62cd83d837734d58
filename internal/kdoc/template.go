package kdoc

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starford/kdoc/internal/apperr"
)

// SynonymsTemplate is the key of the aliases-only snippet.
const SynonymsTemplate = "synonyms"

type field struct {
	key   string
	value string
}

var templates = map[string][]field{
	"product": {
		{KeyDocID, "product_new"},
		{KeyDocType, "product"},
		{KeyTitle, "Product name"},
		{KeyAliases, "Alternative name 1 | Alternative name 2"},
		{KeyKeywords, "keyword 1, keyword 2, keyword 3"},
		{KeySummary, "Short product summary."},
		{KeyContent, "- Key benefit: ...\n- Ingredients: ...\n- Volume: ..."},
		{KeyUsage, "- Usage step 1\n- Usage step 2"},
		{KeyFAQ, "Q: Common question?\nA: Short answer."},
		{KeySafetyNote, "Avoid contact with eyes. Keep out of reach of children."},
	},
	"faq": {
		{KeyDocID, "faq_new"},
		{KeyDocType, "faq"},
		{KeyTitle, "Frequently asked questions"},
		{KeyAliases, "FAQ | Questions"},
		{KeyKeywords, "faq, support"},
		{KeySummary, "Answers to the questions customers ask most often."},
		{KeyContent, "Q: Question 1?\nA: Answer 1.\n\nQ: Question 2?\nA: Answer 2."},
		{KeySafetyNote, "Suggest contacting a human agent when unsure."},
	},
	"policy": {
		{KeyDocID, "policy_new"},
		{KeyDocType, "policy"},
		{KeyTitle, "Policy name"},
		{KeyAliases, "Policy | Rules"},
		{KeyKeywords, "policy, refund, shipping"},
		{KeySummary, "Short policy summary."},
		{KeyContent, "- Scope: ...\n- Conditions: ...\n- Process: ..."},
		{KeyRegulations, "- Rule 1\n- Rule 2"},
		{KeySafetyNote, "Apply the latest published version of this policy."},
	},
	"guide": {
		{KeyDocID, "guide_new"},
		{KeyDocType, "guide"},
		{KeyTitle, "Guide name"},
		{KeyAliases, "How to | Instructions"},
		{KeyKeywords, "guide, how to"},
		{KeySummary, "What this guide helps the user accomplish."},
		{KeyContent, "1. Step one\n2. Step two\n3. Step three"},
		{KeyUsage, "- Prerequisites: ...\n- Expected result: ..."},
		{KeySafetyNote, "Stop and ask for help if a step fails."},
	},
	"info": {
		{KeyDocID, "info_new"},
		{KeyDocType, "info"},
		{KeyTitle, "Information topic"},
		{KeyAliases, "Topic | Subject"},
		{KeyKeywords, "info, contact, opening hours"},
		{KeySummary, "Short description of the topic."},
		{KeyContent, "- Address: ...\n- Opening hours: ...\n- Contact: ..."},
	},
	"company_profile": {
		{KeyDocID, "company_profile"},
		{KeyDocType, "company_profile"},
		{KeyTitle, "Company name"},
		{KeyAliases, "Brand name | Short name"},
		{KeyKeywords, "company, brand, about us"},
		{KeySummary, "Who the company is and what it offers."},
		{KeyContent, "- Founded: ...\n- Mission: ...\n- Main products: ..."},
		{KeyServices, "- Service 1\n- Service 2"},
		{KeyDayVisit, "- Day visit package: ..."},
		{KeyStayPackage, "- Overnight package: ..."},
		{KeyRegulations, "- Visitor rules: ..."},
	},
}

// TemplateKeys returns the available template keys, sorted, including the
// synonyms snippet.
func TemplateKeys() []string {
	keys := make([]string, 0, len(templates)+1)
	for k := range templates {
		keys = append(keys, k)
	}
	keys = append(keys, SynonymsTemplate)
	sort.Strings(keys)
	return keys
}

// Template returns the skeleton document for key with LAST_UPDATED set to
// the date of now. The synonyms key yields a bare [ALIASES] block.
func Template(key string, now time.Time) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == SynonymsTemplate {
		return "[" + KeyAliases + "]\nName 1 | Name 2 | Common misspelling | Spoken variant", nil
	}
	fields, ok := templates[key]
	if !ok {
		return "", fmt.Errorf("template %q: %w", key, apperr.ErrUnknownTemplate)
	}
	sections := NewSections()
	order := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		sections.Set(f.key, f.value)
		order = append(order, f.key)
	}
	sections.Set(KeyLastUpdated, now.UTC().Format(DateLayout))
	order = append(order, KeyLastUpdated)
	return Serialize(sections, order), nil
}

// FromFreeText wraps unstructured text into a KDOC skeleton. The text goes
// into CONTENT unchanged apart from trimming; required sections the operator
// still has to fill are left empty.
func FromFreeText(raw string, now time.Time) string {
	sections := NewSections()
	for _, k := range []string{KeyDocID, KeyDocType, KeyTitle, KeyAliases, KeyKeywords, KeySummary, KeyContent, KeyUsage, KeyFAQ, KeySafetyNote, KeyLastUpdated} {
		sections.Set(k, "")
	}
	sections.Set(KeyDocType, "product")
	sections.Set(KeyContent, strings.TrimSpace(crlf.Replace(raw)))
	sections.Set(KeyLastUpdated, now.UTC().Format(DateLayout))
	return Serialize(sections, nil)
}

// Insert appends block to current, separated by a blank line.
func Insert(current, block string) string {
	current = strings.TrimRight(current, " \t\r\n")
	if current == "" {
		return block
	}
	return current + "\n\n" + block
}

// SuggestName returns the default file name for a document created from the
// template key.
func SuggestName(key string, now time.Time) string {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "document"
	}
	return fmt.Sprintf("%s_%d.txt", key, now.UnixMilli())
}
