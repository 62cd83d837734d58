// Package kdoc implements the KDOC v1 section format: parsing, serialization,
// validation and document templates.
//
// A KDOC document looks like:
//
//	=== KDOC:v1 ===
//	[DOC_ID]
//	faq_shipping
//
//	[TITLE]
//	Shipping questions
//	=== END_KDOC ===
//
// Only the text between the start and end marker lines is parsed. Each line of
// the form "[KEY]" (uppercase letters and underscores) opens a section.
package kdoc

// Document markers.
const (
	StartMarker = "=== KDOC:v1 ==="
	EndMarker   = "=== END_KDOC ==="
)

// Section keys.
const (
	KeyDocID       = "DOC_ID"
	KeyDocType     = "DOC_TYPE"
	KeyTitle       = "TITLE"
	KeyAliases     = "ALIASES"
	KeyKeywords    = "KEYWORDS"
	KeySummary     = "SUMMARY"
	KeyContent     = "CONTENT"
	KeyServices    = "SERVICES"
	KeyDayVisit    = "DAY_VISIT"
	KeyStayPackage = "STAY_PACKAGE"
	KeyRegulations = "REGULATIONS"
	KeyUsage       = "USAGE"
	KeyFAQ         = "FAQ"
	KeySafetyNote  = "SAFETY_NOTE"
	KeyLastUpdated = "LAST_UPDATED"
)

// DateLayout is the canonical LAST_UPDATED format.
const DateLayout = "2006-01-02"

// SectionOrder is the canonical order of known sections.
var SectionOrder = []string{
	KeyDocID,
	KeyDocType,
	KeyTitle,
	KeyAliases,
	KeyKeywords,
	KeySummary,
	KeyContent,
	KeyServices,
	KeyDayVisit,
	KeyStayPackage,
	KeyRegulations,
	KeyUsage,
	KeyFAQ,
	KeySafetyNote,
	KeyLastUpdated,
}

// RequiredKeys must be present and non-empty for a document to be saved.
var RequiredKeys = []string{
	KeyDocID,
	KeyDocType,
	KeyTitle,
	KeyAliases,
	KeySummary,
	KeyContent,
	KeyLastUpdated,
}

// DocTypes is the closed set of accepted DOC_TYPE values (compared lowercase).
var DocTypes = []string{"product", "faq", "policy", "guide", "info", "company_profile"}

// SectionInfo describes a known section for editors and format contracts.
type SectionInfo struct {
	Key        string
	Label      string
	Hint       string
	SingleLine bool
}

// Catalog lists every known section in canonical order.
var Catalog = []SectionInfo{
	{KeyDocID, "Document ID", "Unique identifier, e.g. lemon_essential_oil", true},
	{KeyDocType, "Document type", "One of: product | faq | policy | guide | info | company_profile", true},
	{KeyTitle, "Title", "Official display name of the document", true},
	{KeyAliases, "Aliases", "Alternative names, separated by | or new lines", false},
	{KeyKeywords, "Keywords", "Search keywords, separated by commas", false},
	{KeySummary, "Summary", "Short summary, 1-3 sentences", false},
	{KeyContent, "Content", "Detailed information, bullet lists allowed", false},
	{KeyServices, "Services", "Highlighted services or activities (bullets)", false},
	{KeyDayVisit, "Day visit", "Day-trip package information", false},
	{KeyStayPackage, "Stay package", "Overnight package information", false},
	{KeyRegulations, "Regulations", "Rules that apply when using the service", false},
	{KeyUsage, "Usage", "How to use or operate", false},
	{KeyFAQ, "FAQ", "Question / answer pairs", false},
	{KeySafetyNote, "Safety note", "Important caveats and scope limits", false},
	{KeyLastUpdated, "Last updated", "ISO-8601 date, e.g. 2026-02-08", true},
}

// Info returns catalog metadata for key. Unknown keys get a generic entry.
func Info(key string) SectionInfo {
	for _, s := range Catalog {
		if s.Key == key {
			return s
		}
	}
	return SectionInfo{Key: key, Label: key, Hint: "Extension section"}
}

func isKnown(key string) bool {
	for _, k := range SectionOrder {
		if k == key {
			return true
		}
	}
	return false
}
