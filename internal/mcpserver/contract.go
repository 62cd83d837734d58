package mcpserver

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/kdoc/internal/kdoc"
)

// FormatURI is the resource URI of the format contract.
const FormatURI = "kdoc://format"

// FormatContract describes the KDOC v1 format that LLM consumers must follow
// when creating or updating documents. It is generated from the section
// catalog so it never drifts from the validator.
var FormatContract = buildContract()

var exampleDate = time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)

func buildContract() string {
	var b strings.Builder
	b.WriteString("# KDOC v1 Format Contract\n\n")
	b.WriteString("Every knowledge document MUST be plain UTF-8 text wrapped in marker lines:\n\n")
	fmt.Fprintf(&b, "    %s\n    ...sections...\n    %s\n\n", kdoc.StartMarker, kdoc.EndMarker)
	b.WriteString("## Rules\n\n")
	b.WriteString("1. Only text between the start and end markers is read. Text outside is ignored.\n")
	b.WriteString("2. A line containing only `[KEY]` (uppercase letters and underscores) opens a section.\n")
	b.WriteString("   The section body runs until the next header or the end marker.\n")
	fmt.Fprintf(&b, "3. Required sections (non-empty): %s.\n", bracketed(kdoc.RequiredKeys))
	fmt.Fprintf(&b, "4. `[%s]` is one of: %s.\n", kdoc.KeyDocType, strings.Join(kdoc.DocTypes, ", "))
	fmt.Fprintf(&b, "5. `[%s]` is an ISO-8601 date such as %s.\n", kdoc.KeyLastUpdated, exampleDate.Format(kdoc.DateLayout))
	b.WriteString("6. List sections (aliases, keywords) separate items with `|`, `,`, `;` or new lines.\n")
	b.WriteString("7. Unknown uppercase sections are kept as extensions.\n\n")

	b.WriteString("## Sections\n\n")
	b.WriteString("| Key | Label | Required | Hint |\n|---|---|---|---|\n")
	required := make(map[string]bool, len(kdoc.RequiredKeys))
	for _, k := range kdoc.RequiredKeys {
		required[k] = true
	}
	for _, s := range kdoc.Catalog {
		req := ""
		if required[s.Key] {
			req = "yes"
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", s.Key, s.Label, req, s.Hint)
	}

	b.WriteString("\n## Example\n\n```\n")
	example, _ := kdoc.Template("faq", exampleDate)
	b.WriteString(example)
	b.WriteString("\n```\n\nUse the `get_template` tool for a skeleton of any document type and ")
	b.WriteString("`validate_kdoc` before `save_document`.\n")
	return b.String()
}

func bracketed(keys []string) string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = "`[" + k + "]`"
	}
	return strings.Join(out, ", ")
}
