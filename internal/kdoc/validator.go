package kdoc

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Error messages reported by Validate.
const (
	MsgFormat = "KDOC v1 format not recognized: the " + StartMarker + " and " + EndMarker + " lines are required"
	MsgDate   = "[" + KeyLastUpdated + "] must be an ISO-8601 date (e.g. 2026-02-08)"
)

// Result is the outcome of Validate. Errors are in a fixed, deterministic order.
type Result struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors"`
}

var dateLayouts = []string{DateLayout, time.RFC3339, "2006-01-02T15:04:05"}

var docTypeValues = func() []interface{} {
	out := make([]interface{}, len(DocTypes))
	for i, v := range DocTypes {
		out[i] = v
	}
	return out
}()

var isoDate = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return errors.New(MsgDate)
})

// Validate checks text against the KDOC v1 rules. Checks are independent:
// every failing rule contributes one message. A text without valid markers
// yields exactly one format error.
func Validate(text string) Result {
	sections, ok := Parse(text)
	if !ok {
		return Result{Errors: []string{MsgFormat}}
	}

	errs := []string{}
	for _, key := range RequiredKeys {
		v := strings.TrimSpace(sections.Value(key))
		if err := validation.Validate(v, validation.Required); err != nil {
			errs = append(errs, MissingSectionMessage(key))
		}
	}

	docType := strings.ToLower(strings.TrimSpace(sections.Value(KeyDocType)))
	if err := validation.Validate(docType, validation.In(docTypeValues...)); err != nil {
		errs = append(errs, DocTypeMessage())
	}

	updated := strings.TrimSpace(sections.Value(KeyLastUpdated))
	if err := validation.Validate(updated, isoDate); err != nil {
		errs = append(errs, MsgDate)
	}

	return Result{OK: len(errs) == 0, Errors: errs}
}

// MissingSectionMessage is reported for an absent or blank required section.
func MissingSectionMessage(key string) string {
	return fmt.Sprintf("missing required section [%s]", key)
}

// DocTypeMessage is reported when DOC_TYPE is outside DocTypes.
func DocTypeMessage() string {
	return fmt.Sprintf("[%s] must be one of: %s", KeyDocType, strings.Join(DocTypes, ", "))
}

// Summary joins up to n errors for a one-line status message.
func (r Result) Summary(n int) string {
	if n <= 0 || n > len(r.Errors) {
		n = len(r.Errors)
	}
	return strings.Join(r.Errors[:n], " | ")
}
