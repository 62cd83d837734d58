package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/starford/kdoc/internal/apperr"
)

const maxJSONBytes = 10 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// SaveDocumentRequest is the body of POST /api/documents/text.
type SaveDocumentRequest struct {
	Name    string `json:"name" example:"faq_shipping.txt" validate:"required,max=255"`
	OldName string `json:"old_name" example:"faq_old.txt" validate:"max=255"`
	Text    string `json:"text" validate:"required"`
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query string `json:"query" example:"lemon oil" validate:"required"`
	TopK  int    `json:"top_k" example:"5"`
}

// ImageImportRequest is the JSON form of POST /api/documents/image.
type ImageImportRequest struct {
	Name       string  `json:"name" validate:"required"`
	FileName   string  `json:"file_name"`
	MimeType   string  `json:"mime_type"`
	DataBase64 string  `json:"data_base64" validate:"required,base64"`
	Caption    *string `json:"caption"`
}

// decodeJSON reads a size-limited JSON body into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: body exceeds %d bytes", apperr.ErrTooLarge, limit)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", apperr.ErrInvalidPayload)
		}
		return fmt.Errorf("%w: invalid JSON body", apperr.ErrInvalidPayload)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrInvalidPayload, describe(err))
	}
	return nil
}

// describe turns validator errors into "field: rule" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field(), fe.Tag())
	}
	return strings.Join(parts, ", ")
}
