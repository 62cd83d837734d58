// Package transfer encodes and decodes the JSON bundle used to back up and
// restore a whole document collection with its organization state.
package transfer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/starford/kdoc/internal/apperr"
	"github.com/starford/kdoc/internal/organize"
)

const (
	Schema = "voicebot_webhost_export_v2"
	Source = "voicebot_web_host"
)

// Document is an exported document.
type Document struct {
	Name       string `json:"name"`
	Content    string `json:"content"`
	UpdatedAt  string `json:"updated_at"`
	Characters int    `json:"characters"`
}

// Image is an exported image with its bytes inlined as base64.
type Image struct {
	DocName    string  `json:"doc_name"`
	FileName   string  `json:"file_name"`
	MimeType   string  `json:"mime_type"`
	Bytes      int64   `json:"bytes"`
	CreatedAt  string  `json:"created_at"`
	Caption    *string `json:"caption"`
	DataBase64 string  `json:"data_base64"`
}

// UIState carries editor preferences.
type UIState struct {
	ViewMode string `json:"viewMode"`
}

// Payload is the export bundle.
type Payload struct {
	Schema        string               `json:"schema"`
	ExportedAt    time.Time            `json:"exported_at"`
	Source        string               `json:"source"`
	Documents     []Document           `json:"documents"`
	Images        []Image              `json:"images"`
	ImageCount    int                  `json:"image_count"`
	IncludeImages bool                 `json:"include_images"`
	FolderState   organize.FolderState `json:"folderState"`
	NoteTagState  organize.TagState    `json:"noteTagState"`
	UIState       UIState              `json:"uiState"`
}

// Encode fills the schema fields and renders the bundle as indented JSON.
func Encode(p Payload) ([]byte, error) {
	p.Schema = Schema
	p.Source = Source
	if p.Documents == nil {
		p.Documents = []Document{}
	}
	if p.Images == nil {
		p.Images = []Image{}
	}
	if p.NoteTagState == nil {
		p.NoteTagState = organize.TagState{}
	}
	p.ImageCount = len(p.Images)
	p.ExportedAt = p.ExportedAt.UTC()
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("transfer: encode: %w", err)
	}
	return data, nil
}

// FileName returns the conventional bundle name for now.
func FileName(now time.Time) string {
	return "voicebot-tri-thuc-" + now.Format("20060102-150405") + ".json"
}

// ImportDocument is a document ready to be written.
type ImportDocument struct {
	Name string
	Text string
}

// ImportImage is an image ready to be uploaded.
type ImportImage struct {
	DocName  string
	FileName string
	MimeType string
	Caption  *string
	Data     []byte
}

// Bundle is a decoded, normalized import.
type Bundle struct {
	Documents   []ImportDocument
	Images      []ImportImage
	FolderState organize.FolderState
	TagState    organize.TagState
	// ViewMode is empty when the bundle carries no preference.
	ViewMode string
	// SkippedImages counts images dropped during normalization.
	SkippedImages int
}

// Decode parses and normalizes an import bundle. It fails with
// apperr.ErrInvalidPayload when the input is not a JSON object or holds no
// usable document, before anything else is inspected.
func Decode(raw []byte) (*Bundle, error) {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidPayload, err)
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: not a JSON object", apperr.ErrInvalidPayload)
	}

	b := &Bundle{}
	docs, _ := obj["documents"].([]any)
	names := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		m, _ := d.(map[string]any)
		name := strings.TrimSpace(str(m["name"]))
		text := ""
		if c, has := m["content"]; has && c != nil {
			text = str(c)
		} else {
			text = str(m["text"])
		}
		if name == "" || strings.TrimSpace(text) == "" {
			continue
		}
		b.Documents = append(b.Documents, ImportDocument{Name: name, Text: text})
		names[name] = struct{}{}
	}
	if len(b.Documents) == 0 {
		return nil, fmt.Errorf("%w: no valid documents", apperr.ErrInvalidPayload)
	}

	images, _ := obj["images"].([]any)
	for _, i := range images {
		m, _ := i.(map[string]any)
		img, ok := normalizeImage(m)
		if !ok {
			b.SkippedImages++
			continue
		}
		if _, known := names[img.DocName]; !known {
			b.SkippedImages++
			continue
		}
		b.Images = append(b.Images, img)
	}

	b.FolderState = organize.FolderStateFrom(orEmpty(obj["folderState"]))
	b.TagState = organize.TagStateFrom(orEmpty(obj["noteTagState"]))
	if ui, ok := obj["uiState"].(map[string]any); ok {
		b.ViewMode = strings.TrimSpace(str(ui["viewMode"]))
	}
	return b, nil
}

func normalizeImage(m map[string]any) (ImportImage, bool) {
	docName := strings.TrimSpace(firstNonEmpty(str(m["doc_name"]), str(m["name"])))
	data := strings.TrimSpace(firstNonEmpty(str(m["data_base64"]), str(m["data"])))
	if docName == "" || data == "" {
		return ImportImage{}, false
	}
	bytes, err := base64.StdEncoding.DecodeString(data)
	if err != nil || len(bytes) == 0 {
		return ImportImage{}, false
	}
	img := ImportImage{
		DocName:  docName,
		FileName: strings.TrimSpace(str(m["file_name"])),
		MimeType: strings.TrimSpace(str(m["mime_type"])),
		Data:     bytes,
	}
	if img.FileName == "" {
		img.FileName = "image"
	}
	if c := str(m["caption"]); c != "" {
		img.Caption = &c
	}
	return img, true
}

func orEmpty(v any) any {
	if v == nil {
		return map[string]any{}
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func str(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64, bool:
		return fmt.Sprint(x)
	}
	return ""
}
