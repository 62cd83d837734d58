package client

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp decodes the date formats document hosts emit: RFC 3339, naive
// ISO date-times, bare dates and unix seconds. Unparsable values decode to
// the zero time.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if data[0] != '"' {
		if secs, err := strconv.ParseFloat(string(data), 64); err == nil {
			t.Time = time.Unix(0, int64(secs*float64(time.Second))).UTC()
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t.Time = ParseTime(s)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// ParseTime parses s with the accepted layouts; failures yield the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// DocumentSummary is one row of the document list.
type DocumentSummary struct {
	Name       string    `json:"name"`
	UpdatedAt  Timestamp `json:"updated_at"`
	Characters int       `json:"characters"`
	Snippet    string    `json:"snippet"`
}

// Document is a stored document with its content.
type Document struct {
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	UpdatedAt  Timestamp `json:"updated_at"`
	Characters int       `json:"characters"`
}

// Image is metadata for an image attached to a document.
type Image struct {
	ID        string    `json:"id"`
	DocName   string    `json:"doc_name"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	Bytes     int64     `json:"bytes"`
	CreatedAt Timestamp `json:"created_at"`
	Caption   *string   `json:"caption"`
}

// ImageUpload is an image to attach to a document.
type ImageUpload struct {
	DocName  string
	FileName string
	MimeType string
	Data     []byte
	Caption  *string
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	DocType   string   `json:"doc_type"`
	Score     float64  `json:"score"`
	FieldHits []string `json:"field_hits"`
	Snippet   string   `json:"snippet"`
}

// HostInfo describes the document host.
type HostInfo struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Documents int    `json:"documents"`
	Images    int    `json:"images"`
}
