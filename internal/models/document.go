// Package models defines the domain types of the document store.
package models

import "time"

// Document is a stored knowledge document.
type Document struct {
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	Checksum   string    `json:"-"`
	Characters int       `json:"characters"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DocumentMetadata is a lightweight representation returned by list operations.
type DocumentMetadata struct {
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentSummary is one row of the document list.
type DocumentSummary struct {
	Name       string    `json:"name"`
	Title      string    `json:"title,omitempty"`
	DocType    string    `json:"doc_type,omitempty"`
	Characters int       `json:"characters"`
	Snippet    string    `json:"snippet"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Image is an image attached to a document. The bytes live in blob storage.
type Image struct {
	ID        string    `json:"id"`
	DocName   string    `json:"doc_name"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	Bytes     int64     `json:"bytes"`
	Caption   *string   `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchResult is one ranked search hit.
type SearchResult struct {
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	DocType   string   `json:"doc_type"`
	Score     float64  `json:"score"`
	FieldHits []string `json:"field_hits"`
	Snippet   string   `json:"snippet"`
}
