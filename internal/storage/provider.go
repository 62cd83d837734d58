// Package storage defines the file-system abstraction of the document store.
package storage

import "github.com/starford/kdoc/internal/models"

// Provider is the interface for document and image blob operations.
// Document names are plain file names; see ValidateName.
type Provider interface {
	// List returns metadata for every document file.
	List() ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the named document.
	Read(name string) ([]byte, error)
	// Write atomically writes content to the named document.
	Write(name string, content []byte) error
	// Delete removes the named document.
	Delete(name string) error
	// Move renames a document.
	Move(oldName, newName string) error

	// WriteBlob atomically stores image bytes under id.
	WriteBlob(id string, data []byte) error
	// ReadBlob returns the image bytes stored under id.
	ReadBlob(id string) ([]byte, error)
	// DeleteBlob removes the image bytes stored under id.
	DeleteBlob(id string) error
}
