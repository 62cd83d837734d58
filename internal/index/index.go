package index

import "github.com/starford/kdoc/internal/models"

// DocumentIndex defines the interface for document indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type DocumentIndex interface {
	UpsertDocument(r DocumentRow, content string) error
	DeleteDocument(name string) error
	DeleteAllDocuments() (int, error)
	GetChecksum(name string) (string, error)
	GetDocument(name string) (*DocumentRow, error)
	ListDocuments() ([]DocumentRow, error)
	AllChecksums() (map[string]string, error)
	Search(query string, topK int) ([]models.SearchResult, error)

	InsertImage(img models.Image) error
	GetImage(id string) (*models.Image, error)
	ListImages(docName string) ([]models.Image, error)
	DeleteImage(id string) error
	MoveImages(oldDoc, newDoc string) (int, error)

	Counts() (documents, images int, err error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
