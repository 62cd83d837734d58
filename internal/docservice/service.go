// Package docservice coordinates document storage, the index and change
// events for the reference document store.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/starford/kdoc/internal/apperr"
	"github.com/starford/kdoc/internal/checksum"
	"github.com/starford/kdoc/internal/index"
	"github.com/starford/kdoc/internal/models"
	"github.com/starford/kdoc/internal/sse"
	"github.com/starford/kdoc/internal/storage"
)

// DefaultMaxImageBytes caps a single image upload.
const DefaultMaxImageBytes = 8 << 20

// ImageMimeTypes are the accepted image formats.
var ImageMimeTypes = []string{"image/jpeg", "image/png", "image/webp"}

// Events receives change notifications. *sse.Broker implements it.
type Events interface {
	PublishDocumentEvent(kind, name string)
	Publish(event sse.Event)
}

type noEvents struct{}

func (noEvents) PublishDocumentEvent(string, string) {}
func (noEvents) Publish(sse.Event)                   {}

// Options configures a Service. Zero values select defaults.
type Options struct {
	MaxImageBytes int64
	Events        Events
	Logger        *slog.Logger
	Version       string
	Now           func() time.Time
}

// Info is the host status reported by GET /info.
type Info struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Documents int    `json:"documents"`
	Images    int    `json:"images"`
}

// Service coordinates storage and index operations.
type Service struct {
	store    storage.Provider
	db       index.DocumentIndex
	maxImage int64
	events   Events
	logger   *slog.Logger
	version  string
	now      func() time.Time
}

// NewService creates a new document service.
func NewService(store storage.Provider, db index.DocumentIndex, opts Options) *Service {
	s := &Service{
		store:    store,
		db:       db,
		maxImage: opts.MaxImageBytes,
		events:   opts.Events,
		logger:   opts.Logger,
		version:  opts.Version,
		now:      opts.Now,
	}
	if s.maxImage <= 0 {
		s.maxImage = DefaultMaxImageBytes
	}
	if s.events == nil {
		s.events = noEvents{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.version == "" {
		s.version = "dev"
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// MaxImageBytes returns the configured image size cap.
func (s *Service) MaxImageBytes() int64 { return s.maxImage }

// List returns every document, most recently updated first.
func (s *Service) List(_ context.Context) ([]models.DocumentSummary, error) {
	rows, err := s.db.ListDocuments()
	if err != nil {
		return nil, err
	}
	out := make([]models.DocumentSummary, len(rows))
	for i, r := range rows {
		out[i] = r.Summary()
	}
	return out, nil
}

// Get reads a document from storage.
func (s *Service) Get(_ context.Context, name string) (*models.Document, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}
	data, err := s.store.Read(name)
	if err != nil {
		return nil, err
	}
	doc := buildDocument(name, data, time.Time{})
	if row, err := s.db.GetDocument(name); err == nil {
		doc.UpdatedAt = row.UpdatedAt
	}
	return doc, nil
}

// Save writes text under name. When oldName is set and differs from name the
// document is renamed: the new file is written first, then the old one is
// removed and its images follow the new name. An existing document at name is
// overwritten.
func (s *Service) Save(_ context.Context, name, oldName, text string) (*models.Document, error) {
	name = strings.TrimSpace(name)
	oldName = strings.TrimSpace(oldName)
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", apperr.ErrInvalidPayload)
	}
	renamed := oldName != "" && oldName != name
	if renamed {
		if err := storage.ValidateName(oldName); err != nil {
			return nil, err
		}
	}

	data := []byte(text)
	now := s.now()
	if err := s.store.Write(name, data); err != nil {
		return nil, err
	}
	if err := index.IndexDocument(s.db, name, data, now); err != nil {
		return nil, err
	}

	if renamed {
		if err := s.store.Delete(oldName); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("rename: %w", err)
		}
		if err := s.db.DeleteDocument(oldName); err != nil {
			return nil, fmt.Errorf("rename: %w", err)
		}
		moved, err := s.db.MoveImages(oldName, name)
		if err != nil {
			return nil, fmt.Errorf("rename: %w", err)
		}
		s.logger.Info("document renamed",
			slog.String("from", oldName),
			slog.String("to", name),
			slog.Int("images_moved", moved))
		s.events.PublishDocumentEvent(sse.KindDeleted, oldName)
	}

	s.events.PublishDocumentEvent(sse.KindSaved, name)
	return buildDocument(name, data, now), nil
}

// DeleteAll removes every document and reports how many were removed.
// Images are kept; they stay addressable by id.
func (s *Service) DeleteAll(_ context.Context) (int, error) {
	metas, err := s.store.List()
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, m := range metas {
		if err := s.store.Delete(m.Name); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return deleted, err
		}
		deleted++
	}
	if _, err := s.db.DeleteAllDocuments(); err != nil {
		return deleted, err
	}
	s.logger.Info("documents cleared", slog.Int("deleted", deleted))
	s.events.Publish(sse.Event{Type: sse.TypeDocumentsCleared, Data: map[string]int{"deleted": deleted}})
	return deleted, nil
}

// Search ranks documents against query; topK is clamped to [1, 10].
func (s *Service) Search(_ context.Context, query string, topK int) ([]models.SearchResult, error) {
	return s.db.Search(query, topK)
}

// Info reports host status and counts.
func (s *Service) Info(_ context.Context) (*Info, error) {
	docs, images, err := s.db.Counts()
	if err != nil {
		return nil, err
	}
	return &Info{Status: "ok", Version: s.version, Documents: docs, Images: images}, nil
}

// ImageUpload is an image to attach to a document.
type ImageUpload struct {
	DocName  string
	FileName string
	MimeType string
	Caption  string
	Data     []byte
}

// Images lists the images attached to a document.
func (s *Service) Images(_ context.Context, docName string) ([]models.Image, error) {
	if err := storage.ValidateName(docName); err != nil {
		return nil, err
	}
	return s.db.ListImages(docName)
}

// AddImage stores an image for an existing document. The format is sniffed
// from the bytes; the declared mime type is only a fallback label.
func (s *Service) AddImage(_ context.Context, up ImageUpload) (*models.Image, error) {
	if err := storage.ValidateName(up.DocName); err != nil {
		return nil, err
	}
	if len(up.Data) == 0 {
		return nil, fmt.Errorf("%w: image data is required", apperr.ErrInvalidPayload)
	}
	if int64(len(up.Data)) > s.maxImage {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", apperr.ErrTooLarge, len(up.Data), s.maxImage)
	}
	mime, err := DetectImageMime(up.Data)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.GetDocument(up.DocName); err != nil {
		return nil, err
	}

	img := models.Image{
		ID:        uuid.NewString(),
		DocName:   up.DocName,
		FileName:  cleanFileName(up.FileName),
		MimeType:  mime,
		Bytes:     int64(len(up.Data)),
		CreatedAt: s.now(),
	}
	if c := strings.TrimSpace(up.Caption); c != "" {
		img.Caption = &c
	}
	if err := s.store.WriteBlob(img.ID, up.Data); err != nil {
		return nil, err
	}
	if err := s.db.InsertImage(img); err != nil {
		if delErr := s.store.DeleteBlob(img.ID); delErr != nil {
			s.logger.Warn("orphan blob left behind", slog.String("id", img.ID), slog.String("error", delErr.Error()))
		}
		return nil, err
	}
	s.events.Publish(sse.Event{Type: sse.TypeImageAdded, Data: img})
	return &img, nil
}

// ImageContent returns an image's metadata and bytes.
func (s *Service) ImageContent(_ context.Context, id string) (*models.Image, []byte, error) {
	img, err := s.db.GetImage(id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.store.ReadBlob(id)
	if err != nil {
		return nil, nil, err
	}
	return img, data, nil
}

// DeleteImage removes an image and its bytes.
func (s *Service) DeleteImage(_ context.Context, id string) error {
	img, err := s.db.GetImage(id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteImage(id); err != nil {
		return err
	}
	if err := s.store.DeleteBlob(id); err != nil {
		s.logger.Warn("delete blob failed", slog.String("id", id), slog.String("error", err.Error()))
	}
	s.events.Publish(sse.Event{Type: sse.TypeImageDeleted, Data: map[string]string{"id": id, "doc_name": img.DocName}})
	return nil
}

// DetectImageMime sniffs data and returns its mime type when it is one of
// ImageMimeTypes.
func DetectImageMime(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	for _, allowed := range ImageMimeTypes {
		if mt.Is(allowed) {
			return allowed, nil
		}
	}
	return "", fmt.Errorf("%w: %s", apperr.ErrUnsupportedMedia, mt.String())
}

func cleanFileName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	name = filepath.Base(name)
	if name == "" || name == "." || name == "/" {
		return "image"
	}
	return name
}

func buildDocument(name string, data []byte, updatedAt time.Time) *models.Document {
	content := string(data)
	return &models.Document{
		Name:       name,
		Content:    content,
		Checksum:   checksum.Sum(data),
		Characters: utf8.RuneCountInString(content),
		UpdatedAt:  updatedAt,
	}
}
