package console

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/starford/kdoc/internal/apperr"
	"github.com/starford/kdoc/internal/client"
)

// imageTypes are the upload formats the host accepts.
var imageTypes = []string{"image/jpeg", "image/png", "image/webp"}

// sniffImage returns the detected image mime type, or "" when data is not an
// accepted format.
func sniffImage(data []byte) string {
	m := mimetype.Detect(data)
	for _, t := range imageTypes {
		if m.Is(t) {
			return t
		}
	}
	return ""
}

// Images returns the cached image list of the buffer's document.
func (s *Session) Images() []client.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.images)
}

func (s *Session) loadImages(ctx context.Context, doc string) error {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		s.mu.Lock()
		s.images = nil
		s.mu.Unlock()
		return nil
	}
	images, err := s.remote.ListImages(ctx, doc)
	if err != nil {
		s.logger.Warn("image list unavailable", slog.String("doc", doc), slog.String("error", err.Error()))
		images = nil
	}
	s.mu.Lock()
	s.images = images
	s.mu.Unlock()
	return err
}

// RefreshImages reloads the image list of the buffer's document.
func (s *Session) RefreshImages(ctx context.Context) ([]client.Image, error) {
	name, _ := s.Buffer()
	if strings.TrimSpace(name) == "" {
		s.status(ToneInfo, "No document name to list images for.")
		return nil, nil
	}
	if err := s.loadImages(ctx, name); err != nil {
		return nil, s.fail("Could not load images", err)
	}
	images := s.Images()
	if len(images) == 0 {
		s.status(ToneInfo, "The document has no images.")
	} else {
		s.status(ToneInfo, fmt.Sprintf("Loaded %d images.", len(images)))
	}
	return images, nil
}

// UploadImage attaches an image to the buffer's document. The format is
// sniffed from the bytes and must be JPEG, PNG or WEBP within the size cap.
func (s *Session) UploadImage(ctx context.Context, fileName string, data []byte, caption *string) (*client.Image, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.leave()
	doc, _ := s.Buffer()
	doc = strings.TrimSpace(doc)
	if doc == "" {
		s.status(ToneWarn, "Enter a document name and save it before uploading images.")
		return nil, apperr.ErrInvalidName
	}
	mime := sniffImage(data)
	if mime == "" {
		s.status(ToneWarn, fmt.Sprintf("Image %q is not JPEG, PNG or WEBP.", fileName))
		return nil, fmt.Errorf("%w: %s", apperr.ErrUnsupportedMedia, fileName)
	}
	if int64(len(data)) > s.maxImage {
		s.status(ToneWarn, fmt.Sprintf("Image %q exceeds the %d MB limit.", fileName, s.maxImage>>20))
		return nil, fmt.Errorf("%w: %s", apperr.ErrTooLarge, fileName)
	}

	s.status(ToneLoading, "Uploading image...")
	img, err := s.remote.UploadImage(ctx, client.ImageUpload{
		DocName:  doc,
		FileName: fileName,
		MimeType: mime,
		Data:     data,
		Caption:  caption,
	})
	if err != nil {
		return nil, s.fail("Image upload failed", err)
	}
	_ = s.loadImages(ctx, doc)
	s.status(ToneOK, "Image uploaded.")
	return img, nil
}

// DeleteImage removes an image and reloads the list.
func (s *Session) DeleteImage(ctx context.Context, id string) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()
	if err := s.remote.DeleteImage(ctx, id); err != nil {
		return s.fail("Image not deleted", err)
	}
	name, _ := s.Buffer()
	_ = s.loadImages(ctx, name)
	s.status(ToneOK, "Image deleted.")
	return nil
}

// Search runs a ranked search on the host. topK is clamped to 1..10.
func (s *Session) Search(ctx context.Context, query string, topK int) ([]client.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		s.status(ToneWarn, "Enter a search query.")
		return nil, fmt.Errorf("%w: empty query", apperr.ErrValidation)
	}
	results, err := s.remote.Search(ctx, query, client.ClampTopK(topK))
	if err != nil {
		return nil, s.fail("Search failed", err)
	}
	s.status(ToneOK, fmt.Sprintf("Found %d results.", len(results)))
	return results, nil
}
