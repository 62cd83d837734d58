package console

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/kdoc/internal/apperr"
	"github.com/starford/kdoc/internal/client"
	"github.com/starford/kdoc/internal/organize"
	"github.com/starford/kdoc/internal/transfer"
)

// ImportResult counts what an import wrote.
type ImportResult struct {
	Documents     int
	Images        int
	SkippedImages int
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Export bundles every document with the organization state and view mode.
// With includeImages each image is downloaded and inlined as base64. It
// returns the encoded bundle and its suggested file name.
func (s *Session) Export(ctx context.Context, includeImages bool) ([]byte, string, error) {
	if err := s.enter(); err != nil {
		return nil, "", err
	}
	defer s.leave()
	s.status(ToneLoading, "Preparing export...")
	docs, err := s.collectDocuments(ctx)
	if err != nil {
		return nil, "", s.fail("Export failed", err)
	}
	var images []transfer.Image
	if includeImages {
		if images, err = s.collectImages(ctx, docs); err != nil {
			return nil, "", s.fail("Export failed", err)
		}
	}
	folders, tags := s.org.Snapshot()
	now := s.now()
	data, err := transfer.Encode(transfer.Payload{
		ExportedAt:    now,
		Documents:     docs,
		Images:        images,
		IncludeImages: includeImages,
		FolderState:   folders,
		NoteTagState:  tags,
		UIState:       transfer.UIState{ViewMode: s.ViewMode()},
	})
	if err != nil {
		return nil, "", s.fail("Export failed", err)
	}
	msg := fmt.Sprintf("Exported %d documents.", len(docs))
	if len(images) > 0 {
		msg = fmt.Sprintf("Exported %d documents, %d images.", len(docs), len(images))
	}
	s.status(ToneOK, msg)
	return data, transfer.FileName(now), nil
}

func (s *Session) collectDocuments(ctx context.Context) ([]transfer.Document, error) {
	list, err := s.remote.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]transfer.Document, 0, len(list))
	for _, item := range list {
		doc, err := s.remote.GetDocument(ctx, item.Name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", item.Name, err)
		}
		out = append(out, transfer.Document{
			Name:       doc.Name,
			Content:    doc.Content,
			UpdatedAt:  formatTime(doc.UpdatedAt.Time),
			Characters: doc.Characters,
		})
	}
	return out, nil
}

func (s *Session) collectImages(ctx context.Context, docs []transfer.Document) ([]transfer.Image, error) {
	var out []transfer.Image
	for i, doc := range docs {
		s.status(ToneLoading, fmt.Sprintf("Checking images (%d/%d)...", i+1, len(docs)))
		list, err := s.remote.ListImages(ctx, doc.Name)
		if err != nil {
			return nil, fmt.Errorf("images of %s: %w", doc.Name, err)
		}
		for _, img := range list {
			if strings.TrimSpace(img.ID) == "" {
				continue
			}
			data, err := s.remote.ImageContent(ctx, img.ID)
			if err != nil {
				return nil, fmt.Errorf("image %s: %w", img.ID, err)
			}
			fileName := strings.TrimSpace(img.FileName)
			if fileName == "" {
				fileName = "image"
			}
			out = append(out, transfer.Image{
				DocName:    doc.Name,
				FileName:   fileName,
				MimeType:   img.MimeType,
				Bytes:      img.Bytes,
				CreatedAt:  formatTime(img.CreatedAt.Time),
				Caption:    img.Caption,
				DataBase64: base64.StdEncoding.EncodeToString(data),
			})
		}
	}
	return out, nil
}

// Import replaces the host content and the local organization state with a
// bundle. An invalid bundle fails before anything is deleted. Other mutating
// operations are refused while it runs.
func (s *Session) Import(ctx context.Context, raw []byte, includeImages bool) (*ImportResult, error) {
	if !s.gate.TryLock() {
		if s.importing.Load() {
			s.status(ToneInfo, "Import in progress, try again when it finishes.")
			return nil, apperr.ErrImportInProgress
		}
		s.status(ToneInfo, "Another operation is in progress, try again when it finishes.")
		return nil, apperr.ErrBusy
	}
	s.importing.Store(true)
	defer func() {
		s.importing.Store(false)
		s.gate.Unlock()
	}()

	s.status(ToneLoading, "Reading import file...")
	bundle, err := transfer.Decode(raw)
	if err != nil {
		return nil, s.fail("Import failed", err)
	}

	s.status(ToneLoading, "Deleting existing documents...")
	if _, err := s.remote.DeleteAllDocuments(ctx); err != nil {
		return nil, s.fail("Import failed", err)
	}
	s.status(ToneLoading, fmt.Sprintf("Importing %d documents...", len(bundle.Documents)))
	for _, d := range bundle.Documents {
		if _, err := s.remote.SaveDocument(ctx, d.Name, "", d.Text); err != nil {
			return nil, s.fail("Import failed", fmt.Errorf("document %s: %w", d.Name, err))
		}
	}

	res := &ImportResult{Documents: len(bundle.Documents), SkippedImages: bundle.SkippedImages}
	if includeImages {
		for i, img := range bundle.Images {
			s.status(ToneLoading, fmt.Sprintf("Importing image %d/%d...", i+1, len(bundle.Images)))
			_, err := s.remote.ImportImage(ctx, client.ImageUpload{
				DocName:  img.DocName,
				FileName: img.FileName,
				MimeType: img.MimeType,
				Data:     img.Data,
				Caption:  img.Caption,
			})
			if err != nil {
				return nil, s.fail("Import failed", fmt.Errorf("image for %s: %w", img.DocName, err))
			}
			res.Images++
		}
	}

	if err := s.org.Replace(bundle.FolderState, bundle.TagState); err != nil {
		return nil, s.fail("Import failed", err)
	}
	s.mu.Lock()
	s.activeFolder = organize.AllKey
	s.pendingFolder = organize.DefaultFolder
	s.selected = ""
	s.name, s.text = "", ""
	s.updatedAt = time.Time{}
	s.images = nil
	mode := s.viewMode
	s.mu.Unlock()
	s.markSaved()

	if bundle.ViewMode != "" {
		mode = normalizeViewMode(bundle.ViewMode)
	}
	if err := s.storeViewMode(mode); err != nil {
		s.logger.Warn("view mode not stored", slog.String("error", err.Error()))
	}

	docs, err := s.loadDocuments(ctx)
	if err != nil {
		s.logger.Warn("document list not refreshed after import", slog.String("error", err.Error()))
	}
	if len(docs) > 0 {
		if err := s.open(ctx, docs[0].Name); err != nil {
			s.logger.Warn("first document not opened after import", slog.String("error", err.Error()))
		}
	}

	msg := fmt.Sprintf("Imported %d documents.", res.Documents)
	if res.Images > 0 {
		msg = fmt.Sprintf("Imported %d documents, %d images.", res.Documents, res.Images)
	}
	s.status(ToneOK, msg)
	return res, nil
}
