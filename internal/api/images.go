package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/starford/kdoc/internal/apperr"
	"github.com/starford/kdoc/internal/docservice"
)

// multipartOverhead is allowed on top of the image cap for form fields and
// boundaries.
const multipartOverhead = 1 << 20

// ListImages handles GET /api/documents/images?name=.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	name, err := requiredQuery(r, "name")
	if err != nil {
		writeError(w, "list images", err)
		return
	}
	images, err := h.svc.Images(r.Context(), name)
	if err != nil {
		writeError(w, "list images", err, slog.String("name", name))
		return
	}
	writeOK(w, map[string]any{"images": images})
}

// ImageContent handles GET /api/documents/image/content?id=. The response is
// the raw image bytes.
func (h *Handler) ImageContent(w http.ResponseWriter, r *http.Request) {
	id, err := requiredQuery(r, "id")
	if err != nil {
		writeError(w, "image content", err)
		return
	}
	img, data, err := h.svc.ImageContent(r.Context(), id)
	if err != nil {
		writeError(w, "image content", err, slog.String("id", id))
		return
	}
	w.Header().Set("Content-Type", img.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": img.FileName}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// UploadImage handles POST /api/documents/image. It accepts either a
// multipart form (fields "name", "caption", file "file") or an
// ImageImportRequest JSON body.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	up, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, "upload image", err)
		return
	}
	img, err := h.svc.AddImage(r.Context(), up)
	if err != nil {
		writeError(w, "upload image", err, slog.String("name", up.DocName))
		return
	}
	writeOK(w, map[string]any{"image": img})
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (docservice.ImageUpload, error) {
	limit := h.svc.MaxImageBytes() + multipartOverhead
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req ImageImportRequest
		// base64 inflates by 4/3.
		if err := decodeJSON(w, r, limit*4/3, &req); err != nil {
			return docservice.ImageUpload{}, err
		}
		data, err := base64.StdEncoding.DecodeString(req.DataBase64)
		if err != nil {
			return docservice.ImageUpload{}, fmt.Errorf("%w: data_base64 is not valid base64", apperr.ErrInvalidPayload)
		}
		up := docservice.ImageUpload{DocName: req.Name, FileName: req.FileName, MimeType: req.MimeType, Data: data}
		if req.Caption != nil {
			up.Caption = *req.Caption
		}
		return up, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return docservice.ImageUpload{}, fmt.Errorf("%w: upload exceeds %d bytes", apperr.ErrTooLarge, limit)
		}
		return docservice.ImageUpload{}, fmt.Errorf("%w: invalid multipart form", apperr.ErrInvalidPayload)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return docservice.ImageUpload{}, fmt.Errorf("%w: missing 'file' field in multipart form", apperr.ErrInvalidPayload)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return docservice.ImageUpload{}, fmt.Errorf("%w: failed to read file", apperr.ErrInvalidPayload)
	}
	name := r.FormValue("name")
	if name == "" {
		return docservice.ImageUpload{}, fmt.Errorf("%w: name is required", apperr.ErrInvalidPayload)
	}
	return docservice.ImageUpload{
		DocName:  name,
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Caption:  r.FormValue("caption"),
		Data:     data,
	}, nil
}

// DeleteImage handles DELETE /api/documents/image?id=.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := requiredQuery(r, "id")
	if err != nil {
		writeError(w, "delete image", err)
		return
	}
	if err := h.svc.DeleteImage(r.Context(), id); err != nil {
		writeError(w, "delete image", err, slog.String("id", id))
		return
	}
	writeOK(w, map[string]any{"deleted": true})
}
