package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/kdoc/internal/apperr"
	"github.com/starford/kdoc/internal/docservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// requiredQuery returns a trimmed query parameter or an invalid-payload error.
func requiredQuery(r *http.Request, key string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return "", fmt.Errorf("%w: query parameter %q is required", apperr.ErrInvalidPayload, key)
	}
	return v, nil
}

// Info handles GET /info.
//
//	@Summary		Host status and counts
//	@Tags			host
//	@Produce		json
//	@Success		200	{object}	docservice.Info
//	@Router			/info [get]
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Info(r.Context())
	if err != nil {
		writeError(w, "info", err)
		return
	}
	writeOK(w, map[string]any{
		"status":    info.Status,
		"version":   info.Version,
		"documents": info.Documents,
		"images":    info.Images,
	})
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents, most recently updated first
//	@Tags			documents
//	@Produce		json
//	@Security		BearerAuth
//	@Router			/api/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeOK(w, map[string]any{"documents": docs})
}

// GetDocument handles GET /api/documents/content?name=.
//
//	@Summary		Get one document with its content
//	@Tags			documents
//	@Produce		json
//	@Param			name	query	string	true	"Document name"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/api/documents/content [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	name, err := requiredQuery(r, "name")
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	doc, err := h.svc.Get(r.Context(), name)
	if err != nil {
		writeError(w, "get document", err, slog.String("name", name))
		return
	}
	writeOK(w, map[string]any{"document": doc})
}

// SaveDocument handles POST /api/documents/text.
//
//	@Summary		Create, update or rename a document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveDocumentRequest	true	"Document to save"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/api/documents/text [post]
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	var req SaveDocumentRequest
	if err := decodeJSON(w, r, maxJSONBytes, &req); err != nil {
		writeError(w, "save document", err)
		return
	}
	doc, err := h.svc.Save(r.Context(), req.Name, req.OldName, req.Text)
	if err != nil {
		writeError(w, "save document", err, slog.String("name", req.Name))
		return
	}
	writeOK(w, map[string]any{"document": doc})
}

// DeleteDocuments handles DELETE /api/documents.
//
//	@Summary		Delete every document
//	@Tags			documents
//	@Produce		json
//	@Security		BearerAuth
//	@Router			/api/documents [delete]
func (h *Handler) DeleteDocuments(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.DeleteAll(r.Context())
	if err != nil {
		writeError(w, "delete documents", err)
		return
	}
	writeOK(w, map[string]any{"deleted": n})
}

// Search handles POST /api/search.
//
//	@Summary		Ranked search across documents
//	@Tags			search
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SearchRequest	true	"Query"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/api/search [post]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeJSON(w, r, maxJSONBytes, &req); err != nil {
		writeError(w, "search", err)
		return
	}
	results, err := h.svc.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeError(w, "search", err, slog.String("query", req.Query))
		return
	}
	writeOK(w, map[string]any{"results": results})
}
