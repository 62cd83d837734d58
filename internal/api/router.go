package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/kdoc/internal/docservice"
)

// NewRouter creates a chi router with all document store routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /api/events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/info", h.Info)

	r.Route("/api", func(r chi.Router) {
		// Documents.
		r.Get("/documents", h.ListDocuments)
		r.Delete("/documents", h.DeleteDocuments)
		r.Get("/documents/content", h.GetDocument)
		r.Post("/documents/text", h.SaveDocument)

		// Images.
		r.Get("/documents/images", h.ListImages)
		r.Get("/documents/image/content", h.ImageContent)
		r.Post("/documents/image", h.UploadImage)
		r.Delete("/documents/image", h.DeleteImage)

		// Search.
		r.Post("/search", h.Search)

		// SSE endpoint (protected by same auth middleware).
		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
