// Package api exposes the content store over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/folio/pkg/folio"
	"github.com/tendant/folio/pkg/folio/objectkey"
)

// DefaultMaxUploadBytes bounds multipart uploads unless configured otherwise.
const DefaultMaxUploadBytes int64 = 10 << 20

// Handler serves the content, skills and upload endpoints.
type Handler struct {
	service        folio.Service
	keys           objectkey.Generator
	maxUploadBytes int64
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithKeyGenerator sets how uploaded assets are named in the blob store.
func WithKeyGenerator(g objectkey.Generator) HandlerOption {
	return func(h *Handler) {
		if g != nil {
			h.keys = g
		}
	}
}

// WithMaxUploadBytes sets the multipart upload limit.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandler creates the API handler
func NewHandler(service folio.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:        service,
		keys:           objectkey.NewFlatGenerator(),
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the endpoints on r. Writes go through admin, which may be
// nil when authentication is disabled.
func (h *Handler) Routes(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Get("/content", h.GetContent)
	r.Get("/skills", h.GetSkills)

	r.Group(func(r chi.Router) {
		if admin != nil {
			r.Use(admin)
		}

		r.With(RequestSizeLimitMiddleware(h.maxUploadBytes)).Post("/content", h.SaveContent)
		r.With(RequestSizeLimitMiddleware(h.maxUploadBytes)).Post("/skills", h.SaveSkills)
		r.Post("/upload-resume", h.UploadResume)
		r.Post("/upload-image", h.UploadImage)
	})
}
