package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/folio/pkg/folio/api"
	"github.com/tendant/folio/pkg/folio/auth"
	"github.com/tendant/folio/pkg/folio/config"
	fsstorage "github.com/tendant/folio/pkg/folio/storage/fs"
	memorystorage "github.com/tendant/folio/pkg/folio/storage/memory"
)

// Mount registers the API, auth, metrics, readiness and asset routes.
func Mount(r chi.Router, cfg *config.Config, comps *config.Components) {
	handler := api.NewHandler(comps.Service,
		api.WithKeyGenerator(comps.KeyGenerator),
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
	)

	var admin func(http.Handler) http.Handler
	if comps.Sessions != nil {
		admin = comps.Sessions.Middleware
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequestID)
		if comps.Metrics != nil {
			r.Use(comps.Metrics.Middleware)
		}
		r.Use(api.CORSMiddleware(cfg.CORSOrigins))
		r.Use(api.CacheMiddleware(cfg.CacheMaxAge))

		handler.Routes(r, admin)

		if comps.Sessions != nil {
			if comps.Verifier == nil {
				slog.Warn("Sign-in route disabled: AUTH_PROXY_SECRET is not set; use folioctl token for admin sessions")
			}
			authHandler := auth.NewHandler(comps.Sessions, comps.Verifier, cfg.Environment == "production")
			r.Route("/auth", authHandler.Routes)
		}
	})

	if comps.Metrics != nil {
		r.Handle("/metrics", comps.Metrics.Handler())
	}

	r.Get("/healthz/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := comps.Store.Ping(ctx); err != nil {
			render.Status(r, http.StatusServiceUnavailable)
			render.PlainText(w, r, err.Error())
			return
		}
		render.PlainText(w, r, http.StatusText(http.StatusOK))
	})

	if strings.HasPrefix(cfg.Storage.URLPrefix, "/") {
		prefix := strings.TrimRight(cfg.Storage.URLPrefix, "/") + "/"
		switch store := comps.BlobStore.(type) {
		case *fsstorage.Backend:
			fileServer := http.StripPrefix(prefix, http.FileServer(http.Dir(store.BaseDir())))
			r.Get(prefix+"*", func(w http.ResponseWriter, r *http.Request) {
				// directory listings stay hidden
				if strings.HasSuffix(r.URL.Path, "/") {
					http.NotFound(w, r)
					return
				}
				fileServer.ServeHTTP(w, r)
			})
		case *memorystorage.Backend:
			r.Get(prefix+"*", serveMemoryAsset(store))
		}
	}
}

// serveMemoryAsset streams objects held by the in-memory blob store with the
// content type recorded at upload.
func serveMemoryAsset(store *memorystorage.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		body, err := store.Download(r.Context(), key)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer body.Close()

		if mimeType, ok := store.MimeType(key); ok {
			w.Header().Set("Content-Type", mimeType)
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if _, err := io.Copy(w, body); err != nil {
			slog.Warn("Failed to stream asset", "object_key", key, "error", err)
		}
	}
}
