package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/folio/pkg/folio"
)

// GetContent returns every section as one JSON object. Sections whose stored
// value cannot be decoded are logged and left out.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	content, err := h.service.GetAll(r.Context())
	if err != nil {
		var decodeErr *folio.DecodeError
		if !errors.As(err, &decodeErr) {
			slog.Error("Failed to fetch content", "error", err)
			writeError(w, r, http.StatusInternalServerError, "Failed to fetch content.", err)
			return
		}
		slog.Warn("Serving content without undecodable sections", "keys", decodeErr.Keys)
	}

	render.JSON(w, r, content)
}

// SaveContent upserts every top-level key of the posted object. Keys are
// written one by one; a failure leaves earlier keys written.
func (h *Handler) SaveContent(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := decodeJSON(r.Body, &body); err != nil {
		status := http.StatusBadRequest
		if isBodyTooLarge(err) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, r, status, "Failed to save content.", fmt.Errorf("request body must be a JSON object: %w", err))
		return
	}
	if body == nil {
		writeError(w, r, http.StatusBadRequest, "Failed to save content.", errors.New("request body must be a JSON object"))
		return
	}

	entries := make(map[string]any, len(body))
	for key, value := range body {
		entries[key] = value
	}

	if err := h.service.UpsertMany(r.Context(), entries); err != nil {
		slog.Error("Error saving content", "error", err)
		writeError(w, r, statusFor(err), "Failed to save content.", err)
		return
	}

	render.JSON(w, r, MessageResponse{Message: "Content saved successfully!"})
}
