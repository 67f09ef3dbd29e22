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

// GetSkills returns the skills section.
func (h *Handler) GetSkills(w http.ResponseWriter, r *http.Request) {
	value, err := h.service.Get(r.Context(), folio.SectionSkills)
	if err != nil {
		slog.Error("Failed to read skills", "error", err)
		writeError(w, r, statusFor(err), "Failed to read content", err)
		return
	}

	render.JSON(w, r, value)
}

// SaveSkills replaces skills.skillList with the posted JSON array, leaving
// other fields of the section untouched. Elements are stored as sent.
func (h *Handler) SaveSkills(w http.ResponseWriter, r *http.Request) {
	var skills []json.RawMessage
	if err := decodeJSON(r.Body, &skills); err != nil {
		status := http.StatusBadRequest
		if isBodyTooLarge(err) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, r, status, "Failed to update skills.", fmt.Errorf("request body must be a JSON array: %w", err))
		return
	}
	if skills == nil {
		writeError(w, r, http.StatusBadRequest, "Failed to update skills.", errors.New("request body must be a JSON array"))
		return
	}

	if _, err := h.service.UpsertSingleMerged(r.Context(), folio.SectionSkills, map[string]any{
		folio.FieldSkillList: skills,
	}); err != nil {
		slog.Error("Error updating skills", "error", err)
		writeError(w, r, statusFor(err), "Failed to update skills.", err)
		return
	}

	render.JSON(w, r, MessageResponse{Message: "Skills updated successfully"})
}
