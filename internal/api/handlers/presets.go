package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/video-stream/subtrans/internal/db"
)

type PresetsHandler struct {
	database *db.Database
}

func NewPresetsHandler(database *db.Database) *PresetsHandler {
	return &PresetsHandler{database: database}
}

type presetRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Prompt string `json:"prompt" validate:"required,max=4000"`
}

// decodePreset reads and cleans a preset body; it writes the error response itself
func decodePreset(w http.ResponseWriter, r *http.Request) (presetRequest, bool) {
	var req presetRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return req, false
	}
	req.Name = plainText(req.Name)
	req.Prompt = plainText(req.Prompt)
	if req.Name == "" || req.Prompt == "" {
		jsonError(w, "name and prompt are required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func presetID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		jsonError(w, "invalid preset ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// ListPresets returns all saved translation presets
func (h *PresetsHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.database.ListTranslationPresets()
	if err != nil {
		jsonError(w, "failed to list presets: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if presets == nil {
		presets = []db.TranslationPreset{}
	}
	jsonResponse(w, presets, http.StatusOK)
}

// CreatePreset saves a new translation preset
func (h *PresetsHandler) CreatePreset(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePreset(w, r)
	if !ok {
		return
	}

	id, err := h.database.CreateTranslationPreset(req.Name, req.Prompt)
	if err != nil {
		jsonError(w, "failed to create preset: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"id":   id,
		"name": req.Name,
	}, http.StatusCreated)
}

// UpdatePreset updates an existing translation preset
func (h *PresetsHandler) UpdatePreset(w http.ResponseWriter, r *http.Request) {
	id, ok := presetID(w, r)
	if !ok {
		return
	}
	req, ok := decodePreset(w, r)
	if !ok {
		return
	}

	err := h.database.UpdateTranslationPreset(id, req.Name, req.Prompt)
	if errors.Is(err, db.ErrNotFound) {
		jsonError(w, "preset not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to update preset: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"id":   id,
		"name": req.Name,
	}, http.StatusOK)
}

// DeletePreset removes a saved translation preset
func (h *PresetsHandler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	id, ok := presetID(w, r)
	if !ok {
		return
	}

	if err := h.database.DeleteTranslationPreset(id); err != nil {
		jsonError(w, "failed to delete preset: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
