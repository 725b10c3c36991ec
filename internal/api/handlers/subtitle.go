package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/video-stream/subtrans/internal/db"
	"github.com/video-stream/subtrans/internal/job"
	"github.com/video-stream/subtrans/internal/logging"
	"github.com/video-stream/subtrans/internal/storage"
)

type TranslateHandler struct {
	mediaPath string
	database  *db.Database
	queue     *job.JobQueue
}

func NewTranslateHandler(mediaPath string, database *db.Database, queue *job.JobQueue) *TranslateHandler {
	return &TranslateHandler{mediaPath: mediaPath, database: database, queue: queue}
}

type translateRequest struct {
	SourcePath string `json:"source_path" validate:"required,max=1024"`
	// PresetID selects a saved prompt; it overrides preset and custom_prompt
	PresetID int64 `json:"preset_id" validate:"min=0"`
	job.TranslateParams
}

// Translate queues a translation job for a subtitle file under the media root
func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !storage.IsSubtitleFile(req.SourcePath) {
		jsonError(w, "source must be an .srt or .vtt file", http.StatusBadRequest)
		return
	}
	full, err := storage.Resolve(h.mediaPath, req.SourcePath)
	if err != nil {
		jsonError(w, "invalid source path", http.StatusBadRequest)
		return
	}
	if _, err := os.Stat(full); err != nil {
		jsonError(w, "source not found", http.StatusNotFound)
		return
	}

	params := req.TranslateParams
	if req.PresetID > 0 {
		preset, err := h.database.GetTranslationPreset(req.PresetID)
		if errors.Is(err, db.ErrNotFound) {
			jsonError(w, "preset not found", http.StatusNotFound)
			return
		}
		if err != nil {
			jsonError(w, "failed to load preset", http.StatusInternalServerError)
			return
		}
		params.Preset = "custom"
		params.CustomPrompt = preset.Prompt
	}
	params.CustomPrompt = plainText(params.CustomPrompt)
	if params.Preset == "custom" && params.CustomPrompt == "" {
		jsonError(w, "custom preset requires custom_prompt", http.StatusBadRequest)
		return
	}

	j, err := h.queue.Enqueue(job.JobTranslate, req.SourcePath, params)
	if err != nil {
		jsonError(w, "failed to create job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	logging.Info("translation queued", map[string]interface{}{
		"job":    j.ID,
		"source": req.SourcePath,
		"target": params.TargetLang,
		"engine": params.Engine,
	})
	jsonResponse(w, j, http.StatusAccepted)
}
