package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/video-stream/subtrans/internal/job"
	"github.com/video-stream/subtrans/internal/storage"
)

type JobHandler struct {
	queue *job.JobQueue
}

func NewJobHandler(queue *job.JobQueue) *JobHandler {
	return &JobHandler{queue: queue}
}

// ListJobs returns all jobs
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.queue.ListJobs()
	if err != nil {
		jsonError(w, "failed to list jobs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	jsonResponse(w, jobs, http.StatusOK)
}

// GetJob returns a single job by ID
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, ok := h.lookup(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	jsonResponse(w, j, http.StatusOK)
}

// CancelJob cancels a pending or running job
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.queue.CancelJob(id); err != nil {
		if errors.Is(err, job.ErrNotFound) {
			jsonError(w, "job not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to cancel job: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RetryJob re-queues a failed or cancelled job
func (h *JobHandler) RetryJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.queue.RetryJob(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, job.ErrNotFound):
		jsonError(w, "job not found", http.StatusNotFound)
	case errors.Is(err, job.ErrNotRetryable):
		jsonError(w, err.Error(), http.StatusConflict)
	case err != nil:
		jsonError(w, "failed to retry job: "+err.Error(), http.StatusInternalServerError)
	default:
		jsonResponse(w, j, http.StatusOK)
	}
}

// GetArtifact serves one output file of a completed job
func (h *JobHandler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	j, ok := h.lookup(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if j.Status != job.StatusCompleted || len(j.Result) == 0 {
		jsonError(w, "job has no artifacts", http.StatusConflict)
		return
	}

	var result job.TranslateResult
	if err := json.Unmarshal(j.Result, &result); err != nil {
		jsonError(w, "corrupt job result", http.StatusInternalServerError)
		return
	}
	name := chi.URLParam(r, "name")
	if !slices.Contains(result.Artifacts, name) {
		jsonError(w, "artifact not found", http.StatusNotFound)
		return
	}
	path, err := storage.Resolve(result.OutputDir, name)
	if err != nil {
		jsonError(w, "artifact not found", http.StatusNotFound)
		return
	}

	switch filepath.Ext(name) {
	case ".srt":
		w.Header().Set("Content-Type", "application/x-subrip; charset=utf-8")
	case ".vtt":
		w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
	case ".md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}

func (h *JobHandler) lookup(w http.ResponseWriter, id string) (*job.Job, bool) {
	j, err := h.queue.GetJob(id)
	if errors.Is(err, job.ErrNotFound) {
		jsonError(w, "job not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		jsonError(w, "failed to load job", http.StatusInternalServerError)
		return nil, false
	}
	return j, true
}
