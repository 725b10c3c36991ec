package handlers

import (
	"net/http"
	"strconv"

	"github.com/video-stream/subtrans/internal/storage"
)

const maxSourceResults = 200

type SourcesHandler struct {
	mediaPath string
}

func NewSourcesHandler(mediaPath string) *SourcesHandler {
	return &SourcesHandler{mediaPath: mediaPath}
}

// List returns subtitle files under the media root, optionally filtered by ?q=
func (h *SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := maxSourceResults
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxSourceResults)
	}

	results, err := storage.ListSources(h.mediaPath, q, limit)
	if err != nil {
		jsonError(w, "failed to list sources", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"query":   q,
		"results": results,
	}, http.StatusOK)
}
