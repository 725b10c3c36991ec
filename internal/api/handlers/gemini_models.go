package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	geminiModelsURL = "https://generativelanguage.googleapis.com/v1beta/models"
	modelsCacheTTL  = time.Hour
)

// GeminiModel is the frontend-friendly model info
type GeminiModel struct {
	ID          string `json:"id"`           // e.g. "gemini-2.5-flash"
	DisplayName string `json:"display_name"` // e.g. "Gemini 2.5 Flash"
	Description string `json:"description"`
}

// GeminiModelsHandler lists the text models usable for translation
type GeminiModelsHandler struct {
	apiKey  func() string
	baseURL string
	client  *http.Client

	mu        sync.Mutex
	cached    []GeminiModel
	cacheTime time.Time
}

func NewGeminiModelsHandler(apiKey func() string, baseURL string) *GeminiModelsHandler {
	if baseURL == "" {
		baseURL = geminiModelsURL
	}
	return &GeminiModelsHandler{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// ListModels fetches available Gemini text models from the Google API
func (h *GeminiModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	key := h.apiKey()
	if key == "" {
		jsonResponse(w, []GeminiModel{}, http.StatusOK)
		return
	}

	models, err := h.getModels(r, key)
	if err != nil {
		jsonError(w, "failed to fetch Gemini models: "+err.Error(), http.StatusBadGateway)
		return
	}
	jsonResponse(w, models, http.StatusOK)
}

// getModels serves from a one hour cache and falls back to stale data on errors
func (h *GeminiModelsHandler) getModels(r *http.Request, key string) ([]GeminiModel, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.cached) > 0 && time.Since(h.cacheTime) < modelsCacheTTL {
		return slices.Clone(h.cached), nil
	}

	models, err := h.fetch(r, key)
	if err != nil {
		if len(h.cached) > 0 {
			return slices.Clone(h.cached), nil
		}
		return nil, err
	}
	h.cached = models
	h.cacheTime = time.Now()
	return slices.Clone(models), nil
}

func (h *GeminiModelsHandler) fetch(r *http.Request, key string) ([]GeminiModel, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, h.baseURL+"?pageSize=100", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", key)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Google API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Google API: status %d", resp.StatusCode)
	}

	var apiResp struct {
		Models []struct {
			Name                       string   `json:"name"` // "models/gemini-2.5-flash"
			DisplayName                string   `json:"displayName"`
			Description                string   `json:"description"`
			SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("parse Google API response: %w", err)
	}

	models := []GeminiModel{}
	seen := make(map[string]bool)
	for _, m := range apiResp.Models {
		if !slices.Contains(m.SupportedGenerationMethods, "generateContent") {
			continue
		}
		id := strings.TrimPrefix(m.Name, "models/")
		if !strings.HasPrefix(id, "gemini-") || strings.Contains(id, "embedding") || seen[id] {
			continue
		}
		seen[id] = true
		models = append(models, GeminiModel{ID: id, DisplayName: m.DisplayName, Description: m.Description})
	}

	// newer versions first
	slices.SortFunc(models, func(a, b GeminiModel) int { return strings.Compare(b.ID, a.ID) })
	return models, nil
}
