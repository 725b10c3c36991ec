package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/video-stream/subtrans/internal/db"
	"github.com/video-stream/subtrans/internal/logging"
)

const maskPrefix = "••••••••"

// settingsKeys defines which keys are allowed and their display metadata.
// Stored values take precedence over the environment when a job builds its client.
var settingsKeys = []SettingDef{
	{Key: "gemini_api_key", Label: "Gemini API Key", Group: "translation", Placeholder: "AIza...", Secret: true},
	{Key: "gemini_model", Label: "Gemini Model", Group: "translation", Placeholder: "gemini-2.0-flash"},
	{Key: "openai_api_key", Label: "OpenAI API Key", Group: "translation", Placeholder: "sk-...", Secret: true},
	{Key: "openai_model", Label: "OpenAI Model", Group: "translation", Placeholder: "gpt-4o-mini"},
}

type SettingDef struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Group       string `json:"group"`
	Placeholder string `json:"placeholder"`
	Secret      bool   `json:"secret"`
}

type settingResponse struct {
	SettingDef
	Value    string `json:"value"`
	HasValue bool   `json:"has_value"`
}

type SettingsHandler struct {
	database *db.Database
}

func NewSettingsHandler(database *db.Database) *SettingsHandler {
	return &SettingsHandler{database: database}
}

// maskSecret keeps only the last 4 characters
func maskSecret(val string) string {
	r := []rune(val)
	if len(r) > 4 {
		return maskPrefix + string(r[len(r)-4:])
	}
	return maskPrefix
}

// GetSettings returns all settings (secrets are masked)
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	all, err := h.database.GetAllSettings()
	if err != nil {
		jsonError(w, "failed to load settings", http.StatusInternalServerError)
		return
	}

	result := make([]settingResponse, 0, len(settingsKeys))
	for _, def := range settingsKeys {
		val := all[def.Key]
		resp := settingResponse{SettingDef: def, Value: val, HasValue: val != ""}
		if def.Secret && resp.HasValue {
			resp.Value = maskSecret(val)
		}
		result = append(result, resp)
	}

	jsonResponse(w, result, http.StatusOK)
}

// UpdateSettings saves settings from the request body. Unknown keys are ignored,
// masked values leave the stored secret untouched and "" clears a setting.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	allowed := make(map[string]bool, len(settingsKeys))
	for _, def := range settingsKeys {
		allowed[def.Key] = true
	}

	var changed []string
	for key, value := range updates {
		if !allowed[key] || strings.HasPrefix(value, maskPrefix) {
			continue
		}
		if err := h.database.SetSetting(key, strings.TrimSpace(value)); err != nil {
			jsonError(w, "failed to save setting: "+key, http.StatusInternalServerError)
			return
		}
		changed = append(changed, key)
	}

	if len(changed) > 0 {
		logging.Info("settings updated", map[string]interface{}{"keys": changed})
	}
	w.WriteHeader(http.StatusNoContent)
}
