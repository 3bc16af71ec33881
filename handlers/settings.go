package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"cloudburst/db"
	"cloudburst/models"
)

type SettingsHandler struct {
	store db.Store
}

func NewSettingsHandler(store db.Store) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// GetSettings returns the persisted settings, falling back to defaults when
// nothing has been saved yet.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeJSON(w, http.StatusOK, models.DefaultSettings())
			return
		}
		log.Printf("❌ Failed to get settings: %v", err)
		writeError(w, "Failed to retrieve settings", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// SaveSettings validates and persists the settings object wholesale.
// Last write wins; there is no merge with the stored copy.
func (h *SettingsHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var settings models.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := models.ValidateSettings(&settings); err != nil {
		writeTaxonomyError(w, err, "Invalid settings")
		return
	}

	settings.LastSaved = nowMillis()
	if err := h.store.PutSettings(r.Context(), &settings); err != nil {
		log.Printf("❌ Failed to save settings: %v", err)
		writeError(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}

	appendLog(r.Context(), h.store, models.LogSettingsSaved, "Settings saved", nil)

	log.Printf("⚙️  Settings saved (retention %dd, interval %ds)",
		settings.System.RetentionDays, settings.System.UpdateIntervalSeconds)
	writeJSON(w, http.StatusOK, &settings)
}
