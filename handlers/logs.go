package handlers

import (
	"log"
	"net/http"
	"strconv"

	"cloudburst/db"
)

type LogHandler struct {
	store db.Store
}

func NewLogHandler(store db.Store) *LogHandler {
	return &LogHandler{store: store}
}

const (
	defaultLogLimit = 100
	maxLogLimit     = 500
)

// GetLogs returns recent event-log entries, oldest first. The limit query
// param defaults to 100 and is capped at 500.
func (h *LogHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, "Limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	entries, err := h.store.GetRecentLogs(r.Context(), limit)
	if err != nil {
		log.Printf("❌ Failed to get logs: %v", err)
		writeError(w, "Failed to retrieve logs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  entries,
		"count": len(entries),
	})
}
