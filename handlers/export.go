package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"cloudburst/db"
	"cloudburst/middleware"
	"cloudburst/models"
)

type ExportHandler struct {
	store db.Store
}

func NewExportHandler(store db.Store) *ExportHandler {
	return &ExportHandler{store: store}
}

// ExportDatabase returns the whole dashboard dataset as one JSON dump.
// There is no partial-subset selection and no schema version tag, only an
// exported_at stamp. Users and password hashes are never included.
func (h *ExportHandler) ExportDatabase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dump, err := h.store.Export(r.Context())
	if err != nil {
		log.Printf("❌ Database export failed: %v", err)
		writeError(w, "Failed to export database", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("cloudburst_export_%s.json", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	log.Printf("📦 Database exported: %d nodes, %d alerts, %d contacts",
		len(dump.Nodes), len(dump.Alerts), len(dump.Contacts))
	writeJSON(w, http.StatusOK, dump)
}

// ImportDatabase restores a previously exported dump. Each subtree in the
// dump overwrites the stored one wholesale; subtrees absent from the dump
// are left untouched. Last write wins.
func (h *ExportHandler) ImportDatabase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var dump models.DatabaseDump
	if err := json.NewDecoder(r.Body).Decode(&dump); err != nil {
		writeError(w, "Invalid dump payload", http.StatusBadRequest)
		return
	}

	if err := h.store.Import(r.Context(), &dump); err != nil {
		log.Printf("❌ Database import failed: %v", err)
		writeError(w, "Failed to import database", http.StatusInternalServerError)
		return
	}

	appendLog(r.Context(), h.store, models.LogDataImport,
		fmt.Sprintf("Database import by %s: %d nodes, %d alerts, %d contacts",
			user.Username, len(dump.Nodes), len(dump.Alerts), len(dump.Contacts)),
		map[string]interface{}{"user_id": user.UserID})

	log.Printf("📥 Database imported by %s", user.Username)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"nodes":    len(dump.Nodes),
		"alerts":   len(dump.Alerts),
		"contacts": len(dump.Contacts),
	})
}
