package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"cloudburst/db"
	"cloudburst/models"
)

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeTaxonomyError maps the error taxonomy onto HTTP statuses and sends
// the error's own message for client-caused failures.
func writeTaxonomyError(w http.ResponseWriter, err error, fallback string) {
	var (
		validationErr   *models.ValidationError
		duplicateErr    *models.DuplicateIDError
		verificationErr *models.VerificationError
		externalErr     *models.ExternalServiceError
	)
	switch {
	case errors.As(err, &validationErr):
		writeError(w, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &duplicateErr):
		writeError(w, duplicateErr.Error(), http.StatusConflict)
	case errors.As(err, &verificationErr):
		writeError(w, verificationErr.Error(), http.StatusInternalServerError)
	case errors.As(err, &externalErr):
		writeError(w, externalErr.Error(), http.StatusBadGateway)
	case errors.Is(err, db.ErrNotFound):
		writeError(w, "Not found", http.StatusNotFound)
	default:
		writeError(w, fallback, http.StatusInternalServerError)
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// appendLog writes a structured event record. Log writes are best-effort:
// the operation that triggered them has already succeeded.
func appendLog(ctx context.Context, store db.Store, logType models.LogType, message string, metadata map[string]interface{}) {
	entry := &models.LogEntry{
		ID:        uuid.New().String(),
		Type:      logType,
		Message:   message,
		Timestamp: nowMillis(),
		Metadata:  metadata,
	}
	if err := store.AppendLog(ctx, entry); err != nil {
		log.Printf("⚠️  Failed to write log entry (%s): %v", logType, err)
	}
}
