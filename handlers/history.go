package handlers

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"cloudburst/db"
	"cloudburst/models"
)

type HistoryHandler struct {
	store db.Store
}

func NewHistoryHandler(store db.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// historyWindows maps the accepted window query values to durations.
var historyWindows = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

// windowedHistory loads a node's history and keeps readings newer than the
// window cutoff, sorted oldest first.
func (h *HistoryHandler) windowedHistory(r *http.Request) (string, []models.Reading, error) {
	nodeID := r.URL.Query().Get("node")
	if nodeID == "" {
		return "", nil, &models.ValidationError{Field: "node", Reason: "required"}
	}

	window := r.URL.Query().Get("window")
	if window == "" {
		window = "24h"
	}
	dur, ok := historyWindows[window]
	if !ok {
		return "", nil, &models.ValidationError{Field: "window", Reason: "must be one of 1h, 6h, 24h, 7d"}
	}

	if _, err := h.store.GetNode(r.Context(), nodeID); err != nil {
		return "", nil, err
	}

	history, err := h.store.GetNodeHistory(r.Context(), nodeID)
	if err != nil {
		return "", nil, err
	}

	cutoff := time.Now().Add(-dur).UnixMilli()
	readings := make([]models.Reading, 0, len(history))
	for _, reading := range history {
		if reading.Timestamp >= cutoff {
			readings = append(readings, reading)
		}
	}
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].Timestamp < readings[j].Timestamp
	})

	return nodeID, readings, nil
}

// GetHistory returns a node's readings within a time window as a sorted
// JSON series. Query params: node (required), window (1h|6h|24h|7d,
// default 24h).
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	nodeID, readings, err := h.windowedHistory(r)
	if err != nil {
		writeTaxonomyError(w, err, "Failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"node":     nodeID,
		"readings": readings,
		"count":    len(readings),
	})
}

// ExportHistoryCSV streams the same windowed series as CSV for download.
func (h *HistoryHandler) ExportHistoryCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	nodeID, readings, err := h.windowedHistory(r)
	if err != nil {
		writeTaxonomyError(w, err, "Failed to load history")
		return
	}

	filename := fmt.Sprintf("history_%s_%s.csv", nodeID, time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"timestamp", "iso_time", "temperature", "pressure", "humidity", "rssi"}); err != nil {
		log.Printf("❌ Failed to write CSV header: %v", err)
		return
	}

	for _, reading := range readings {
		record := []string{
			strconv.FormatInt(reading.Timestamp, 10),
			time.UnixMilli(reading.Timestamp).UTC().Format(time.RFC3339),
			formatFloat(reading.Temperature),
			formatFloat(reading.Pressure),
			formatFloat(reading.Humidity),
			formatInt(reading.RSSI),
		}
		if err := cw.Write(record); err != nil {
			log.Printf("❌ Failed to write CSV record: %v", err)
			return
		}
	}

	log.Printf("📊 Exported %d readings for node %s", len(readings), nodeID)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
