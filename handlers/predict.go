package handlers

import (
	"encoding/csv"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"
)

// PredictionHandler serves the static CSV-backed prediction view. The file
// is read on every request so it can be swapped without a restart. The
// confidence values are generated at request time and are not model scores.
type PredictionHandler struct {
	csvPath string
}

func NewPredictionHandler(csvPath string) *PredictionHandler {
	return &PredictionHandler{csvPath: csvPath}
}

// PredictionRow is one CSV row with numeric fields parsed where possible.
type PredictionRow map[string]interface{}

type PredictionResponse struct {
	Success     bool            `json:"success"`
	Predictions []PredictionRow `json:"predictions"`
	Date        string          `json:"date"`
	Message     string          `json:"message"`
}

// GetPredictions reads the configured CSV and returns its rows with a
// randomly generated confidence attached to each.
func (h *PredictionHandler) GetPredictions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	f, err := os.Open(h.csvPath)
	if err != nil {
		log.Printf("❌ Failed to open prediction CSV %s: %v", h.csvPath, err)
		writeJSON(w, http.StatusOK, PredictionResponse{
			Success:     false,
			Predictions: []PredictionRow{},
			Date:        time.Now().Format("2006-01-02"),
			Message:     "Prediction data unavailable",
		})
		return
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil || len(records) < 2 {
		log.Printf("❌ Failed to parse prediction CSV: %v", err)
		writeJSON(w, http.StatusOK, PredictionResponse{
			Success:     false,
			Predictions: []PredictionRow{},
			Date:        time.Now().Format("2006-01-02"),
			Message:     "Prediction data unavailable",
		})
		return
	}

	header := records[0]
	rows := make([]PredictionRow, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(PredictionRow, len(header)+1)
		for i, col := range header {
			if i >= len(record) {
				continue
			}
			if v, err := strconv.ParseFloat(record[i], 64); err == nil {
				row[col] = v
			} else {
				row[col] = record[i]
			}
		}
		// Not a model score. 0.70-0.99, regenerated per request.
		row["confidence"] = 0.70 + rand.Float64()*0.29
		rows = append(rows, row)
	}

	writeJSON(w, http.StatusOK, PredictionResponse{
		Success:     true,
		Predictions: rows,
		Date:        time.Now().Format("2006-01-02"),
		Message:     "Predictions loaded",
	})
}
