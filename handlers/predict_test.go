package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestGetPredictionsParsesCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "predictions.csv")
	csv := "location,temperature,rainfall_mm,prediction\nValley,21.4,38.5,1\nRidge,16.8,29.3,0\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	handler := NewPredictionHandler(path)
	rec := httptest.NewRecorder()
	handler.GetPredictions(rec, httptest.NewRequest(http.MethodGet, "/api/predict", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp PredictionResponse
	decodeBody(t, rec, &resp)
	if !resp.Success {
		t.Fatalf("success = false, message %q", resp.Message)
	}
	if len(resp.Predictions) != 2 {
		t.Fatalf("predictions = %d, want 2", len(resp.Predictions))
	}

	row := resp.Predictions[0]
	if row["location"] != "Valley" {
		t.Errorf("location = %v", row["location"])
	}
	if temp, ok := row["temperature"].(float64); !ok || temp != 21.4 {
		t.Errorf("temperature = %v, want numeric 21.4", row["temperature"])
	}
	conf, ok := row["confidence"].(float64)
	if !ok || conf < 0.70 || conf > 0.99 {
		t.Errorf("confidence = %v, want within [0.70, 0.99]", row["confidence"])
	}
}

func TestGetPredictionsMissingFile(t *testing.T) {
	handler := NewPredictionHandler(filepath.Join(t.TempDir(), "absent.csv"))
	rec := httptest.NewRecorder()
	handler.GetPredictions(rec, httptest.NewRequest(http.MethodGet, "/api/predict", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with success=false", rec.Code)
	}

	var resp PredictionResponse
	decodeBody(t, rec, &resp)
	if resp.Success {
		t.Error("success = true for a missing file")
	}
}
