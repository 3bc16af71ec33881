package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloudburst/models"
)

func TestGetLogsLimit(t *testing.T) {
	env := newTestEnv(t)
	handler := NewLogHandler(env.store)

	for i := 0; i < 10; i++ {
		entry := &models.LogEntry{
			ID:        fmt.Sprintf("log-%d", i),
			Type:      models.LogNodeRegistered,
			Message:   fmt.Sprintf("event %d", i),
			Timestamp: int64(1000 + i),
		}
		if err := env.store.AppendLog(context.Background(), entry); err != nil {
			t.Fatal(err)
		}
	}

	rec := httptest.NewRecorder()
	handler.GetLogs(rec, authedRequest(t, http.MethodGet, "/api/logs?limit=4", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Logs  []models.LogEntry `json:"logs"`
		Count int               `json:"count"`
	}
	decodeBody(t, rec, &resp)
	if resp.Count != 4 {
		t.Fatalf("count = %d, want 4", resp.Count)
	}
	// The limit query keeps the newest entries, returned oldest first.
	if resp.Logs[0].ID != "log-6" || resp.Logs[3].ID != "log-9" {
		t.Errorf("window = %s..%s, want log-6..log-9", resp.Logs[0].ID, resp.Logs[3].ID)
	}
}

func TestGetLogsRejectsBadLimit(t *testing.T) {
	env := newTestEnv(t)
	handler := NewLogHandler(env.store)

	for _, limit := range []string{"0", "abc", "-3"} {
		rec := httptest.NewRecorder()
		handler.GetLogs(rec, authedRequest(t, http.MethodGet, "/api/logs?limit="+limit, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit %q: status = %d, want 400", limit, rec.Code)
		}
	}
}
