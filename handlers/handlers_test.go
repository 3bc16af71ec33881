package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloudburst/config"
	"cloudburst/db"
	"cloudburst/middleware"
	"cloudburst/models"
	"cloudburst/sms"
)

// testEnv wires the handlers against the in-memory store and an
// unconfigured SMS dispatcher.
type testEnv struct {
	store    *db.MemoryStore
	nodes    *NodeHandler
	alerts   *AlertHandler
	contacts *ContactHandler
	history  *HistoryHandler
	settings *SettingsHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := db.NewMemoryStore()
	dispatcher := sms.NewDispatcher(config.TwilioConfig{})
	alerts := NewAlertHandler(store, dispatcher)
	return &testEnv{
		store:    store,
		nodes:    NewNodeHandler(store, alerts),
		alerts:   alerts,
		contacts: NewContactHandler(store),
		history:  NewHistoryHandler(store),
		settings: NewSettingsHandler(store),
	}
}

var testUser = &models.User{
	UserID:   "user-test",
	Username: "tester",
	Role:     models.RoleOperator,
}

// authedRequest builds a request carrying a JSON body and an authenticated
// user in the context, the way the auth middleware would.
func authedRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	return req.WithContext(context.WithValue(req.Context(), middleware.UserContextKey, testUser))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

// registerTestNode creates a node through the handler and fails the test on
// anything but 201.
func (e *testEnv) registerTestNode(t *testing.T, id string) {
	t.Helper()
	lat, lon := 32.24, 77.19
	rec := httptest.NewRecorder()
	e.nodes.RegisterNode(rec, authedRequest(t, http.MethodPost, "/api/nodes/register", RegisterNodeRequest{
		ID:        id,
		Name:      "Node " + id,
		Type:      models.NodeTypeSensor,
		Latitude:  &lat,
		Longitude: &lon,
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register node %s: status %d, body %s", id, rec.Code, rec.Body.String())
	}
}
