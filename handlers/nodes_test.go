package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloudburst/models"
	"cloudburst/status"
)

func TestRegisterNodeRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	lat, lon := 32.2396, 77.1887

	rec := httptest.NewRecorder()
	env.nodes.RegisterNode(rec, authedRequest(t, http.MethodPost, "/api/nodes/register", RegisterNodeRequest{
		ID:        "node-1",
		Name:      "Valley Sensor",
		Type:      models.NodeTypeSensor,
		Latitude:  &lat,
		Longitude: &lon,
		Altitude:  2050,
	}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}

	var node models.Node
	decodeBody(t, rec, &node)
	if node.Metadata.Latitude != lat || node.Metadata.Longitude != lon {
		t.Errorf("coordinates = (%v, %v), want (%v, %v)",
			node.Metadata.Latitude, node.Metadata.Longitude, lat, lon)
	}
	if node.Metadata.Installer != testUser.Username {
		t.Errorf("installer = %q, want %q", node.Metadata.Installer, testUser.Username)
	}

	stored, err := env.store.GetNode(context.Background(), "node-1")
	if err != nil {
		t.Fatalf("GetNode after register: %v", err)
	}
	if stored.Metadata.Name != "Valley Sensor" {
		t.Errorf("stored name = %q", stored.Metadata.Name)
	}
}

func TestRegisterNodeRejectsOutOfRangeCoordinates(t *testing.T) {
	env := newTestEnv(t)
	lat, lon := 95.0, 77.19

	rec := httptest.NewRecorder()
	env.nodes.RegisterNode(rec, authedRequest(t, http.MethodPost, "/api/nodes/register", RegisterNodeRequest{
		ID:        "node-bad",
		Name:      "Bad Node",
		Latitude:  &lat,
		Longitude: &lon,
	}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if _, err := env.store.GetNode(context.Background(), "node-bad"); err == nil {
		t.Error("node was written despite invalid coordinates")
	}
}

func TestRegisterNodeRejectsMissingCoordinates(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.nodes.RegisterNode(rec, authedRequest(t, http.MethodPost, "/api/nodes/register", RegisterNodeRequest{
		ID:   "node-nocoord",
		Name: "No Coordinates",
	}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRegisterNodeDuplicateIDConflict(t *testing.T) {
	env := newTestEnv(t)
	env.registerTestNode(t, "node-dup")

	original, err := env.store.GetNode(context.Background(), "node-dup")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}

	lat, lon := 10.0, 20.0
	rec := httptest.NewRecorder()
	env.nodes.RegisterNode(rec, authedRequest(t, http.MethodPost, "/api/nodes/register", RegisterNodeRequest{
		ID:        "node-dup",
		Name:      "Impostor",
		Latitude:  &lat,
		Longitude: &lon,
	}))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	after, err := env.store.GetNode(context.Background(), "node-dup")
	if err != nil {
		t.Fatalf("GetNode after conflict: %v", err)
	}
	if after.Metadata.Name != original.Metadata.Name {
		t.Errorf("existing node was modified by a rejected duplicate: %q", after.Metadata.Name)
	}
}

func TestGetNodesComputesStatus(t *testing.T) {
	env := newTestEnv(t)
	env.registerTestNode(t, "node-fresh")
	env.registerTestNode(t, "node-stale")

	now := time.Now().UnixMilli()
	fresh := &models.NodeRealtime{LastUpdate: now - 2*60*1000}
	stale := &models.NodeRealtime{LastUpdate: now - 60*60*1000}
	if err := env.store.PutNodeRealtime(context.Background(), "node-fresh", fresh); err != nil {
		t.Fatal(err)
	}
	if err := env.store.PutNodeRealtime(context.Background(), "node-stale", stale); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	env.nodes.GetNodes(rec, authedRequest(t, http.MethodGet, "/api/nodes", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Nodes []NodeView `json:"nodes"`
		Count int        `json:"count"`
	}
	decodeBody(t, rec, &resp)
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}

	byID := map[string]status.Status{}
	for _, v := range resp.Nodes {
		byID[v.ID] = v.Status
	}
	if byID["node-fresh"] != status.Online {
		t.Errorf("fresh node status = %s, want online", byID["node-fresh"])
	}
	if byID["node-stale"] != status.Offline {
		t.Errorf("stale node status = %s, want offline", byID["node-stale"])
	}
}

func TestIngestWritesRealtimeAndHistory(t *testing.T) {
	env := newTestEnv(t)
	env.registerTestNode(t, "node-ingest")

	temp := 24.5
	rec := httptest.NewRecorder()
	env.nodes.Ingest(rec, authedRequest(t, http.MethodPost, "/api/ingest", IngestRequest{
		NodeID:      "node-ingest",
		Temperature: &temp,
		Timestamp:   "1700000000", // epoch seconds as string, firmware quirk
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	node, err := env.store.GetNode(context.Background(), "node-ingest")
	if err != nil {
		t.Fatal(err)
	}
	if node.Realtime.LastUpdate != 1700000000000 {
		t.Errorf("last_update = %d, want normalized millis 1700000000000", node.Realtime.LastUpdate)
	}
	if node.Realtime.Temperature == nil || *node.Realtime.Temperature != temp {
		t.Errorf("realtime temperature = %v, want %v", node.Realtime.Temperature, temp)
	}

	history, err := env.store.GetNodeHistory(context.Background(), "node-ingest")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(history))
	}
}

func TestIngestThresholdRaisesAlert(t *testing.T) {
	env := newTestEnv(t)
	env.registerTestNode(t, "node-hot")

	settings := models.DefaultSettings()
	settings.Thresholds.Temperature.Enabled = true
	settings.Thresholds.Temperature.Value = 40
	if err := env.store.PutSettings(context.Background(), settings); err != nil {
		t.Fatal(err)
	}

	temp := 48.3
	rec := httptest.NewRecorder()
	env.nodes.Ingest(rec, authedRequest(t, http.MethodPost, "/api/ingest", IngestRequest{
		NodeID:      "node-hot",
		Temperature: &temp,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AlertsCreated []string `json:"alerts_created"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.AlertsCreated) != 1 {
		t.Fatalf("alerts_created = %v, want exactly one", resp.AlertsCreated)
	}

	alert, err := env.store.GetAlert(context.Background(), resp.AlertsCreated[0])
	if err != nil {
		t.Fatalf("GetAlert: %v", err)
	}
	if alert.Severity != settings.Thresholds.Temperature.Severity {
		t.Errorf("severity = %s, want %s", alert.Severity, settings.Thresholds.Temperature.Severity)
	}
	if len(alert.AffectedNodes) != 1 || alert.AffectedNodes[0] != "node-hot" {
		t.Errorf("affected nodes = %v", alert.AffectedNodes)
	}
}

func TestIngestBelowThresholdIsQuiet(t *testing.T) {
	env := newTestEnv(t)
	env.registerTestNode(t, "node-calm")

	settings := models.DefaultSettings()
	settings.Thresholds.Temperature.Enabled = true
	settings.Thresholds.Temperature.Value = 40
	if err := env.store.PutSettings(context.Background(), settings); err != nil {
		t.Fatal(err)
	}

	temp := 25.0
	rec := httptest.NewRecorder()
	env.nodes.Ingest(rec, authedRequest(t, http.MethodPost, "/api/ingest", IngestRequest{
		NodeID:      "node-calm",
		Temperature: &temp,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	alerts, err := env.store.GetAllAlerts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 0 {
		t.Errorf("alerts = %d, want none", len(alerts))
	}
}

func TestDeleteNode(t *testing.T) {
	env := newTestEnv(t)
	env.registerTestNode(t, "node-gone")

	rec := httptest.NewRecorder()
	env.nodes.DeleteNode(rec, authedRequest(t, http.MethodDelete, "/api/nodes/delete", DeleteNodeRequest{ID: "node-gone"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if _, err := env.store.GetNode(context.Background(), "node-gone"); err == nil {
		t.Error("node still present after delete")
	}
}
