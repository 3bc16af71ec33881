package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"cloudburst/models"
)

func testNode(id string, lat, lon float64) *models.Node {
	return &models.Node{
		Metadata: models.NodeMetadata{
			ID:        id,
			Name:      "Node " + id,
			Type:      models.NodeTypeSensor,
			Latitude:  lat,
			Longitude: lon,
		},
	}
}

func TestCreateNodeRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.CreateNode(ctx, "node1", testNode("node1", 28.6139, 77.2090)); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	err := store.CreateNode(ctx, "node1", testNode("node1", 0, 0))
	var dup *models.DuplicateIDError
	if !errors.As(err, &dup) {
		t.Fatalf("duplicate create returned %v, want DuplicateIDError", err)
	}

	// Existing record must be unchanged.
	node, err := store.GetNode(ctx, "node1")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if node.Metadata.Latitude != 28.6139 || node.Metadata.Longitude != 77.2090 {
		t.Errorf("existing record mutated by rejected create: %+v", node.Metadata)
	}
}

func TestGetNodeNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.GetNode(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetNode(missing) = %v, want ErrNotFound", err)
	}
}

func TestStoredNodeIsolatedFromCaller(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	original := testNode("node1", 10, 20)
	if err := store.CreateNode(ctx, "node1", original); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	original.Metadata.Latitude = 99

	node, _ := store.GetNode(ctx, "node1")
	if node.Metadata.Latitude != 10 {
		t.Errorf("store shares memory with caller: lat = %v", node.Metadata.Latitude)
	}
}

func TestHistoryAppendAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.CreateNode(ctx, "node1", testNode("node1", 10, 20)); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	temp := 31.5
	for i := 0; i < 3; i++ {
		ts := int64(1700000000000 + i*60000)
		reading := models.Reading{Temperature: &temp, Timestamp: ts}
		if err := store.AppendNodeReading(ctx, "node1", HistoryKey(ts), reading); err != nil {
			t.Fatalf("AppendNodeReading: %v", err)
		}
	}

	history, err := store.GetNodeHistory(ctx, "node1")
	if err != nil {
		t.Fatalf("GetNodeHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history has %d entries, want 3", len(history))
	}

	if err := store.DeleteNodeReading(ctx, "node1", HistoryKey(1700000000000)); err != nil {
		t.Fatalf("DeleteNodeReading: %v", err)
	}
	history, _ = store.GetNodeHistory(ctx, "node1")
	if len(history) != 2 {
		t.Errorf("history has %d entries after delete, want 2", len(history))
	}
}

func TestRecentLogsLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < 10; i++ {
		entry := &models.LogEntry{
			ID:        fmt.Sprintf("log-%d", i),
			Type:      models.LogNodeRegistered,
			Message:   fmt.Sprintf("event %d", i),
			Timestamp: int64(1700000000000 + i),
		}
		if err := store.AppendLog(ctx, entry); err != nil {
			t.Fatalf("AppendLog: %v", err)
		}
	}

	entries, err := store.GetRecentLogs(ctx, 4)
	if err != nil {
		t.Fatalf("GetRecentLogs: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
	// Oldest-first within the last four.
	if entries[0].ID != "log-6" || entries[3].ID != "log-9" {
		t.Errorf("unexpected window: first=%s last=%s", entries[0].ID, entries[3].ID)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.GetSettings(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSettings on empty store = %v, want ErrNotFound", err)
	}

	settings := models.DefaultSettings()
	settings.System.RetentionDays = 14
	if err := store.PutSettings(ctx, settings); err != nil {
		t.Fatalf("PutSettings: %v", err)
	}

	got, err := store.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.System.RetentionDays != 14 {
		t.Errorf("retention = %d, want 14", got.System.RetentionDays)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.CreateNode(ctx, "node1", testNode("node1", 28.6139, 77.2090)); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	alert := &models.Alert{ID: "a1", Severity: models.SeverityCritical, Message: "rising water", AffectedNodes: []string{"node1"}}
	if err := store.CreateAlert(ctx, alert); err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}
	contact := &models.Contact{ID: "c1", Name: "Asha", Phone: "+919876543210", Preference: models.NotifyBySMS}
	if err := store.CreateContact(ctx, contact); err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	if err := store.PutSettings(ctx, models.DefaultSettings()); err != nil {
		t.Fatalf("PutSettings: %v", err)
	}

	dump, err := store.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if dump.ExportedAt == 0 {
		t.Error("dump missing exported_at stamp")
	}

	restored := NewMemoryStore()
	if err := restored.Import(ctx, dump); err != nil {
		t.Fatalf("Import: %v", err)
	}

	node, err := restored.GetNode(ctx, "node1")
	if err != nil {
		t.Fatalf("GetNode after import: %v", err)
	}
	if node.Metadata.Latitude != 28.6139 {
		t.Errorf("node lat = %v after round trip", node.Metadata.Latitude)
	}
	if _, err := restored.GetAlert(ctx, "a1"); err != nil {
		t.Errorf("alert missing after round trip: %v", err)
	}
	if _, err := restored.GetContact(ctx, "c1"); err != nil {
		t.Errorf("contact missing after round trip: %v", err)
	}
	if _, err := restored.GetSettings(ctx); err != nil {
		t.Errorf("settings missing after round trip: %v", err)
	}
}
