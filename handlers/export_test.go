package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloudburst/db"
	"cloudburst/models"
)

func TestExportImportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.registerTestNode(t, "node-1")
	contact := &models.Contact{ID: "c1", Name: "Keeper", Phone: "+919876543210", Preference: models.NotifyBySMS}
	if err := env.store.CreateContact(context.Background(), contact); err != nil {
		t.Fatal(err)
	}

	exporter := NewExportHandler(env.store)

	rec := httptest.NewRecorder()
	exporter.ExportDatabase(rec, authedRequest(t, http.MethodGet, "/api/admin/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body.String())
	}

	var dump models.DatabaseDump
	decodeBody(t, rec, &dump)
	if len(dump.Nodes) != 1 || len(dump.Contacts) != 1 {
		t.Fatalf("dump has %d nodes, %d contacts, want 1 each", len(dump.Nodes), len(dump.Contacts))
	}
	if dump.ExportedAt == 0 {
		t.Error("exported_at not stamped")
	}

	// Restore into a fresh store through the import handler.
	freshStore := db.NewMemoryStore()
	importer := NewExportHandler(freshStore)

	importRec := httptest.NewRecorder()
	importer.ImportDatabase(importRec, authedRequest(t, http.MethodPost, "/api/admin/import", dump))
	if importRec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", importRec.Code, importRec.Body.String())
	}

	node, err := freshStore.GetNode(context.Background(), "node-1")
	if err != nil {
		t.Fatalf("GetNode after import: %v", err)
	}
	if node.Metadata.Name != "Node node-1" {
		t.Errorf("imported node name = %q", node.Metadata.Name)
	}
	if _, err := freshStore.GetContact(context.Background(), "c1"); err != nil {
		t.Errorf("GetContact after import: %v", err)
	}
}

func TestExportExcludesAuthData(t *testing.T) {
	env := newTestEnv(t)
	user := &models.User{UserID: "user-1", Username: "op", Role: models.RoleOperator}
	if err := env.store.CreateUser(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	if err := env.store.StorePasswordHash(context.Background(), "user-1", "hash"); err != nil {
		t.Fatal(err)
	}

	exporter := NewExportHandler(env.store)
	rec := httptest.NewRecorder()
	exporter.ExportDatabase(rec, authedRequest(t, http.MethodGet, "/api/admin/export", nil))

	body := rec.Body.String()
	for _, needle := range []string{"user-1", "hash"} {
		if strings.Contains(body, needle) {
			t.Errorf("dump contains auth data %q", needle)
		}
	}
}
