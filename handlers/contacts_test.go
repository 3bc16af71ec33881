package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloudburst/models"
)

func TestCreateContactNormalizesPhone(t *testing.T) {
	env := newTestEnv(t)
	env.registerTestNode(t, "node-1")

	cases := []struct {
		in   string
		want string
	}{
		{"9876543210", "+919876543210"},
		{"91 98765 43210", "+919876543210"},
		{"+91-98765-43210", "+919876543210"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		env.contacts.CreateContact(rec, authedRequest(t, http.MethodPost, "/api/contacts/create", CreateContactRequest{
			Name:            "Contact " + tc.in,
			Phone:           tc.in,
			AssociatedNodes: []string{"node-1"},
		}))
		if rec.Code != http.StatusCreated {
			t.Fatalf("phone %q: status = %d, body %s", tc.in, rec.Code, rec.Body.String())
		}
		var contact models.Contact
		decodeBody(t, rec, &contact)
		if contact.Phone != tc.want {
			t.Errorf("phone %q normalized to %q, want %q", tc.in, contact.Phone, tc.want)
		}
		if contact.Preference != models.NotifyBySMS {
			t.Errorf("default preference = %s, want sms", contact.Preference)
		}
	}
}

func TestCreateContactRejectsBadPhone(t *testing.T) {
	env := newTestEnv(t)

	for _, phone := range []string{"12345", "5876543210", "919876543210123", "not-a-number"} {
		rec := httptest.NewRecorder()
		env.contacts.CreateContact(rec, authedRequest(t, http.MethodPost, "/api/contacts/create", CreateContactRequest{
			Name:  "Bad",
			Phone: phone,
		}))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("phone %q: status = %d, want 400", phone, rec.Code)
		}
	}

	contacts, err := env.store.GetAllContacts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 0 {
		t.Errorf("contacts written despite invalid phones: %d", len(contacts))
	}
}

func TestCreateContactRejectsUnknownNode(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.contacts.CreateContact(rec, authedRequest(t, http.MethodPost, "/api/contacts/create", CreateContactRequest{
		Name:            "Orphan",
		Phone:           "9876543210",
		AssociatedNodes: []string{"node-ghost"},
	}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteContact(t *testing.T) {
	env := newTestEnv(t)

	contact := &models.Contact{ID: "c1", Name: "Temp", Phone: "+919876543210", Preference: models.NotifyBySMS}
	if err := env.store.CreateContact(context.Background(), contact); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	env.contacts.DeleteContact(rec, authedRequest(t, http.MethodDelete, "/api/contacts/delete?id=c1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	if _, err := env.store.GetContact(context.Background(), "c1"); err == nil {
		t.Error("contact still present after delete")
	}
}

func TestDeleteUnknownContact(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.contacts.DeleteContact(rec, authedRequest(t, http.MethodDelete, "/api/contacts/delete?id=missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
