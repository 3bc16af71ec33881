package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"cloudburst/db"
	"cloudburst/models"
)

type ContactHandler struct {
	store db.Store
}

func NewContactHandler(store db.Store) *ContactHandler {
	return &ContactHandler{store: store}
}

type CreateContactRequest struct {
	Name            string                  `json:"name"`
	Phone           string                  `json:"phone"`
	Email           string                  `json:"email"`
	Preference      models.NotifyPreference `json:"preference"`
	AssociatedNodes []string                `json:"associated_nodes"`
}

// CreateContact registers a notification recipient. The phone number is
// normalized to +91XXXXXXXXXX before persisting; anything that does not
// normalize is rejected.
func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, "Contact name is required", http.StatusBadRequest)
		return
	}

	phone, err := models.NormalizePhone(req.Phone)
	if err != nil {
		writeTaxonomyError(w, err, "Invalid phone number")
		return
	}

	preference := req.Preference
	if preference == "" {
		preference = models.NotifyBySMS
	}
	switch preference {
	case models.NotifyBySMS, models.NotifyByEmail, models.NotifyByBoth:
	default:
		writeError(w, "Preference must be sms, email or both", http.StatusBadRequest)
		return
	}

	for _, nodeID := range req.AssociatedNodes {
		if _, err := h.store.GetNode(r.Context(), nodeID); err != nil {
			writeError(w, fmt.Sprintf("Associated node %q does not exist", nodeID), http.StatusBadRequest)
			return
		}
	}

	contact := &models.Contact{
		ID:              uuid.New().String(),
		Name:            req.Name,
		Phone:           phone,
		Email:           req.Email,
		Preference:      preference,
		AssociatedNodes: req.AssociatedNodes,
		CreatedAt:       nowMillis(),
	}
	if err := h.store.CreateContact(r.Context(), contact); err != nil {
		log.Printf("❌ Failed to create contact: %v", err)
		writeError(w, "Failed to create contact", http.StatusInternalServerError)
		return
	}

	appendLog(r.Context(), h.store, models.LogContactAdded,
		fmt.Sprintf("Contact %s (%s) added", contact.Name, contact.Phone),
		map[string]interface{}{"contact_id": contact.ID})

	log.Printf("✅ Contact created: %s (%s)", contact.Name, contact.Phone)
	writeJSON(w, http.StatusCreated, contact)
}

// GetContacts returns all contacts.
func (h *ContactHandler) GetContacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contacts, err := h.store.GetAllContacts(r.Context())
	if err != nil {
		log.Printf("❌ Failed to get contacts: %v", err)
		writeError(w, "Failed to retrieve contacts", http.StatusInternalServerError)
		return
	}

	list := make([]models.Contact, 0, len(contacts))
	for _, c := range contacts {
		list = append(list, c)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"contacts": list,
		"count":    len(list),
	})
}

// DeleteContact removes a contact by id from the query string.
func (h *ContactHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, "Contact ID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetContact(r.Context(), id); err != nil {
		writeTaxonomyError(w, err, "Failed to load contact")
		return
	}

	if err := h.store.DeleteContact(r.Context(), id); err != nil {
		log.Printf("❌ Failed to delete contact %s: %v", id, err)
		writeError(w, "Failed to delete contact", http.StatusInternalServerError)
		return
	}

	appendLog(r.Context(), h.store, models.LogContactDeleted,
		fmt.Sprintf("Contact %s deleted", id),
		map[string]interface{}{"contact_id": id})

	log.Printf("🗑️  Contact deleted: %s", id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      id,
	})
}
