package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"

	"cloudburst/db"
	"cloudburst/models"
	"cloudburst/sms"
)

type NotificationHandler struct {
	store      db.Store
	dispatcher *sms.Dispatcher
}

func NewNotificationHandler(store db.Store, dispatcher *sms.Dispatcher) *NotificationHandler {
	return &NotificationHandler{
		store:      store,
		dispatcher: dispatcher,
	}
}

// GetNotifications returns unexpired in-app notifications, newest first.
// Expired records stay in the store; this read is the only place the TTL
// is enforced.
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	all, err := h.store.GetAllNotifications(r.Context())
	if err != nil {
		log.Printf("❌ Failed to get notifications: %v", err)
		writeError(w, "Failed to retrieve notifications", http.StatusInternalServerError)
		return
	}

	now := nowMillis()
	active := make([]models.Notification, 0, len(all))
	for _, n := range all {
		if n.ExpiresAt > now {
			active = append(active, n)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt > active[j].CreatedAt
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": active,
		"count":         len(active),
	})
}

type SendSMSRequest struct {
	Recipients []string        `json:"recipients"`
	Message    string          `json:"message"`
	AlertID    string          `json:"alert_id,omitempty"`
	Severity   models.Severity `json:"severity,omitempty"`
}

// SendSMS dispatches an ad-hoc SMS to explicit recipients, bypassing alert
// creation. Numbers are normalized before dispatch; one bad number fails
// the whole request rather than sending to a partial list.
func (h *NotificationHandler) SendSMS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SendSMSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Message == "" {
		writeError(w, "Message is required", http.StatusBadRequest)
		return
	}
	if len(req.Recipients) == 0 {
		writeError(w, "At least one recipient is required", http.StatusBadRequest)
		return
	}

	recipients := make([]string, 0, len(req.Recipients))
	for _, raw := range req.Recipients {
		phone, err := models.NormalizePhone(raw)
		if err != nil {
			writeTaxonomyError(w, err, "Invalid recipient")
			return
		}
		recipients = append(recipients, phone)
	}

	result := h.dispatcher.Send(r.Context(), recipients, req.Message)

	metadata := map[string]interface{}{
		"recipients": len(recipients),
		"sent":       result.SuccessCount,
		"failed":     result.FailureCount,
	}
	if req.AlertID != "" {
		metadata["alert_id"] = req.AlertID
	}
	if req.Severity != "" {
		metadata["severity"] = req.Severity
	}
	appendLog(r.Context(), h.store, models.LogSMSDispatched, "Manual SMS dispatch", metadata)

	status := http.StatusOK
	if !result.Configured {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, result)
}

// SMSStatus reports whether the SMS gateway is configured, with credentials
// masked.
func (h *NotificationHandler) SMSStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.dispatcher.Status())
}
