package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"cloudburst/db"
	"cloudburst/middleware"
	"cloudburst/models"
	"cloudburst/sms"
)

type AlertHandler struct {
	store      db.Store
	dispatcher *sms.Dispatcher
}

func NewAlertHandler(store db.Store, dispatcher *sms.Dispatcher) *AlertHandler {
	return &AlertHandler{
		store:      store,
		dispatcher: dispatcher,
	}
}

type CreateAlertRequest struct {
	Message       string          `json:"message"`
	Severity      models.Severity `json:"severity"`
	AffectedNodes []string        `json:"affected_nodes"`
	SendSMS       bool            `json:"send_sms"`
}

type CreateAlertResponse struct {
	Alert      *models.Alert       `json:"alert"`
	Recipients []string            `json:"recipients"`
	SMS        *sms.DispatchResult `json:"sms,omitempty"`
}

// CreateAlert runs the full dispatch flow: validate, persist, verify,
// fan out per-node back-references, log, compute recipients, optionally
// send SMS, and drop an in-app notification.
func (h *AlertHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req CreateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	alert, smsResult, err := h.dispatch(r.Context(), dispatchParams{
		Message:       req.Message,
		Severity:      req.Severity,
		AffectedNodes: req.AffectedNodes,
		SendSMS:       req.SendSMS,
		CreatedBy:     user.Username,
	})
	if err != nil {
		writeTaxonomyError(w, err, "Failed to create alert")
		return
	}

	log.Printf("🚨 Alert created by %s: %s (%s, %d nodes)", user.Username, alert.ID, alert.Severity, len(alert.AffectedNodes))
	writeJSON(w, http.StatusCreated, CreateAlertResponse{
		Alert:      alert,
		Recipients: alert.Recipients,
		SMS:        smsResult,
	})
}

type dispatchParams struct {
	Message       string
	Severity      models.Severity
	AffectedNodes []string
	SendSMS       bool
	CreatedBy     string
}

// dispatch is the shared alert-creation core used by both the handler and
// the threshold engine. The alert record write is the point of no return:
// everything after it (back-references, log, SMS, notification) is
// best-effort with no rollback.
func (h *AlertHandler) dispatch(ctx context.Context, p dispatchParams) (*models.Alert, *sms.DispatchResult, error) {
	if strings.TrimSpace(p.Message) == "" {
		return nil, nil, &models.ValidationError{Field: "message", Reason: "required"}
	}
	if len(p.Message) > models.MaxAlertMessageLength {
		return nil, nil, &models.ValidationError{Field: "message", Reason: fmt.Sprintf("must be at most %d characters", models.MaxAlertMessageLength)}
	}
	if len(p.AffectedNodes) == 0 {
		return nil, nil, &models.ValidationError{Field: "affected_nodes", Reason: "must list at least one node"}
	}
	if !models.ValidSeverity(p.Severity) {
		return nil, nil, &models.ValidationError{Field: "severity", Reason: "must be warning or critical"}
	}
	for _, nodeID := range p.AffectedNodes {
		if _, err := h.store.GetNode(ctx, nodeID); err != nil {
			return nil, nil, &models.ValidationError{Field: "affected_nodes", Reason: fmt.Sprintf("node %q does not exist", nodeID)}
		}
	}

	recipients, err := h.computeRecipients(ctx, p.AffectedNodes)
	if err != nil {
		return nil, nil, err
	}

	alert := &models.Alert{
		ID:            uuid.New().String(),
		Severity:      p.Severity,
		Message:       p.Message,
		AffectedNodes: p.AffectedNodes,
		CreatedAt:     nowMillis(),
		Recipients:    recipients,
	}
	if err := h.store.CreateAlert(ctx, alert); err != nil {
		return nil, nil, err
	}

	if _, err := h.store.GetAlert(ctx, alert.ID); err != nil {
		return nil, nil, &models.VerificationError{Path: "alerts/" + alert.ID, Reason: "alert absent after write"}
	}

	// Back-references are independent writes; a failure partway leaves some
	// nodes referenced and others not.
	ref := models.AlertRef{AlertID: alert.ID, Severity: alert.Severity, CreatedAt: alert.CreatedAt}
	for _, nodeID := range p.AffectedNodes {
		if err := h.store.PutNodeAlertRef(ctx, nodeID, ref); err != nil {
			log.Printf("⚠️  Back-reference write failed for node %s, alert %s: %v", nodeID, alert.ID, err)
		}
	}

	appendLog(ctx, h.store, models.LogAlertCreated,
		fmt.Sprintf("Alert %s (%s) created by %s affecting %d node(s)", alert.ID, alert.Severity, p.CreatedBy, len(p.AffectedNodes)),
		map[string]interface{}{"alert_id": alert.ID, "nodes": p.AffectedNodes})

	var smsResult *sms.DispatchResult
	if p.SendSMS {
		smsResult = h.dispatcher.Send(ctx, recipients, p.Message)
		alert.SMSSent = smsResult.Success && smsResult.Configured
		if err := h.store.UpdateAlert(ctx, alert); err != nil {
			log.Printf("⚠️  Failed to record SMS flag on alert %s: %v", alert.ID, err)
		}
		appendLog(ctx, h.store, models.LogSMSDispatched,
			fmt.Sprintf("SMS dispatch for alert %s: %d sent, %d failed (configured=%v)",
				alert.ID, smsResult.SuccessCount, smsResult.FailureCount, smsResult.Configured),
			map[string]interface{}{"alert_id": alert.ID})
	}

	notification := &models.Notification{
		ID:        uuid.New().String(),
		AlertID:   alert.ID,
		Severity:  alert.Severity,
		Message:   alert.Message,
		CreatedAt: alert.CreatedAt,
		ExpiresAt: time.UnixMilli(alert.CreatedAt).Add(models.NotificationTTLDays * 24 * time.Hour).UnixMilli(),
	}
	if err := h.store.CreateNotification(ctx, notification); err != nil {
		log.Printf("⚠️  Failed to create notification for alert %s: %v", alert.ID, err)
	}

	return alert, smsResult, nil
}

// computeRecipients returns the phone numbers of contacts whose associated
// node set intersects the affected set. Email-only contacts are skipped.
func (h *AlertHandler) computeRecipients(ctx context.Context, affectedNodes []string) ([]string, error) {
	contacts, err := h.store.GetAllContacts(ctx)
	if err != nil {
		return nil, err
	}

	affected := make(map[string]bool, len(affectedNodes))
	for _, id := range affectedNodes {
		affected[id] = true
	}

	var recipients []string
	seen := make(map[string]bool)
	for _, contact := range contacts {
		if contact.Preference == models.NotifyByEmail {
			continue
		}
		for _, nodeID := range contact.AssociatedNodes {
			if affected[nodeID] {
				if !seen[contact.Phone] {
					seen[contact.Phone] = true
					recipients = append(recipients, contact.Phone)
				}
				break
			}
		}
	}
	return recipients, nil
}

// GetAlerts returns all alerts.
func (h *AlertHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	alerts, err := h.store.GetAllAlerts(r.Context())
	if err != nil {
		log.Printf("❌ Failed to get alerts: %v", err)
		writeError(w, "Failed to retrieve alerts", http.StatusInternalServerError)
		return
	}

	list := make([]models.Alert, 0, len(alerts))
	for _, alert := range alerts {
		list = append(list, alert)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": list,
		"count":  len(list),
	})
}

type AcknowledgeAlertRequest struct {
	ID string `json:"id"`
}

// AcknowledgeAlert marks an alert acknowledged. The write is an
// unconditional overwrite; acknowledging twice is harmless and keeps the
// first acknowledger only by chance of who wrote last.
func (h *AlertHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req AcknowledgeAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		writeError(w, "Alert ID is required", http.StatusBadRequest)
		return
	}

	alert, err := h.store.GetAlert(r.Context(), req.ID)
	if err != nil {
		writeTaxonomyError(w, err, "Failed to load alert")
		return
	}

	alert.Acknowledged = true
	alert.AcknowledgedBy = user.Username
	alert.AcknowledgedAt = nowMillis()
	if err := h.store.UpdateAlert(r.Context(), alert); err != nil {
		log.Printf("❌ Failed to acknowledge alert %s: %v", req.ID, err)
		writeError(w, "Failed to acknowledge alert", http.StatusInternalServerError)
		return
	}

	appendLog(r.Context(), h.store, models.LogAlertAcknowledged,
		fmt.Sprintf("Alert %s acknowledged by %s", req.ID, user.Username),
		map[string]interface{}{"alert_id": req.ID, "user_id": user.UserID})

	writeJSON(w, http.StatusOK, alert)
}
