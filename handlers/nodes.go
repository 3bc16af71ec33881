package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"cloudburst/db"
	"cloudburst/middleware"
	"cloudburst/models"
	"cloudburst/status"
)

type NodeHandler struct {
	store  db.Store
	alerts *AlertHandler
}

func NewNodeHandler(store db.Store, alerts *AlertHandler) *NodeHandler {
	return &NodeHandler{
		store:  store,
		alerts: alerts,
	}
}

// RegisterNodeRequest carries the metadata for a new node. Latitude and
// longitude are pointers so a missing field is distinguishable from zero.
type RegisterNodeRequest struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        models.NodeType `json:"type"`
	Latitude    *float64        `json:"latitude"`
	Longitude   *float64        `json:"longitude"`
	Altitude    float64         `json:"altitude,omitempty"`
	Description string          `json:"description,omitempty"`
	Installer   string          `json:"installer,omitempty"`
	Neighbors   []string        `json:"neighbors,omitempty"`
}

// RegisterNode validates and creates a node subtree. The create is
// conditional on the id being free, so concurrent registrations cannot
// silently overwrite each other; a read-back confirms the coordinates
// survived the round trip as numbers.
func (h *NodeHandler) RegisterNode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RegisterNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ID == "" || req.Name == "" {
		writeTaxonomyError(w, &models.ValidationError{Field: "id/name", Reason: "required"}, "")
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeTaxonomyError(w, &models.ValidationError{Field: "latitude/longitude", Reason: "required numeric"}, "")
		return
	}
	if err := models.ValidateCoordinates(*req.Latitude, *req.Longitude); err != nil {
		writeTaxonomyError(w, err, "")
		return
	}
	if req.Type == "" {
		req.Type = models.NodeTypeSensor
	}
	if req.Type != models.NodeTypeSensor && req.Type != models.NodeTypeGateway {
		writeTaxonomyError(w, &models.ValidationError{Field: "type", Reason: "must be sensor or gateway"}, "")
		return
	}

	installer := req.Installer
	if user, ok := middleware.GetUserFromContext(r.Context()); ok && installer == "" {
		installer = user.Username
	}

	node := &models.Node{
		Metadata: models.NodeMetadata{
			ID:          req.ID,
			Name:        req.Name,
			Type:        req.Type,
			Latitude:    *req.Latitude,
			Longitude:   *req.Longitude,
			Altitude:    req.Altitude,
			Description: req.Description,
			Installer:   installer,
			CreatedAt:   nowMillis(),
			Neighbors:   req.Neighbors,
		},
		Realtime: models.NodeRealtime{Status: string(status.Offline)},
		History:  map[string]models.Reading{},
	}

	if err := h.store.CreateNode(r.Context(), req.ID, node); err != nil {
		log.Printf("❌ Failed to register node %s: %v", req.ID, err)
		writeTaxonomyError(w, err, "Failed to register node")
		return
	}

	// Read-back verification: a coordinate that comes back as the wrong
	// type or value would render the node invisible on the map.
	stored, err := h.store.GetNode(r.Context(), req.ID)
	if err != nil {
		writeTaxonomyError(w, &models.VerificationError{Path: "nodes/" + req.ID, Reason: "node absent after write"}, "")
		return
	}
	if stored.Metadata.Latitude != *req.Latitude || stored.Metadata.Longitude != *req.Longitude {
		writeTaxonomyError(w, &models.VerificationError{Path: "nodes/" + req.ID, Reason: "coordinates did not round-trip"}, "")
		return
	}

	appendLog(r.Context(), h.store, models.LogNodeRegistered,
		fmt.Sprintf("Node %s registered at (%.4f, %.4f)", req.ID, *req.Latitude, *req.Longitude),
		map[string]interface{}{"node_id": req.ID})

	log.Printf("✅ Node registered: %s (%s)", req.ID, req.Type)
	writeJSON(w, http.StatusCreated, stored)
}

// NodeView is a node with its status computed server-side.
type NodeView struct {
	ID       string              `json:"id"`
	Metadata models.NodeMetadata `json:"metadata"`
	Realtime models.NodeRealtime `json:"realtime"`
	Status   status.Status       `json:"status"`
}

// GetNodes lists all nodes with computed status. The threshold set is the
// caller's explicit choice: ?thresholds=tiered enables the warning band,
// the default is the binary online/offline the dashboard shows.
func (h *NodeHandler) GetNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	thresholds := status.Binary
	if r.URL.Query().Get("thresholds") == "tiered" {
		thresholds = status.Tiered
	}

	nodes, err := h.store.GetAllNodes(r.Context())
	if err != nil {
		log.Printf("❌ Failed to get nodes: %v", err)
		writeError(w, "Failed to retrieve nodes", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	views := make([]NodeView, 0, len(nodes))
	for id, node := range nodes {
		views = append(views, NodeView{
			ID:       id,
			Metadata: node.Metadata,
			Realtime: node.Realtime,
			Status:   status.Classify(node.Realtime.LastUpdate, now, thresholds),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"nodes": views,
		"count": len(views),
	})
}

type UpdateNodeRequest struct {
	ID       string              `json:"id"`
	Metadata models.NodeMetadata `json:"metadata"`
}

// UpdateNode overwrites the metadata subtree unconditionally. There is no
// optimistic-concurrency check; last write wins.
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req UpdateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		writeError(w, "Node ID is required", http.StatusBadRequest)
		return
	}
	if err := models.ValidateCoordinates(req.Metadata.Latitude, req.Metadata.Longitude); err != nil {
		writeTaxonomyError(w, err, "")
		return
	}

	if _, err := h.store.GetNode(r.Context(), req.ID); err != nil {
		writeTaxonomyError(w, err, "Failed to load node")
		return
	}

	req.Metadata.ID = req.ID
	if err := h.store.UpdateNodeMetadata(r.Context(), req.ID, &req.Metadata); err != nil {
		log.Printf("❌ Failed to update node %s: %v", req.ID, err)
		writeError(w, "Failed to update node", http.StatusInternalServerError)
		return
	}

	appendLog(r.Context(), h.store, models.LogNodeUpdated,
		fmt.Sprintf("Node %s metadata updated", req.ID),
		map[string]interface{}{"node_id": req.ID})

	writeJSON(w, http.StatusOK, req.Metadata)
}

type DeleteNodeRequest struct {
	ID string `json:"id"`
}

// DeleteNode removes the whole subtree, history included. Irreversible, and
// alerts or contacts referencing the id keep their dangling references.
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req DeleteNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		writeError(w, "Node ID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetNode(r.Context(), req.ID); err != nil {
		writeTaxonomyError(w, err, "Failed to load node")
		return
	}

	if err := h.store.DeleteNode(r.Context(), req.ID); err != nil {
		log.Printf("❌ Failed to delete node %s: %v", req.ID, err)
		writeError(w, "Failed to delete node", http.StatusInternalServerError)
		return
	}

	appendLog(r.Context(), h.store, models.LogNodeDeleted,
		fmt.Sprintf("Node %s deleted by %s", req.ID, user.Username),
		map[string]interface{}{"node_id": req.ID, "user_id": user.UserID})

	log.Printf("🗑️  Node deleted by %s: %s", user.Username, req.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Node deleted successfully"})
}

// IngestRequest is a sensor write. The timestamp arrives either as epoch
// seconds in a string or epoch millis as a number, depending on firmware.
type IngestRequest struct {
	NodeID      string      `json:"node_id"`
	Temperature *float64    `json:"temperature,omitempty"`
	Pressure    *float64    `json:"pressure,omitempty"`
	Humidity    *float64    `json:"humidity,omitempty"`
	RSSI        *int        `json:"rssi,omitempty"`
	Timestamp   interface{} `json:"timestamp,omitempty"`
}

// Ingest overwrites the node's realtime subtree, appends to history, and
// evaluates the configured threshold rules against the new reading.
func (h *NodeHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.NodeID == "" {
		writeError(w, "node_id is required", http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetNode(r.Context(), req.NodeID); err != nil {
		writeTaxonomyError(w, err, "Failed to load node")
		return
	}

	ts, ok := status.NormalizeMillis(req.Timestamp)
	if !ok {
		ts = nowMillis()
	}

	rt := &models.NodeRealtime{
		Temperature: req.Temperature,
		Pressure:    req.Pressure,
		Humidity:    req.Humidity,
		RSSI:        req.RSSI,
		LastUpdate:  ts,
		Status:      string(status.Online),
	}
	if err := h.store.PutNodeRealtime(r.Context(), req.NodeID, rt); err != nil {
		log.Printf("❌ Failed to write realtime data for %s: %v", req.NodeID, err)
		writeError(w, "Failed to store reading", http.StatusInternalServerError)
		return
	}

	reading := models.Reading{
		Temperature: req.Temperature,
		Pressure:    req.Pressure,
		Humidity:    req.Humidity,
		RSSI:        req.RSSI,
		Timestamp:   ts,
	}
	if err := h.store.AppendNodeReading(r.Context(), req.NodeID, db.HistoryKey(ts), reading); err != nil {
		log.Printf("⚠️  Realtime written but history append failed for %s: %v", req.NodeID, err)
	}

	tripped := h.evaluateThresholds(r, req.NodeID, reading)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"node_id":        req.NodeID,
		"timestamp":      ts,
		"alerts_created": tripped,
	})
}

// evaluateThresholds checks the reading against the enabled rules and raises
// an alert through the standard dispatch path for each rule that trips.
// Returns the ids of alerts created.
func (h *NodeHandler) evaluateThresholds(r *http.Request, nodeID string, reading models.Reading) []string {
	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.Printf("⚠️  Threshold evaluation skipped for %s: %v", nodeID, err)
		}
		return nil
	}

	type check struct {
		signal string
		rule   models.ThresholdRule
		value  *float64
		above  bool // true: trigger when value > rule.Value
	}
	var rssiValue *float64
	if reading.RSSI != nil {
		v := float64(*reading.RSSI)
		rssiValue = &v
	}
	checks := []check{
		{"temperature", settings.Thresholds.Temperature, reading.Temperature, true},
		{"pressure", settings.Thresholds.Pressure, reading.Pressure, false},
		{"humidity", settings.Thresholds.Humidity, reading.Humidity, true},
		{"rssi", settings.Thresholds.RSSI, rssiValue, false},
	}

	var created []string
	for _, c := range checks {
		if !c.rule.Enabled || c.value == nil {
			continue
		}
		breached := (c.above && *c.value > c.rule.Value) || (!c.above && *c.value < c.rule.Value)
		if !breached {
			continue
		}

		direction := "above"
		if !c.above {
			direction = "below"
		}
		message := fmt.Sprintf("Node %s: %s %.2f is %s the configured threshold %.2f",
			nodeID, c.signal, *c.value, direction, c.rule.Value)

		appendLog(r.Context(), h.store, models.LogThresholdTripped, message,
			map[string]interface{}{"node_id": nodeID, "signal": c.signal, "value": *c.value})

		alert, _, err := h.alerts.dispatch(r.Context(), dispatchParams{
			Message:       message,
			Severity:      c.rule.Severity,
			AffectedNodes: []string{nodeID},
			SendSMS:       true,
			CreatedBy:     "threshold-engine",
		})
		if err != nil {
			log.Printf("❌ Threshold alert for %s/%s failed: %v", nodeID, c.signal, err)
			continue
		}
		created = append(created, alert.ID)
	}
	return created
}
