package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"cloudburst/auth"
	"cloudburst/db"
	"cloudburst/middleware"
	"cloudburst/models"
)

type AdminHandler struct {
	store db.Store
}

func NewAdminHandler(store db.Store) *AdminHandler {
	return &AdminHandler{store: store}
}

// --- User Management ---

type CreateUserRequest struct {
	Username string          `json:"username"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
}

type UpdateUserRequest struct {
	UserID string          `json:"user_id"`
	Role   models.UserRole `json:"role,omitempty"`
}

type DeleteUserRequest struct {
	UserID string `json:"user_id"`
}

type ResetPasswordRequest struct {
	UserID      string `json:"user_id"`
	NewPassword string `json:"new_password"`
}

// GetUsers returns all users
func (h *AdminHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	users, err := h.store.GetAllUsers(r.Context())
	if err != nil {
		log.Printf("❌ Failed to get users: %v", err)
		writeError(w, "Failed to retrieve users", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// CreateUser creates a new user
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	adminUser, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch req.Role {
	case models.RoleAdmin, models.RoleOperator, models.RoleViewer:
	default:
		writeError(w, "Role must be ADMIN, OPERATOR or VIEWER", http.StatusBadRequest)
		return
	}

	existingUser, _ := h.store.GetUserByUsername(r.Context(), req.Username)
	if existingUser != nil {
		writeError(w, "Username already exists", http.StatusConflict)
		return
	}

	userID := fmt.Sprintf("user-%s", req.Username)

	user := &models.User{
		UserID:   userID,
		Username: req.Username,
		Role:     req.Role,
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		log.Printf("❌ Failed to create user: %v", err)
		writeError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("❌ Failed to hash password: %v", err)
		writeError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	if err := h.store.StorePasswordHash(r.Context(), userID, passwordHash); err != nil {
		log.Printf("❌ Failed to store password: %v", err)
		writeError(w, "Failed to store password", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ User created by %s: %s (role: %s)", adminUser.Username, req.Username, req.Role)
	writeJSON(w, http.StatusCreated, user)
}

// UpdateUser updates an existing user's role
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	adminUser, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.UserID == "" {
		writeError(w, "User ID is required", http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		writeError(w, "User not found", http.StatusNotFound)
		return
	}

	if req.Role != "" {
		switch req.Role {
		case models.RoleAdmin, models.RoleOperator, models.RoleViewer:
			user.Role = req.Role
		default:
			writeError(w, "Role must be ADMIN, OPERATOR or VIEWER", http.StatusBadRequest)
			return
		}
	}

	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		log.Printf("❌ Failed to update user: %v", err)
		writeError(w, "Failed to update user", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ User updated by %s: %s", adminUser.Username, user.Username)
	writeJSON(w, http.StatusOK, user)
}

// DeleteUser deletes a user
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	adminUser, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req DeleteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.UserID == "" {
		writeError(w, "User ID is required", http.StatusBadRequest)
		return
	}

	if req.UserID == adminUser.UserID {
		writeError(w, "Cannot delete your own account", http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		writeError(w, "User not found", http.StatusNotFound)
		return
	}

	if err := h.store.DeleteUser(r.Context(), req.UserID); err != nil {
		log.Printf("❌ Failed to delete user: %v", err)
		writeError(w, "Failed to delete user", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ User deleted by %s: %s", adminUser.Username, user.Username)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "User deleted successfully",
	})
}

// ResetPassword sets a new password for a user
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	adminUser, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.UserID == "" || req.NewPassword == "" {
		writeError(w, "User ID and new password are required", http.StatusBadRequest)
		return
	}

	if err := auth.ValidatePasswordStrength(req.NewPassword); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		writeError(w, "User not found", http.StatusNotFound)
		return
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		log.Printf("❌ Failed to hash password: %v", err)
		writeError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	if err := h.store.StorePasswordHash(r.Context(), req.UserID, passwordHash); err != nil {
		log.Printf("❌ Failed to store password: %v", err)
		writeError(w, "Failed to store password", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Password reset by %s for user: %s", adminUser.Username, user.Username)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password reset successfully",
	})
}

// --- History Maintenance ---

type cleanupNodeResult struct {
	Deleted int    `json:"deleted"`
	Failed  int    `json:"failed"`
	Error   string `json:"error,omitempty"`
}

// CleanupHistory deletes history readings older than the configured
// retention window across all nodes. Each node is swept independently; a
// failure on one node does not stop the others.
func (h *AdminHandler) CleanupHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.Printf("❌ Failed to load settings for cleanup: %v", err)
			writeError(w, "Failed to load settings", http.StatusInternalServerError)
			return
		}
		settings = models.DefaultSettings()
	}

	retention := time.Duration(settings.System.RetentionDays) * 24 * time.Hour
	cutoff := time.Now().Add(-retention).UnixMilli()

	nodes, err := h.store.GetAllNodes(r.Context())
	if err != nil {
		log.Printf("❌ Failed to list nodes for cleanup: %v", err)
		writeError(w, "Failed to list nodes", http.StatusInternalServerError)
		return
	}

	results := make(map[string]cleanupNodeResult, len(nodes))
	totalDeleted := 0
	for nodeID := range nodes {
		var res cleanupNodeResult
		history, err := h.store.GetNodeHistory(r.Context(), nodeID)
		if err != nil {
			res.Error = err.Error()
			results[nodeID] = res
			continue
		}
		for key, reading := range history {
			if reading.Timestamp >= cutoff {
				continue
			}
			if err := h.store.DeleteNodeReading(r.Context(), nodeID, key); err != nil {
				res.Failed++
				continue
			}
			res.Deleted++
		}
		totalDeleted += res.Deleted
		results[nodeID] = res
	}

	appendLog(r.Context(), h.store, models.LogHistoryCleanup,
		fmt.Sprintf("History cleanup removed %d readings older than %d days", totalDeleted, settings.System.RetentionDays),
		map[string]interface{}{"deleted": totalDeleted})

	log.Printf("🧹 History cleanup: %d readings removed across %d nodes", totalDeleted, len(nodes))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted":        totalDeleted,
		"retention_days": settings.System.RetentionDays,
		"nodes":          results,
	})
}

type GenerateHistoryRequest struct {
	NodeID          string `json:"node_id"`
	Hours           int    `json:"hours"`
	IntervalMinutes int    `json:"interval_minutes"`
}

// GenerateHistory backfills synthetic readings for a node, for demos and
// chart testing on fresh databases.
func (h *AdminHandler) GenerateHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GenerateHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.NodeID == "" {
		writeError(w, "Node ID is required", http.StatusBadRequest)
		return
	}
	if req.Hours <= 0 {
		req.Hours = 24
	}
	if req.IntervalMinutes <= 0 {
		req.IntervalMinutes = 15
	}

	node, err := h.store.GetNode(r.Context(), req.NodeID)
	if err != nil {
		writeTaxonomyError(w, err, "Failed to load node")
		return
	}

	isGateway := node.Metadata.Type == models.NodeTypeGateway
	interval := time.Duration(req.IntervalMinutes) * time.Minute
	end := time.Now()
	start := end.Add(-time.Duration(req.Hours) * time.Hour)

	written := 0
	for ts := start; ts.Before(end); ts = ts.Add(interval) {
		millis := ts.UnixMilli()
		temp := 22 + rand.Float64()*8
		pressure := 995 + rand.Float64()*20
		reading := models.Reading{
			Temperature: &temp,
			Pressure:    &pressure,
			Timestamp:   millis,
		}
		if isGateway {
			rssi := -60 - rand.Intn(40)
			reading.RSSI = &rssi
		} else {
			humidity := 55 + rand.Float64()*35
			reading.Humidity = &humidity
		}
		if err := h.store.AppendNodeReading(r.Context(), req.NodeID, db.HistoryKey(millis), reading); err != nil {
			log.Printf("❌ Synthetic history stopped for %s after %d readings: %v", req.NodeID, written, err)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"node":    req.NodeID,
				"written": written,
				"error":   err.Error(),
			})
			return
		}
		written++
	}

	log.Printf("🧪 Generated %d synthetic readings for node %s", written, req.NodeID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"node":    req.NodeID,
		"written": written,
	})
}
