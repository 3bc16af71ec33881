// main.go
// Cloudburst Dashboard API
// Node registry, alerting with SMS fan-out, history, settings and
// notifications over the Firebase Realtime Database

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cloudburst/auth"
	"cloudburst/config"
	"cloudburst/db"
	"cloudburst/handlers"
	"cloudburst/middleware"
	"cloudburst/sms"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	cfg := config.Load()
	cfg.Validate()

	log.Printf("🚀 Starting Cloudburst API Server")
	log.Printf("📍 Environment: %s", cfg.Server.Environment)
	log.Printf("🔧 Port: %s", cfg.Server.Port)

	// Initialize the store
	ctx := context.Background()
	var store db.Store
	switch cfg.Store.Driver {
	case "realtime":
		rtdb, err := db.NewRealtimeDB(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath, cfg.Firebase.DatabaseURL)
		if err != nil {
			log.Fatalf("❌ Failed to initialize Realtime Database: %v", err)
		}
		store = rtdb
		log.Printf("🔥 Realtime Database connected: %s", cfg.Firebase.DatabaseURL)
	case "memory":
		store = db.NewMemoryStore()
		log.Printf("⚠️  Using in-memory store, data will not survive a restart")
	}
	defer store.Close()

	// Initialize JWT Manager
	jwtManager := auth.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.Expiration,
		cfg.JWT.RefreshTokenExpiration,
	)
	log.Printf("🔐 JWT Manager initialized (expiration: %v)", cfg.JWT.Expiration)

	// Initialize SMS dispatcher
	dispatcher := sms.NewDispatcher(cfg.Twilio)
	if dispatcher.Configured() {
		log.Printf("📱 SMS dispatcher configured (from %s)", cfg.Twilio.FromNumber)
	} else {
		log.Printf("⚠️  SMS dispatcher not configured, alerts will be in-app only")
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(store, jwtManager)
	alertHandler := handlers.NewAlertHandler(store, dispatcher)
	nodeHandler := handlers.NewNodeHandler(store, alertHandler)
	contactHandler := handlers.NewContactHandler(store)
	historyHandler := handlers.NewHistoryHandler(store)
	settingsHandler := handlers.NewSettingsHandler(store)
	logHandler := handlers.NewLogHandler(store)
	notificationHandler := handlers.NewNotificationHandler(store, dispatcher)
	predictionHandler := handlers.NewPredictionHandler(cfg.Prediction.CSVPath)
	adminHandler := handlers.NewAdminHandler(store)
	exportHandler := handlers.NewExportHandler(store)
	log.Printf("✅ Handlers initialized")

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	rateLimiter.CleanupOldLimiters()
	log.Printf("🛡️  Rate limiter initialized (%d requests per %v)", cfg.RateLimit.Requests, cfg.RateLimit.Window)

	// Set up router
	mux := http.NewServeMux()

	// Public routes (no authentication required)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/api/login", authHandler.Login)
	mux.HandleFunc("/api/refresh", authHandler.RefreshToken)

	// Sensor ingest (API key, not JWT; devices are not dashboard users)
	ingestAuth := middleware.APIKeyMiddleware(cfg.Ingest.APIKey)
	mux.Handle("/api/ingest", ingestAuth(http.HandlerFunc(nodeHandler.Ingest)))

	// Protected routes (authentication required)
	authMiddleware := middleware.AuthMiddleware(jwtManager, store)
	operatorUp := middleware.RequireRole("OPERATOR", "ADMIN")
	adminOnly := middleware.RequireRole("ADMIN")

	read := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}
	mutate := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(operatorUp(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(adminOnly(h))
	}

	// Node endpoints
	mux.Handle("/api/nodes", read(nodeHandler.GetNodes))
	mux.Handle("/api/nodes/register", mutate(nodeHandler.RegisterNode))
	mux.Handle("/api/nodes/update", mutate(nodeHandler.UpdateNode))
	mux.Handle("/api/nodes/delete", admin(nodeHandler.DeleteNode))

	// Alert endpoints
	mux.Handle("/api/alerts", read(alertHandler.GetAlerts))
	mux.Handle("/api/alerts/create", mutate(alertHandler.CreateAlert))
	mux.Handle("/api/alerts/acknowledge", mutate(alertHandler.AcknowledgeAlert))

	// Contact endpoints
	mux.Handle("/api/contacts", read(contactHandler.GetContacts))
	mux.Handle("/api/contacts/create", mutate(contactHandler.CreateContact))
	mux.Handle("/api/contacts/delete", mutate(contactHandler.DeleteContact))

	// History endpoints
	mux.Handle("/api/history", read(historyHandler.GetHistory))
	mux.Handle("/api/history/export", read(historyHandler.ExportHistoryCSV))

	// Settings endpoints
	mux.Handle("/api/settings", read(settingsHandler.GetSettings))
	mux.Handle("/api/settings/save", mutate(settingsHandler.SaveSettings))

	// Logs, notifications, prediction
	mux.Handle("/api/logs", read(logHandler.GetLogs))
	mux.Handle("/api/notifications", read(notificationHandler.GetNotifications))
	mux.Handle("/api/notifications/sms", mutate(notificationHandler.SendSMS))
	mux.Handle("/api/notifications/status", read(notificationHandler.SMSStatus))
	mux.Handle("/api/predict", read(predictionHandler.GetPredictions))

	// Admin endpoints (admin only)
	mux.Handle("/api/admin/users", admin(adminHandler.GetUsers))
	mux.Handle("/api/admin/users/create", admin(adminHandler.CreateUser))
	mux.Handle("/api/admin/users/update", admin(adminHandler.UpdateUser))
	mux.Handle("/api/admin/users/delete", admin(adminHandler.DeleteUser))
	mux.Handle("/api/admin/users/reset-password", admin(adminHandler.ResetPassword))
	mux.Handle("/api/admin/history/cleanup", admin(adminHandler.CleanupHistory))
	mux.Handle("/api/admin/history/generate", admin(adminHandler.GenerateHistory))
	mux.Handle("/api/admin/export", admin(exportHandler.ExportDatabase))
	mux.Handle("/api/admin/import", admin(exportHandler.ImportDatabase))

	// Apply global middleware
	handler := middleware.CORSMiddleware(cfg.CORS.AllowedOrigins)(mux)
	handler = rateLimiter.Middleware()(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("✅ Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}

// Health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":%d,"version":"1.0.0"}`, time.Now().Unix())
}
