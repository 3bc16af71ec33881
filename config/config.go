package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	JWT        JWTConfig
	Store      StoreConfig
	Firebase   FirebaseConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Twilio     TwilioConfig
	Ingest     IngestConfig
	Prediction PredictionConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
}

type JWTConfig struct {
	Secret                 string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

// StoreConfig selects the backing store. "realtime" is the Firebase Realtime
// Database; "memory" runs without credentials and loses data on restart.
type StoreConfig struct {
	Driver string
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string
	DatabaseURL     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// TwilioConfig configures the SMS provider. Leaving AccountSID empty runs
// the system with SMS dispatch reporting configured:false.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	APIBase    string
}

type IngestConfig struct {
	APIKey string
}

type PredictionConfig struct {
	CSVPath string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Host:        getEnv("HOST", "0.0.0.0"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", "dev-secret-key"),
			Expiration:             parseDuration(getEnv("JWT_EXPIRATION", "30m"), 30*time.Minute),
			RefreshTokenExpiration: parseDuration(getEnv("REFRESH_TOKEN_EXPIRATION", "168h"), 7*24*time.Hour),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "realtime"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./serviceAccountKey.json"),
			DatabaseURL:     getEnv("FIREBASE_DATABASE_URL", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		RateLimit: RateLimitConfig{
			Requests: parseInt(getEnv("RATE_LIMIT_REQUESTS", "100"), 100),
			Window:   parseDuration(getEnv("RATE_LIMIT_WINDOW", "60"), 60*time.Second),
		},
		Twilio: TwilioConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
			APIBase:    getEnv("TWILIO_API_BASE", "https://api.twilio.com"),
		},
		Ingest: IngestConfig{
			APIKey: getEnv("INGEST_API_KEY", ""),
		},
		Prediction: PredictionConfig{
			CSVPath: getEnv("PREDICTION_CSV_PATH", "./data/cloudburst_predictions.csv"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	// If it's just a number, assume seconds
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}

func parseStringSlice(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func (c *Config) Validate() {
	if c.JWT.Secret == "dev-secret-key" && c.IsProduction() {
		log.Fatal("JWT_SECRET must be set in production")
	}
	switch c.Store.Driver {
	case "realtime":
		if c.Firebase.ProjectID == "" {
			log.Fatal("FIREBASE_PROJECT_ID must be set")
		}
		if c.Firebase.DatabaseURL == "" {
			log.Fatal("FIREBASE_DATABASE_URL must be set")
		}
		if _, err := os.Stat(c.Firebase.CredentialsPath); os.IsNotExist(err) {
			log.Fatalf("Firebase credentials file not found: %s", c.Firebase.CredentialsPath)
		}
	case "memory":
		if c.IsProduction() {
			log.Fatal("STORE_DRIVER=memory is not allowed in production")
		}
	default:
		log.Fatalf("Unknown store driver: %s", c.Store.Driver)
	}
	if c.Ingest.APIKey == "" && c.IsProduction() {
		log.Fatal("INGEST_API_KEY must be set in production")
	}
}
