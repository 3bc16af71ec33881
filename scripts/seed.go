package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"cloudburst/auth"
	"cloudburst/config"
	"cloudburst/db"
	"cloudburst/models"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	cfg.Validate()

	ctx := context.Background()
	var store db.Store
	switch cfg.Store.Driver {
	case "realtime":
		rtdb, err := db.NewRealtimeDB(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath, cfg.Firebase.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize Realtime Database: %v", err)
		}
		store = rtdb
	case "memory":
		log.Fatal("Seeding the memory store is pointless, it is empty on every start")
	}
	defer store.Close()

	log.Println("🌱 Starting database seeding...")

	if err := seedUsers(ctx, store); err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}

	if err := seedNodes(ctx, store); err != nil {
		log.Fatalf("Failed to seed nodes: %v", err)
	}

	if err := store.PutSettings(ctx, models.DefaultSettings()); err != nil {
		log.Fatalf("Failed to seed settings: %v", err)
	}
	log.Println("  ✓ Wrote default settings")

	log.Println("✅ Database seeding completed successfully!")
}

func seedUsers(ctx context.Context, store db.Store) error {
	users := []struct {
		User     models.User
		Password string
	}{
		{
			User: models.User{
				UserID:   "user-admin",
				Username: "admin",
				Role:     models.RoleAdmin,
			},
			Password: "admin1234",
		},
		{
			User: models.User{
				UserID:   "user-operator",
				Username: "operator",
				Role:     models.RoleOperator,
			},
			Password: "operator1234",
		},
		{
			User: models.User{
				UserID:   "user-viewer",
				Username: "viewer",
				Role:     models.RoleViewer,
			},
			Password: "viewer1234",
		},
	}

	for _, userData := range users {
		if err := store.CreateUser(ctx, &userData.User); err != nil {
			return fmt.Errorf("failed to create user %s: %w", userData.User.Username, err)
		}

		passwordHash, err := auth.HashPassword(userData.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", userData.User.Username, err)
		}

		if err := store.StorePasswordHash(ctx, userData.User.UserID, passwordHash); err != nil {
			return fmt.Errorf("failed to store password for %s: %w", userData.User.Username, err)
		}

		log.Printf("  ✓ Created user: %s (role: %s)", userData.User.Username, userData.User.Role)
	}

	return nil
}

func seedNodes(ctx context.Context, store db.Store) error {
	now := time.Now().UnixMilli()
	nodes := []models.Node{
		{
			Metadata: models.NodeMetadata{
				ID:          "node-valley-01",
				Name:        "Valley Floor Sensor 1",
				Type:        models.NodeTypeSensor,
				Latitude:    32.2396,
				Longitude:   77.1887,
				Altitude:    2050,
				Description: "River bank, upstream of the footbridge",
				CreatedAt:   now,
			},
		},
		{
			Metadata: models.NodeMetadata{
				ID:          "node-ridge-01",
				Name:        "Ridge Sensor 1",
				Type:        models.NodeTypeSensor,
				Latitude:    32.2512,
				Longitude:   77.1754,
				Altitude:    2840,
				Description: "Exposed ridge above the village",
				CreatedAt:   now,
			},
		},
		{
			Metadata: models.NodeMetadata{
				ID:          "gateway-base",
				Name:        "Base Station Gateway",
				Type:        models.NodeTypeGateway,
				Latitude:    32.2432,
				Longitude:   77.1892,
				Altitude:    2010,
				Description: "Rooftop gateway at the monitoring station",
				CreatedAt:   now,
				Neighbors:   []string{"node-valley-01", "node-ridge-01"},
			},
		},
	}

	for _, node := range nodes {
		if err := store.CreateNode(ctx, node.Metadata.ID, &node); err != nil {
			return fmt.Errorf("failed to create node %s: %w", node.Metadata.ID, err)
		}
		log.Printf("  ✓ Created node: %s (%s)", node.Metadata.Name, node.Metadata.Type)
	}

	return nil
}
