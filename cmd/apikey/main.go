package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/rezkam/focusflow/internal/application/auth"
	"github.com/rezkam/focusflow/internal/config"
	"github.com/rezkam/focusflow/internal/infrastructure/persistence/postgres"
)

// Default values for API key format when not configured.
const (
	defaultKeyType     = "sk"
	defaultServiceName = "focus"
	defaultVersion     = "v1"
)

// Command-line tool to create a new API key for a user in the database.
// THIS is not a production-grade tool, just a simple utility for development/testing purposes.
func main() {
	// Define flags
	name := flag.String("name", "", "Name/description for the API key (required)")
	userID := flag.String("user-id", "", "User the key acts as; all tasks are scoped to it (required)")
	days := flag.Int("days", 0, "Number of days until expiration (0 = never expires)")

	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAPIKeyGenConfig(*name, *userID, *days)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		flag.Usage()
		log.Fatal(err)
	}

	ctx := context.Background()

	// Connect to database
	store, err := postgres.NewStoreWithConfig(ctx, postgres.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Failed to close store: %v", err)
		}
	}()

	// Calculate expiration
	var expiresAt *time.Time
	if cfg.DaysValid > 0 {
		expiry := time.Now().UTC().AddDate(0, 0, cfg.DaysValid)
		expiresAt = &expiry
	}

	// Apply defaults for API key format
	keyType := cfg.APIKey.KeyType
	if keyType == "" {
		keyType = defaultKeyType
	}
	serviceName := cfg.APIKey.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	version := cfg.APIKey.Version
	if version == "" {
		version = defaultVersion
	}

	// Generate API key with configurable prefix
	apiKey, err := auth.CreateAPIKey(ctx, store, auth.CreateKeyParams{
		UserID:    cfg.UserID,
		KeyType:   keyType,
		Service:   serviceName,
		Version:   version,
		Name:      cfg.Name,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		log.Fatalf("Failed to create API key: %v", err)
	}

	// Display result
	fmt.Println("\n API Key created successfully!")
	fmt.Println("----------------------------------------")
	fmt.Printf("Name: %s\n", cfg.Name)
	fmt.Printf("User: %s\n", cfg.UserID)
	fmt.Printf("Format: %s-%s-%s-{short}-{long}\n", keyType, serviceName, version)
	if expiresAt != nil {
		fmt.Printf("Expires: %s (%d days)\n", expiresAt.Format(time.RFC3339), cfg.DaysValid)
	} else {
		fmt.Println("Expires: Never")
	}
	fmt.Println("----------------------------------------")
	fmt.Printf("\nAPI Key: %s\n\n", apiKey)
	fmt.Println("IMPORTANT: Save this key now! It will not be shown again.")
	fmt.Println("----------------------------------------")
	fmt.Println("Usage example:")
	fmt.Printf("  curl -H \"Authorization: Bearer %s\" http://localhost:8080/api/v1/days/%s/tasks\n", apiKey, time.Now().Format(time.DateOnly))
}
