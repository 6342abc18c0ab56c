package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL                 string
	PollInterval                int // seconds
	ShutdownTimeout             int // seconds
	FyleClientID                string
	FyleClientSecret            string
	BusinessCentralClientID     string
	BusinessCentralClientSecret string
	BusinessCentralEnvironment  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	fyleClientID := os.Getenv("FYLE_CLIENT_ID")
	fyleClientSecret := os.Getenv("FYLE_CLIENT_SECRET")
	if fyleClientID == "" || fyleClientSecret == "" {
		fmt.Println("Warning: FYLE_CLIENT_ID or FYLE_CLIENT_SECRET not set, Fyle API will not work")
	}

	bcClientID := os.Getenv("BUSINESS_CENTRAL_CLIENT_ID")
	bcClientSecret := os.Getenv("BUSINESS_CENTRAL_CLIENT_SECRET")
	if bcClientID == "" || bcClientSecret == "" {
		fmt.Println("Warning: BUSINESS_CENTRAL_CLIENT_ID or BUSINESS_CENTRAL_CLIENT_SECRET not set, Business Central API will not work")
	}

	bcEnvironment := os.Getenv("BUSINESS_CENTRAL_ENVIRONMENT")
	if bcEnvironment == "" {
		bcEnvironment = "production"
	}

	return &Config{
		DatabaseURL:                 dbURL,
		PollInterval:                intEnv("POLL_INTERVAL_SECONDS", 60),
		ShutdownTimeout:             intEnv("SHUTDOWN_TIMEOUT_SECONDS", 30),
		FyleClientID:                fyleClientID,
		FyleClientSecret:            fyleClientSecret,
		BusinessCentralClientID:     bcClientID,
		BusinessCentralClientSecret: bcClientSecret,
		BusinessCentralEnvironment:  bcEnvironment,
	}, nil
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		fmt.Printf("Warning: invalid %s %q, using default %d\n", key, raw, fallback)
		return fallback
	}
	return value
}
