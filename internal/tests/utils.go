package tests

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Layr-Labs/chainwatch/internal/config"
	"github.com/google/uuid"
)

func GetConfig() *config.Config {
	return config.NewConfig()
}

// GetDbConfigFromEnv reads the database used by postgres backed tests.
func GetDbConfigFromEnv() *config.DatabaseConfig {
	port, err := strconv.Atoi(getEnvOrDefault("CHAINWATCH_DATABASE_PORT", "5432"))
	if err != nil {
		port = 5432
	}
	return &config.DatabaseConfig{
		Enabled:    true,
		Host:       getEnvOrDefault("CHAINWATCH_DATABASE_HOST", "localhost"),
		Port:       port,
		User:       os.Getenv("CHAINWATCH_DATABASE_USER"),
		Password:   os.Getenv("CHAINWATCH_DATABASE_PASSWORD"),
		SchemaName: os.Getenv("CHAINWATCH_DATABASE_SCHEMA_NAME"),
	}
}

// DatabaseTestsEnabled gates tests that need a running postgres.
func DatabaseTestsEnabled() bool {
	return os.Getenv("TEST_POSTGRES") == "true"
}

func GenerateTestDbName() (string, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("test_%s", id), nil
}

func getEnvOrDefault(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
