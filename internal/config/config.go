package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	LogLevel       string
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64

	// Ingestion
	ChunkSize      int
	MaxUploadBytes int64

	// Periodic follow-up reclassification
	ReclassifyInterval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	// Parse WebSocket timeouts
	wsReadTimeout, err := strconv.Atoi(getEnv("WS_READ_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_READ_TIMEOUT: %w", err)
	}
	config.WSReadTimeout = time.Duration(wsReadTimeout) * time.Second

	wsWriteTimeout, err := strconv.Atoi(getEnv("WS_WRITE_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_WRITE_TIMEOUT: %w", err)
	}
	config.WSWriteTimeout = time.Duration(wsWriteTimeout) * time.Second

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	chunkSize, err := strconv.Atoi(getEnv("INGEST_CHUNK_SIZE", "1000"))
	if err != nil || chunkSize <= 0 {
		return nil, fmt.Errorf("invalid INGEST_CHUNK_SIZE: %q", getEnv("INGEST_CHUNK_SIZE", "1000"))
	}
	config.ChunkSize = chunkSize

	maxUploadMB, err := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "10"))
	if err != nil || maxUploadMB <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %q", getEnv("MAX_UPLOAD_MB", "10"))
	}
	config.MaxUploadBytes = int64(maxUploadMB) << 20

	reclassifyMinutes, err := strconv.Atoi(getEnv("RECLASSIFY_INTERVAL_MINUTES", "60"))
	if err != nil || reclassifyMinutes <= 0 {
		return nil, fmt.Errorf("invalid RECLASSIFY_INTERVAL_MINUTES: %q", getEnv("RECLASSIFY_INTERVAL_MINUTES", "60"))
	}
	config.ReclassifyInterval = time.Duration(reclassifyMinutes) * time.Minute

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
