package storage

import "os"

// StoreMode selects the persistence backend
type StoreMode string

const (
	StoreModeLocal  StoreMode = "local" // DynamoDB Local
	StoreModeAWS    StoreMode = "aws"
	StoreModeSQLite StoreMode = "sqlite"
	StoreModeNone   StoreMode = "none"
)

// StoreConfig holds persistence configuration
type StoreConfig struct {
	Mode             StoreMode
	Endpoint         string // for local mode
	Region           string
	ReportsTable     string
	AssignmentsTable string
	SQLitePath       string
}

// LoadStoreConfig loads persistence config from environment
func LoadStoreConfig() StoreConfig {
	mode := StoreMode(getEnv("STORE_MODE", "none"))
	switch mode {
	case StoreModeLocal, StoreModeAWS, StoreModeSQLite:
	default:
		mode = StoreModeNone
	}

	return StoreConfig{
		Mode:             mode,
		Endpoint:         getEnv("DYNAMO_ENDPOINT", "http://localhost:8000"),
		Region:           getEnv("DYNAMO_REGION", "eu-central-1"),
		ReportsTable:     getEnv("DYNAMO_REPORTS_TABLE", "teleasistencia-reports"),
		AssignmentsTable: getEnv("DYNAMO_ASSIGNMENTS_TABLE", "teleasistencia-assignments"),
		SQLitePath:       getEnv("SQLITE_PATH", "teleasistencia.db"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
