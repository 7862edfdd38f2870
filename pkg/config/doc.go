// Package config provides application configuration management from environment
// variables and an optional YAML file.
//
// # Overview
//
// This package loads and validates configuration with sensible defaults for all
// settings. Environment variables override values from the YAML file.
//
// # Configuration Structure
//
// Server settings:
//
//	EWAAB_HOST="0.0.0.0"
//	EWAAB_PORT="8080"
//	EWAAB_HEALTH_PORT="9090"
//	EWAAB_READ_TIMEOUT="15s"
//	EWAAB_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	EWAAB_DB_DRIVER="postgres"  # postgres, sqlite3
//	EWAAB_DB_URL="postgres://localhost/ewaab"
//	EWAAB_DB_MAX_OPEN_CONNS="20"
//
// Token settings:
//
//	EWAAB_TOKEN_ISSUER="ewaab"
//	EWAAB_TOKEN_SECRET="..."            # or:
//	EWAAB_TOKEN_SECRET_FILE="/etc/ewaab/secret"
//	EWAAB_ACCESS_TTL="2h"
//	EWAAB_REFRESH_TTL="168h"
//
// Redis settings (token version store):
//
//	EWAAB_REDIS_ENABLED="true"
//	EWAAB_REDIS_ADDR="localhost:6379"
//
// Observability settings:
//
//	EWAAB_LOG_LEVEL="info"  # debug, info, warn, error
//	EWAAB_METRICS_ENABLED="true"
//	EWAAB_OTEL_ENABLED="true"
//	EWAAB_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig(os.Getenv("EWAAB_CONFIG_FILE"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	creds, err := config.NewCredentials(cfg.Auth, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer creds.Close()
//
// Credentials implements the token signing secret provider; when backed by
// EWAAB_TOKEN_SECRET_FILE the secret is reloaded on file change, so rotation
// needs no restart.
//
// # Related Packages
//
//   - pkg/token: Consumes Credentials for signing and verification
//   - pkg/observability: Uses observability configuration
package config
