// Package config handles configuration loading for appdeck-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and duration parsing.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${APPDECK_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	server:
//	  shutdown_timeout: "10s"
//
//	database:
//	  conn_max_lifetime: "5m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # Admin API and health endpoints
//	  shutdown_timeout: "10s"
//
// Database:
//
//	database:
//	  driver: "sqlite"            # sqlite or postgres
//	  dsn: "/var/lib/appdeck/gateway.db"
//	  max_open_conns: 8
//	  conn_max_lifetime: "5m"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${APPDECK_JWT_SECRET}"  # Required; signs and verifies API keys
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - Server HTTP address presence
//   - Database driver and DSN presence
//   - JWT secret presence
//   - Duration format validity
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("/etc/appdeck/gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
