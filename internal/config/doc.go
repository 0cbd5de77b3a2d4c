// Package config handles configuration loading for orizon-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from ORIZON_CONFIG environment variable
//  2. ./config.yaml (current directory)
//  3. ~/.config/orizon/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	authority:
//	  master_key: "${LITELLM_MASTER_KEY}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	auth:
//	  magic_link_ttl: "15m"
//	  session_ttl: "24h"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
// Credential authority (downstream LiteLLM-compatible API):
//
//	authority:
//	  base_url: "http://localhost:4010"
//	  master_key: "${LITELLM_MASTER_KEY}"
//	  timeout: "10s"
//
// Key-value store:
//
//	redis:
//	  addr: "localhost:6379"
//	  password: ""
//	  db: 0
//
// Auth flow settings:
//
//	auth:
//	  base_url: "https://gateway.example.com"
//	  magic_link_ttl: "15m"
//	  session_ttl: "24h"
//	  cookie_name: "orizon_session"
//	  secure_cookies: true
package config
