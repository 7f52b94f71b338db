// Package config handles configuration loading for coven-relay.
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
//  1. Path from COVEN_RELAY_CONFIG environment variable
//  2. ~/.config/coven/relay.yaml (respecting XDG_CONFIG_HOME)
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	telegram:
//	  token: "${TELEGRAM_BOT_TOKEN}"
//
// # Configuration Sections
//
// Telegram settings:
//
//	telegram:
//	  token: "123456:ABC-DEF"
//	  base_url: ""            # override for testing
//
// Backend settings:
//
//	backend:
//	  api_key: "${MINIMAX_API_KEY}"
//	  base_url: "https://api.minimax.chat"
//	  model: "abab6.5s-chat"  # models with a "/" run via the agent harness
//	  harness: "opencode"
//	  timeout: "60s"
//
// Storage, server, and logging:
//
//	database:
//	  path: "./relay.db"
//	server:
//	  http_addr: "127.0.0.1:8080"
//	  pid_file: "/tmp/coven-relay.pid"
//	logging:
//	  level: "info"           # debug, info, warn, error
//	  format: "text"          # text or json
package config
