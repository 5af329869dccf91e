// Package config handles configuration loading for triad-bot.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion. The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	ollama:
//	  api_key: "${OLLAMA_API_KEY}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Configuration Sections
//
// Backend service and models:
//
//	ollama:
//	  host: "https://ollama.com"
//	  api_key: "${OLLAMA_API_KEY}"
//	  chat_model: "kimi-k2:1t-cloud"
//	  vision_model: "qwen3-vl:235b-instruct-cloud"
//	  search_model: "gpt-oss:120b-cloud"
//	  timeout: "60s"
//
// Conversation limits:
//
//	conversation:
//	  history_size: 20      # turns retained per user
//	  search_context: 5     # trailing turns sent to the search backend
//	  max_image_size: 10485760
//	  chunk_size: 4000      # max outbound message size
//
// Matrix frontend:
//
//	matrix:
//	  homeserver: "https://matrix.org"
//	  user_id: "@triad:matrix.org"
//	  access_token: "${MATRIX_ACCESS_TOKEN}"
//	  allowed_users: []
//	  allowed_rooms: []
//	  command_prefix: "!"
//	  typing_indicator: true
//
// Telemetry database (optional; empty path disables it):
//
//	database:
//	  path: "/var/lib/triad/telemetry.db"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
