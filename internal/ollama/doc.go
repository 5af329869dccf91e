// Package ollama implements the HTTP client for an Ollama-compatible
// inference service.
//
// The client covers exactly what the bot needs: POST /api/chat with optional
// image payloads and capability tools, bearer-token authentication for
// hosted services, and a reachability check. Errors are categorized with
// ClientError so callers can distinguish timeouts, auth failures, and
// missing models without string matching.
package ollama
