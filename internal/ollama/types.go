// ABOUTME: Wire types for the Ollama chat API
// ABOUTME: Request/response envelopes shared by all backend capabilities

package ollama

// Message is one entry in a chat request. Images carry base64-encoded
// payloads for vision-capable models.
type Message struct {
	Role    string   `json:"role"` // "user", "assistant" or "system"
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// Tool flags an extra capability the backend should enable for the request.
// The hosted search models accept {"type": "search"}.
type Tool struct {
	Type string `json:"type"`
}

// ChatRequest is the request body for the /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Tools    []Tool    `json:"tools,omitempty"`
}

// ChatResponse is the response from the /api/chat endpoint.
type ChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

// apiError is the error body Ollama returns on non-200 responses.
type apiError struct {
	Error string `json:"error"`
}
