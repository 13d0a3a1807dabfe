package llm

import "encoding/json"

// ChatRequest is the provider-agnostic view of an outgoing chat completion
// request. The relay forwards the raw body upstream untouched apart from
// forcing streaming on; the parsed fields are used for logging and session
// records only.
type ChatRequest struct {
	// Model name (e.g., "gpt-4o", "claude-sonnet-4-5")
	Model string `json:"model"`

	// Conversation messages
	Messages []Message `json:"messages"`

	// Whether to stream the response
	Stream *bool `json:"stream,omitempty"`

	// System prompt (some providers handle this separately from messages)
	System string `json:"system,omitempty"`

	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`

	// RawRequest preserves the original request payload.
	RawRequest json.RawMessage `json:"raw_request,omitempty"`
}
