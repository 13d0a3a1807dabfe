package anthropic

// anthropicRequest represents Anthropic's request format.
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      any                `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Stream      *bool              `json:"stream,omitempty"`
}

// anthropicMessage represents a message in Anthropic's format.
type anthropicMessage struct {
	Role string `json:"role"`

	// Union type: can be "string" or "[]anthropicContentBlock"
	Content any `json:"content"`
}

// StreamEvent is one decoded Messages API streaming event. Type selects
// which of the optional fields are meaningful.
type StreamEvent struct {
	Type    string         `json:"type"`
	Index   *int           `json:"index,omitempty"`
	Delta   *StreamDelta   `json:"delta,omitempty"`
	Message *StreamMessage `json:"message,omitempty"`
	Usage   *streamUsage   `json:"usage,omitempty"`
	Error   *StreamError   `json:"error,omitempty"`
}

// StreamDelta is the delta of a content_block_delta event.
type StreamDelta struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
}

// StreamMessage is the message envelope carried by message_start.
type StreamMessage struct {
	ID    string       `json:"id"`
	Model string       `json:"model"`
	Role  string       `json:"role"`
	Usage *streamUsage `json:"usage,omitempty"`
}

// StreamError is the payload of an error event.
type StreamError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type streamUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}
