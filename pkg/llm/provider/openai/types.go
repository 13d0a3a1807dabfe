package openai

// openaiRequest represents OpenAI's request format.
type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	Stream      *bool           `json:"stream,omitempty"`
}

// openaiMessage represents a message in OpenAI's format.
type openaiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []openaiContentPart for vision
}

// StreamChunk is one chat.completion.chunk object of a streamed response.
type StreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
	Usage   *StreamUsage   `json:"usage,omitempty"`
}

// StreamUsage is the token usage of a streamed response.
type StreamUsage struct {
	PromptTokens        int                 `json:"prompt_tokens"`
	CompletionTokens    int                 `json:"completion_tokens"`
	TotalTokens         int                 `json:"total_tokens"`
	PromptTokensDetails *PromptTokensDetail `json:"prompt_tokens_details,omitempty"`
}

// PromptTokensDetail breaks down the prompt token count.
type PromptTokensDetail struct {
	CachedTokens int `json:"cached_tokens"`
}

// StreamChoice is one choice of a StreamChunk. FinishReason is nil until
// the choice completes.
type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

// StreamDelta is the incremental message content of a StreamChoice.
type StreamDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content"`
}
