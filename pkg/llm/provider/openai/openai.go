// Package openai
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/papercomputeco/relay/pkg/llm"
	providerutils "github.com/papercomputeco/relay/pkg/llm/provider/utils"
)

const chatCompletionsPath = "/v1/chat/completions"

// provider implements the Provider interface for OpenAI's Chat Completions API.
type provider struct{}

func New() *provider { return &provider{} }

func (o *provider) Name() string {
	return "openai"
}

func (o *provider) DisplayName() string {
	return "OpenAI"
}

func (o *provider) ParseRequest(payload []byte) (*llm.ChatRequest, error) {
	var req openaiRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, err
	}

	var system string
	messages := make([]llm.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		converted := llm.Message{Role: msg.Role}

		switch content := msg.Content.(type) {
		case string:
			converted.Content = []llm.ContentBlock{{Type: "text", Text: content}}
		case []any:
			// Multimodal content (e.g., vision)
			for _, item := range content {
				if part, ok := item.(map[string]any); ok {
					cb := llm.ContentBlock{}
					if t, ok := part["type"].(string); ok {
						cb.Type = t
					}
					if text, ok := part["text"].(string); ok {
						cb.Text = text
					}
					if _, ok := part["image_url"]; ok {
						cb.Type = "image"
					}
					converted.Content = append(converted.Content, cb)
				}
			}
		case nil:
			// Empty content (can happen with tool calls)
			converted.Content = []llm.ContentBlock{}
		}

		if msg.Role == "system" && system == "" {
			system = converted.GetText()
		}

		messages = append(messages, converted)
	}

	return &llm.ChatRequest{
		Model:       req.Model,
		Messages:    messages,
		System:      system,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      req.Stream,
		RawRequest:  payload,
	}, nil
}

func (o *provider) NewUpstreamRequest(ctx context.Context, upstream providerutils.Upstream, body []byte) (*http.Request, error) {
	var auth string
	if upstream.APIKey != "" {
		auth = "Bearer " + upstream.APIKey
	}

	req, err := providerutils.NewStreamRequest(ctx, upstream, chatCompletionsPath, body, map[string]string{
		"Authorization": auth,
	})
	if err != nil {
		return nil, fmt.Errorf("creating openai request: %w", err)
	}
	return req, nil
}
