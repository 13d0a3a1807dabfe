// Package anthropic
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/papercomputeco/relay/pkg/llm"
	providerutils "github.com/papercomputeco/relay/pkg/llm/provider/utils"
)

const (
	messagesPath = "/v1/messages"

	// apiVersion is the anthropic-version header value the stream schema
	// is decoded against.
	apiVersion = "2023-06-01"
)

// provider implements the Provider interface for Anthropic's Messages API.
type provider struct{}

// New
func New() *provider { return &provider{} }

// Name
func (p *provider) Name() string {
	return "anthropic"
}

// DisplayName
func (p *provider) DisplayName() string {
	return "Anthropic"
}

func (p *provider) ParseRequest(payload []byte) (*llm.ChatRequest, error) {
	var req anthropicRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, err
	}

	messages := make([]llm.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		converted := llm.Message{Role: msg.Role}

		switch content := msg.Content.(type) {
		case string:
			converted.Content = []llm.ContentBlock{{Type: "text", Text: content}}
		case []any:
			for _, item := range content {
				if block, ok := item.(map[string]any); ok {
					cb := llm.ContentBlock{}
					if t, ok := block["type"].(string); ok {
						cb.Type = t
					}
					if text, ok := block["text"].(string); ok {
						cb.Text = text
					}
					converted.Content = append(converted.Content, cb)
				}
			}
		}

		messages = append(messages, converted)
	}

	// System is either a string or an array of text blocks.
	var system string
	switch s := req.System.(type) {
	case string:
		system = s
	case []any:
		for _, item := range s {
			if block, ok := item.(map[string]any); ok {
				if text, ok := block["text"].(string); ok {
					system += text
				}
			}
		}
	}

	result := &llm.ChatRequest{
		Model:       req.Model,
		Messages:    messages,
		System:      system,
		MaxTokens:   &req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      req.Stream,
		RawRequest:  payload,
	}

	return result, nil
}

func (p *provider) NewUpstreamRequest(ctx context.Context, upstream providerutils.Upstream, body []byte) (*http.Request, error) {
	req, err := providerutils.NewStreamRequest(ctx, upstream, messagesPath, body, map[string]string{
		"anthropic-version": apiVersion,
		"x-api-key":         upstream.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating anthropic request: %w", err)
	}
	return req, nil
}
