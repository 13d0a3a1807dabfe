package openai

import (
	"encoding/json"

	"github.com/papercomputeco/relay/pkg/llm"
	providerutils "github.com/papercomputeco/relay/pkg/llm/provider/utils"
	"github.com/papercomputeco/relay/pkg/sse"
)

func (o *provider) NewStreamDecoder() providerutils.StreamDecoder {
	return &streamDecoder{name: o.Name()}
}

// streamDecoder remembers the usage object OpenAI sends on the final chunk
// when the request asks for stream_options.include_usage. That chunk usually
// has no choices and follows the one carrying finish_reason.
type streamDecoder struct {
	name  string
	usage *StreamUsage
}

func (d *streamDecoder) Decode(ev sse.Event) ([]llm.StreamEvent, error) {
	payload, ok := providerutils.Payload(ev)
	if !ok {
		return nil, nil
	}

	var chunk StreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return nil, &providerutils.DecodeError{
			Provider: d.name,
			Payload:  payload,
			Err:      err,
		}
	}

	if chunk.Usage != nil {
		d.usage = chunk.Usage
	}

	return d.normalize(&chunk), nil
}

func (d *streamDecoder) Usage() *llm.Usage {
	return d.usage.toLLM()
}

// normalize maps the chunk onto the downstream vocabulary. Each choice, in
// order, yields its text fragment and then its finish event.
func (d *streamDecoder) normalize(c *StreamChunk) []llm.StreamEvent {
	var events []llm.StreamEvent
	for _, choice := range c.Choices {
		if choice.Delta.Content != nil && *choice.Delta.Content != "" {
			events = append(events, llm.TextDelta(*choice.Delta.Content))
		}
		if choice.FinishReason != nil {
			events = append(events, llm.Finish(*choice.FinishReason, d.Usage()))
		}
	}
	return events
}

func (u *StreamUsage) toLLM() *llm.Usage {
	if u == nil {
		return nil
	}

	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}

	usage := &llm.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      total,
	}
	if u.PromptTokensDetails != nil {
		usage.CacheReadInputTokens = u.PromptTokensDetails.CachedTokens
	}
	return usage
}
