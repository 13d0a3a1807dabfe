package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/relay/pkg/llm"
	providerutils "github.com/papercomputeco/relay/pkg/llm/provider/utils"
	"github.com/papercomputeco/relay/pkg/sse"
)

// Messages API stream event types.
const (
	EventMessageStart      = "message_start"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventPing              = "ping"
	EventError             = "error"

	deltaTypeText = "text_delta"
)

func (p *provider) NewStreamDecoder() providerutils.StreamDecoder {
	return &streamDecoder{name: p.Name()}
}

// streamDecoder tracks the usage a Messages API stream spreads over its
// events: input tokens arrive on message_start and the running output count
// on message_delta. message_stop itself carries none.
type streamDecoder struct {
	name  string
	usage *streamUsage
}

func (d *streamDecoder) Decode(ev sse.Event) ([]llm.StreamEvent, error) {
	payload, ok := providerutils.Payload(ev)
	if !ok {
		return nil, nil
	}

	var event StreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, &providerutils.DecodeError{
			Provider: d.name,
			Payload:  payload,
			Err:      err,
		}
	}

	return d.normalize(&event), nil
}

func (d *streamDecoder) Usage() *llm.Usage {
	return d.usage.toLLM()
}

// normalize maps the event onto the downstream vocabulary. Events that are
// informational only (usage deltas, pings, block boundaries) and unknown
// event types yield nothing.
func (d *streamDecoder) normalize(e *StreamEvent) []llm.StreamEvent {
	switch e.Type {
	case EventMessageStart:
		if e.Message == nil {
			return []llm.StreamEvent{llm.Start("", "")}
		}
		d.record(e.Message.Usage)
		return []llm.StreamEvent{llm.Start(e.Message.ID, e.Message.Model)}

	case EventContentBlockDelta:
		if e.Delta == nil || e.Delta.Type != deltaTypeText || e.Delta.Text == "" {
			return nil
		}
		return []llm.StreamEvent{llm.TextDelta(e.Delta.Text)}

	case EventMessageDelta:
		d.record(e.Usage)
		return nil

	case EventMessageStop:
		d.record(e.Usage)
		// message_stop carries no machine readable reason; it is always a
		// normal completion.
		return []llm.StreamEvent{llm.Finish(llm.FinishReasonStop, d.Usage())}

	case EventError:
		if e.Error == nil {
			return []llm.StreamEvent{llm.Error("Anthropic API Error Event: unknown error")}
		}
		return []llm.StreamEvent{llm.Error(
			fmt.Sprintf("Anthropic API Error Event: [%s] %s", e.Error.Type, e.Error.Message),
		)}

	default:
		// ping, content_block_start, content_block_stop
		return nil
	}
}

// record folds a usage report into the running totals. Counts are
// cumulative upstream, so a non-zero count replaces the previous one.
func (d *streamDecoder) record(u *streamUsage) {
	if u == nil {
		return
	}
	if d.usage == nil {
		d.usage = &streamUsage{}
	}

	d.usage.InputTokens = latest(d.usage.InputTokens, u.InputTokens)
	d.usage.OutputTokens = latest(d.usage.OutputTokens, u.OutputTokens)
	d.usage.CacheCreationInputTokens = latest(d.usage.CacheCreationInputTokens, u.CacheCreationInputTokens)
	d.usage.CacheReadInputTokens = latest(d.usage.CacheReadInputTokens, u.CacheReadInputTokens)
}

func latest(prev, next int) int {
	if next != 0 {
		return next
	}
	return prev
}

func (u *streamUsage) toLLM() *llm.Usage {
	if u == nil {
		return nil
	}

	prompt := u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
	return &llm.Usage{
		PromptTokens:             prompt,
		CompletionTokens:         u.OutputTokens,
		TotalTokens:              prompt + u.OutputTokens,
		CacheCreationInputTokens: u.CacheCreationInputTokens,
		CacheReadInputTokens:     u.CacheReadInputTokens,
	}
}
