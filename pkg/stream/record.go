// Package stream drives one upstream LLM streaming response through frame
// reassembly, provider decoding and normalization, and delivers the result to
// a consumer Sink as an ordered sequence of Records.
package stream

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/papercomputeco/relay/pkg/llm"
)

// Downstream channel names.
const (
	ChannelChunk = "ai-stream-chunk"
	ChannelError = "ai-stream-error"
	ChannelEnd   = "ai-stream-end"
)

// AI SDK data stream part prefixes.
const (
	partText   = "0:"
	partError  = "3:"
	partStart  = "f:"
	partFinish = "d:"
)

// Record is one encoded downstream event, ready for a Sink.
type Record struct {
	// Kind is the normalized event kind the record was encoded from.
	Kind llm.StreamEventKind

	// Channel is the consumer channel name (e.g., "ai-stream-chunk").
	Channel string

	// Payload is the encoded event. It is empty for the end record.
	Payload string
}

// Text returns the text fragment of a text-delta record.
func (r Record) Text() (string, bool) {
	if r.Kind != llm.KindTextDelta {
		return "", false
	}

	var text string
	if err := json.Unmarshal([]byte(strings.TrimPrefix(r.Payload, partText)), &text); err != nil {
		return "", false
	}
	return text, true
}

type startPart struct {
	MessageID string `json:"messageId"`
}

type finishPart struct {
	FinishReason string     `json:"finishReason"`
	Usage        *usagePart `json:"usage,omitempty"`
}

type usagePart struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// Encode maps a normalized event onto its downstream Record.
func Encode(ev llm.StreamEvent) Record {
	switch ev.Kind {
	case llm.KindTextDelta:
		return Record{Kind: ev.Kind, Channel: ChannelChunk, Payload: partText + jsonValue(ev.Text)}

	case llm.KindStreamStart:
		var part startPart
		if ev.Start != nil {
			part.MessageID = ev.Start.ID
		}
		return Record{Kind: ev.Kind, Channel: ChannelChunk, Payload: partStart + jsonValue(part)}

	case llm.KindStreamFinish:
		var part finishPart
		if ev.Finish != nil {
			part.FinishReason = ev.Finish.Reason
			if u := ev.Finish.Usage; u != nil {
				part.Usage = &usagePart{PromptTokens: u.PromptTokens, CompletionTokens: u.CompletionTokens}
			}
		}
		return Record{Kind: ev.Kind, Channel: ChannelChunk, Payload: partFinish + jsonValue(part)}

	case llm.KindStreamError:
		return Record{Kind: ev.Kind, Channel: ChannelError, Payload: ev.Error}

	default:
		return Record{Kind: llm.KindStreamEnd, Channel: ChannelEnd}
	}
}

// jsonValue encodes v as a single JSON line terminated by "\n". HTML
// characters are left unescaped so text survives byte for byte.
func jsonValue(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		// Strings and the part structs above always encode.
		return "null\n"
	}
	return buf.String()
}
