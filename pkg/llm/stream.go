package llm

// StreamEventKind identifies one item of the downstream event vocabulary.
type StreamEventKind string

const (
	// KindTextDelta carries an incremental fragment of generated text.
	KindTextDelta StreamEventKind = "text-delta"

	// KindStreamStart marks the start of a response message.
	KindStreamStart StreamEventKind = "stream-start"

	// KindStreamFinish marks the end of generation with a completion reason.
	KindStreamFinish StreamEventKind = "stream-finish"

	// KindStreamError reports an error. It does not by itself end the stream.
	KindStreamError StreamEventKind = "stream-error"

	// KindStreamEnd is always the last event of a completed stream.
	KindStreamEnd StreamEventKind = "stream-end"
)

// FinishReasonStop is the normal completion reason.
const FinishReasonStop = "stop"

// StreamEvent is a provider-agnostic streaming event. Providers decode their
// own wire schemas into StreamEvents so that consumers never see upstream
// differences. Kind determines which other field is populated.
type StreamEvent struct {
	Kind StreamEventKind `json:"kind"`

	// Text is set for KindTextDelta.
	Text string `json:"text,omitempty"`

	// Start is set for KindStreamStart.
	Start *StreamStart `json:"start,omitempty"`

	// Finish is set for KindStreamFinish.
	Finish *StreamFinish `json:"finish,omitempty"`

	// Error is set for KindStreamError.
	Error string `json:"error,omitempty"`
}

// StreamStart is the metadata of a started response message.
type StreamStart struct {
	// ID is the opaque upstream message identifier.
	ID string `json:"id,omitempty"`

	// Model that is generating the message
	Model string `json:"model,omitempty"`
}

// StreamFinish describes how generation ended.
type StreamFinish struct {
	// Reason is the completion reason (e.g., "stop", "length", "tool_calls")
	Reason string `json:"reason"`

	// Usage metrics, when the upstream schema carries them
	Usage *Usage `json:"usage,omitempty"`
}

// TextDelta returns a KindTextDelta event.
func TextDelta(text string) StreamEvent {
	return StreamEvent{Kind: KindTextDelta, Text: text}
}

// Start returns a KindStreamStart event.
func Start(id, model string) StreamEvent {
	return StreamEvent{Kind: KindStreamStart, Start: &StreamStart{ID: id, Model: model}}
}

// Finish returns a KindStreamFinish event.
func Finish(reason string, usage *Usage) StreamEvent {
	return StreamEvent{Kind: KindStreamFinish, Finish: &StreamFinish{Reason: reason, Usage: usage}}
}

// Error returns a KindStreamError event.
func Error(msg string) StreamEvent {
	return StreamEvent{Kind: KindStreamError, Error: msg}
}

// End returns the KindStreamEnd event.
func End() StreamEvent {
	return StreamEvent{Kind: KindStreamEnd}
}
