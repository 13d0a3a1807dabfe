package stream

import (
	"time"

	"github.com/papercomputeco/relay/pkg/llm"
)

// Result is the summary of one session. It never holds response text.
type Result struct {
	SessionID string
	Provider  string
	Model     string

	Outcome Outcome

	// FinishReason is the reason of the last stream-finish event, if any.
	FinishReason string

	// Usage is the usage of the last stream-finish event that carried one,
	// else whatever usage the upstream reported after it.
	Usage *llm.Usage

	// Events counts emitted records by kind.
	Events map[llm.StreamEventKind]int

	// DecodeFailures counts blocks dropped as invalid UTF-8 or malformed.
	DecodeFailures int

	// Error is the message of the fatal error, empty otherwise.
	Error string

	StartedAt time.Time
	Duration  time.Duration
}

// TextDeltas returns the number of text-delta events emitted.
func (r *Result) TextDeltas() int {
	return r.Events[llm.KindTextDelta]
}
