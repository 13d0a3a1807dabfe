package storage

import (
	"errors"
	"time"

	"github.com/papercomputeco/relay/pkg/llm"
	"github.com/papercomputeco/relay/pkg/stream"
)

// ErrNilRecord is returned when storing a nil record.
var ErrNilRecord = errors.New("cannot store nil session record")

// SessionRecord is the persisted summary of one streaming session. It holds
// outcome metadata only, never response text.
type SessionRecord struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`

	// Outcome is one of "completed", "failed" or "cancelled".
	Outcome      string `json:"outcome"`
	FinishReason string `json:"finish_reason,omitempty"`
	Error        string `json:"error,omitempty"`

	TextDeltas     int `json:"text_deltas"`
	ErrorEvents    int `json:"error_events"`
	DecodeFailures int `json:"decode_failures"`

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// NewSessionRecord summarizes a finished session.
func NewSessionRecord(res *stream.Result) *SessionRecord {
	rec := &SessionRecord{
		ID:             res.SessionID,
		Provider:       res.Provider,
		Model:          res.Model,
		Outcome:        string(res.Outcome),
		FinishReason:   res.FinishReason,
		Error:          res.Error,
		TextDeltas:     res.Events[llm.KindTextDelta],
		ErrorEvents:    res.Events[llm.KindStreamError],
		DecodeFailures: res.DecodeFailures,
		StartedAt:      res.StartedAt.UTC(),
		Duration:       res.Duration,
	}

	if res.Usage != nil {
		rec.PromptTokens = res.Usage.PromptTokens
		rec.CompletionTokens = res.Usage.CompletionTokens
	}

	return rec
}
