package stream

import (
	"log/slog"

	"github.com/papercomputeco/relay/pkg/llm"
)

// Observer receives session lifecycle notifications. Implementations must
// be safe for concurrent use: one Observer is shared by every session.
type Observer interface {
	// StateChanged is called on every state transition.
	StateChanged(info Info, from, to State)

	// EventEmitted is called after a record was accepted by the sink.
	EventEmitted(info Info, kind llm.StreamEventKind)

	// DecodeFailed is called for every dropped chunk or block.
	DecodeFailed(info Info, err error)

	// SessionFinished is called once with the session summary.
	SessionFinished(res Result)
}

// Info identifies the session an Observer notification belongs to.
type Info struct {
	SessionID string
	Provider  string
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) StateChanged(Info, State, State) {}
func (NopObserver) EventEmitted(Info, llm.StreamEventKind) {}
func (NopObserver) DecodeFailed(Info, error) {}
func (NopObserver) SessionFinished(Result) {}

// MultiObserver fans notifications out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) StateChanged(info Info, from, to State) {
	for _, o := range m {
		o.StateChanged(info, from, to)
	}
}

func (m MultiObserver) EventEmitted(info Info, kind llm.StreamEventKind) {
	for _, o := range m {
		o.EventEmitted(info, kind)
	}
}

func (m MultiObserver) DecodeFailed(info Info, err error) {
	for _, o := range m {
		o.DecodeFailed(info, err)
	}
}

func (m MultiObserver) SessionFinished(res Result) {
	for _, o := range m {
		o.SessionFinished(res)
	}
}

// LogObserver logs transitions at debug, decode failures at warn and failed
// sessions at error.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver returns a LogObserver writing to logger.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) StateChanged(info Info, from, to State) {
	o.logger.Debug("session state changed",
		"session_id", info.SessionID,
		"provider", info.Provider,
		"from", from.String(),
		"state", to.String(),
	)
}

func (o *LogObserver) EventEmitted(Info, llm.StreamEventKind) {}

func (o *LogObserver) DecodeFailed(info Info, err error) {
	o.logger.Warn("dropping undecodable stream data",
		"session_id", info.SessionID,
		"provider", info.Provider,
		"error", err,
	)
}

func (o *LogObserver) SessionFinished(res Result) {
	attrs := []any{
		"session_id", res.SessionID,
		"provider", res.Provider,
		"model", res.Model,
		"outcome", string(res.Outcome),
		"text_deltas", res.TextDeltas(),
		"decode_failures", res.DecodeFailures,
		"duration", res.Duration,
	}

	if res.Outcome == OutcomeFailed {
		o.logger.Error("session failed", append(attrs, "error", res.Error)...)
		return
	}
	o.logger.Info("session finished", append(attrs, "finish_reason", res.FinishReason)...)
}
