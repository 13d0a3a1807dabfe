package storage

// Stats aggregates every stored session.
type Stats struct {
	Total            int            `json:"total"`
	ByOutcome        map[string]int `json:"by_outcome"`
	ByProvider       map[string]int `json:"by_provider"`
	TextDeltas       int            `json:"text_deltas"`
	DecodeFailures   int            `json:"decode_failures"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
}

// StatsGroup holds the totals of the sessions sharing a provider and outcome.
type StatsGroup struct {
	Provider         string
	Outcome          string
	Sessions         int
	TextDeltas       int
	DecodeFailures   int
	PromptTokens     int
	CompletionTokens int
}

// NewStats folds groups into Stats.
func NewStats(groups ...StatsGroup) *Stats {
	s := &Stats{
		ByOutcome:  map[string]int{},
		ByProvider: map[string]int{},
	}
	for _, g := range groups {
		s.Total += g.Sessions
		s.ByOutcome[g.Outcome] += g.Sessions
		s.ByProvider[g.Provider] += g.Sessions
		s.TextDeltas += g.TextDeltas
		s.DecodeFailures += g.DecodeFailures
		s.PromptTokens += g.PromptTokens
		s.CompletionTokens += g.CompletionTokens
	}
	return s
}

// Group returns the single-session group of rec.
func (rec *SessionRecord) Group() StatsGroup {
	return StatsGroup{
		Provider:         rec.Provider,
		Outcome:          rec.Outcome,
		Sessions:         1,
		TextDeltas:       rec.TextDeltas,
		DecodeFailures:   rec.DecodeFailures,
		PromptTokens:     rec.PromptTokens,
		CompletionTokens: rec.CompletionTokens,
	}
}
