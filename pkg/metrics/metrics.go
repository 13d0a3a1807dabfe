// Package metrics exposes relay sessions as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papercomputeco/relay/pkg/llm"
	"github.com/papercomputeco/relay/pkg/stream"
)

const (
	namespace = "relay"
	subsystem = "stream"
)

// Observer is a stream.Observer that records session metrics.
type Observer struct {
	// SessionsTotal counts finished sessions.
	// Labels: provider, outcome (completed, failed, cancelled)
	SessionsTotal *prometheus.CounterVec

	// ActiveSessions tracks sessions between connecting and finish.
	// Labels: provider
	ActiveSessions *prometheus.GaugeVec

	// EventsTotal counts records delivered to sinks.
	// Labels: provider, kind (text-delta, stream-start, ...)
	EventsTotal *prometheus.CounterVec

	// DecodeFailuresTotal counts dropped chunks and blocks.
	// Labels: provider
	DecodeFailuresTotal *prometheus.CounterVec

	// TokensTotal counts tokens reported by upstream finish events.
	// Labels: provider, direction (prompt, completion)
	TokensTotal *prometheus.CounterVec

	// SessionDurationSeconds measures session wall time.
	// Labels: provider, outcome
	SessionDurationSeconds *prometheus.HistogramVec
}

// NewObserver registers the session metrics with reg.
func NewObserver(reg prometheus.Registerer) *Observer {
	factory := promauto.With(reg)

	return &Observer{
		SessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sessions_total",
				Help:      "Total number of finished streaming sessions by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		ActiveSessions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "active_sessions",
				Help:      "Number of streaming sessions in progress",
			},
			[]string{"provider"},
		),
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_total",
				Help:      "Total number of normalized events delivered by kind",
			},
			[]string{"provider", "kind"},
		),
		DecodeFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "decode_failures_total",
				Help:      "Total number of upstream chunks or blocks that could not be decoded",
			},
			[]string{"provider"},
		),
		TokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tokens_total",
				Help:      "Total number of tokens reported by upstream providers",
			},
			[]string{"provider", "direction"},
		),
		SessionDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "session_duration_seconds",
				Help:      "Streaming session duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"provider", "outcome"},
		),
	}
}

func (o *Observer) StateChanged(info stream.Info, from, to stream.State) {
	if from == stream.StateIdle && to == stream.StateConnecting {
		o.ActiveSessions.WithLabelValues(info.Provider).Inc()
	}
}

func (o *Observer) EventEmitted(info stream.Info, kind llm.StreamEventKind) {
	o.EventsTotal.WithLabelValues(info.Provider, string(kind)).Inc()
}

func (o *Observer) DecodeFailed(info stream.Info, _ error) {
	o.DecodeFailuresTotal.WithLabelValues(info.Provider).Inc()
}

func (o *Observer) SessionFinished(res stream.Result) {
	outcome := string(res.Outcome)

	o.ActiveSessions.WithLabelValues(res.Provider).Dec()
	o.SessionsTotal.WithLabelValues(res.Provider, outcome).Inc()
	o.SessionDurationSeconds.WithLabelValues(res.Provider, outcome).Observe(res.Duration.Seconds())

	if res.Usage != nil {
		o.TokensTotal.WithLabelValues(res.Provider, "prompt").Add(float64(res.Usage.PromptTokens))
		o.TokensTotal.WithLabelValues(res.Provider, "completion").Add(float64(res.Usage.CompletionTokens))
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
