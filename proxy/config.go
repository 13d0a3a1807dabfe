package proxy

import (
	"time"

	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/pkg/llm/provider"
)

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Upstreams maps provider names (e.g., "anthropic", "openai") to their
	// upstream endpoint and credential. Only configured providers are routed.
	Upstreams map[string]provider.Upstream

	// ConnectTimeout bounds dialing the upstream.
	ConnectTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for the upstream status line.
	ResponseHeaderTimeout time.Duration

	// ReadTimeout is the longest an upstream stream may stay silent.
	ReadTimeout time.Duration

	// ChunkSize bounds a single upstream body read.
	ChunkSize int

	// ForwardHeaders are extra client header names forwarded upstream.
	ForwardHeaders []string

	// Publisher is an optional publisher for completed session events.
	// If nil, events are not published.
	Publisher eventstream.Publisher
}
