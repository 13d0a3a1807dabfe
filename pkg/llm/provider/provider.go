package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/papercomputeco/relay/pkg/llm"
	providerutils "github.com/papercomputeco/relay/pkg/llm/provider/utils"
)

// ErrUnknownProvider is returned by New for an unrecognized provider name.
var ErrUnknownProvider = errors.New("unknown provider")

// Upstream holds the connection settings for one provider endpoint.
type Upstream = providerutils.Upstream

// DecodeError reports an SSE block whose payload could not be decoded.
type DecodeError = providerutils.DecodeError

// StreamDecoder decodes the SSE events of one session.
type StreamDecoder = providerutils.StreamDecoder

// Provider defines the interface for one upstream LLM API schema.
// The schema of a session is always chosen explicitly by the caller, never
// detected from the payload.
type Provider interface {
	// Name returns the canonical provider name (e.g., "anthropic", "openai")
	Name() string

	// DisplayName returns the human readable provider name used in
	// downstream error messages (e.g., "Anthropic", "OpenAI")
	DisplayName() string

	// ParseRequest converts a provider-specific request into the internal format.
	// Returns an error if the payload cannot be parsed.
	ParseRequest(payload []byte) (*llm.ChatRequest, error)

	// NewUpstreamRequest builds the streaming HTTP request for body, which is
	// forwarded with "stream" forced to true.
	NewUpstreamRequest(ctx context.Context, upstream Upstream, body []byte) (*http.Request, error)

	// NewStreamDecoder returns a fresh decoder for one session's events.
	// Keep-alives, structural markers and the [DONE] sentinel decode to
	// nothing.
	NewStreamDecoder() StreamDecoder
}
