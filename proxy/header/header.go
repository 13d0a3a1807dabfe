// Package header provides header filtering for the relay server.
//
// The relay sits between a client and an upstream LLM provider like so:
//
//	Client <--> Relay <--> Upstream LLM Provider
//
// Unlike a transparent proxy, the relay owns both legs: credentials and
// content negotiation toward the upstream are set by the provider, and the
// client always receives a text/event-stream of normalized records. Only a
// small allow-list of client headers crosses over.
package header

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler manages headers between relay connections.
type Handler struct {
	forward map[string]struct{}
}

// NewHandler creates a new header Handler. Extra header names are forwarded
// upstream in addition to the defaults.
func NewHandler(extra ...string) *Handler {
	forward := make(map[string]struct{}, len(forwardRequest)+len(extra))
	for k := range forwardRequest {
		forward[k] = struct{}{}
	}
	for _, k := range extra {
		forward[http.CanonicalHeaderKey(k)] = struct{}{}
	}

	return &Handler{forward: forward}
}

// SessionIDHeader carries the relay session id. A client may supply it on the
// request; the relay always sets it on the response.
const SessionIDHeader = "X-Relay-Session-Id"

// forwardRequest is the set of request headers (client --> relay --> upstream)
// that are copied to the upstream request. Everything else, notably
// Authorization and x-api-key, is dropped: the relay authenticates with its
// own configured credentials.
var forwardRequest = map[string]struct{}{
	// Anthropic feature flags.
	"Anthropic-Beta": {},

	// OpenAI account scoping.
	"Openai-Organization": {},
	"Openai-Project":      {},
}

// streamResponse is the set of response headers (client <-- relay) set on
// every stream response.
var streamResponse = map[string]string{
	fiber.HeaderContentType:  "text/event-stream",
	fiber.HeaderCacheControl: "no-cache",
	fiber.HeaderConnection:   "keep-alive",

	// Disables response buffering in nginx style reverse proxies.
	"X-Accel-Buffering": "no",
}

// ForwardedRequestHeaders returns the allow-listed client request headers
// from the Fiber context, or nil if there are none.
func (h *Handler) ForwardedRequestHeaders(c *fiber.Ctx) http.Header {
	var out http.Header
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := http.CanonicalHeaderKey(string(key))
		if _, ok := h.forward[k]; !ok {
			return
		}
		if out == nil {
			out = make(http.Header)
		}
		out.Add(k, string(value))
	})

	return out
}

// SetStreamResponseHeaders prepares the Fiber response for an event stream
// belonging to the given session.
func (h *Handler) SetStreamResponseHeaders(c *fiber.Ctx, sessionID string) {
	for k, v := range streamResponse {
		c.Set(k, v)
	}
	c.Set(SessionIDHeader, sessionID)
}
