// Package utils holds the pieces shared by every provider implementation:
// upstream connection settings, the decode error type, and request body
// helpers.
package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/papercomputeco/relay/pkg/llm"
	"github.com/papercomputeco/relay/pkg/sse"
	"github.com/papercomputeco/relay/pkg/utils"
)

// DoneSentinel is the literal data payload that terminates an OpenAI style
// stream. It never carries an event.
const DoneSentinel = "[DONE]"

// Upstream holds the connection settings for one provider endpoint.
type Upstream struct {
	// BaseURL is the provider root, without the API path
	// (e.g., "https://api.anthropic.com").
	BaseURL string

	// APIKey is the provider credential.
	APIKey string

	// Headers are extra headers set on the upstream request after the
	// provider's own headers, e.g. forwarded "anthropic-beta".
	Headers http.Header
}

// Endpoint joins the base URL and the API path.
func (u Upstream) Endpoint(path string) string {
	return strings.TrimSuffix(u.BaseURL, "/") + path
}

// StreamDecoder decodes the SSE events of one session. Implementations may
// keep state across events and are not safe for concurrent use.
type StreamDecoder interface {
	// Decode turns one SSE event into normalized stream events. It returns
	// (nil, nil) for events that carry nothing for the consumer and a
	// *DecodeError for a malformed payload.
	Decode(ev sse.Event) ([]llm.StreamEvent, error)

	// Usage returns the token usage reported so far, or nil if none was.
	Usage() *llm.Usage
}

// DecodeError reports an SSE block whose payload could not be decoded.
// It is always recoverable: the stream continues with the next block.
type DecodeError struct {
	Provider string
	Payload  string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to parse %s stream event: %v", e.Provider, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Payload returns the JSON payload of ev and whether the block carries one.
// Blocks without a data line and the DoneSentinel yield false.
func Payload(ev sse.Event) (string, bool) {
	if !ev.HasData {
		return "", false
	}

	data := strings.TrimSpace(ev.Data)
	if data == "" || data == DoneSentinel {
		return "", false
	}

	return ev.Data, true
}

// ForceStreaming returns body with its top-level "stream" field set to true.
// All other fields are preserved as-is.
func ForceStreaming(body []byte) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("request body is not a JSON object: %w", err)
	}
	if fields == nil {
		return nil, errors.New("request body is not a JSON object")
	}

	fields["stream"] = json.RawMessage("true")

	return json.Marshal(fields)
}

// NewStreamRequest builds the streaming POST for path. The body is forced to
// stream; providerHeaders (credentials, API version) are set before the
// upstream's extra headers are added.
func NewStreamRequest(ctx context.Context, upstream Upstream, path string, body []byte, providerHeaders map[string]string) (*http.Request, error) {
	body, err := ForceStreaming(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, upstream.Endpoint(path), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", utils.UserAgent())
	for k, v := range providerHeaders {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	for k, vs := range upstream.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	return req, nil
}
