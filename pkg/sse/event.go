// Package sse provides a minimal, purpose-built SSE (Server-Sent Events)
// frame reassembler for use in the relay. Upstream LLM providers deliver
// their responses as text/event-stream bodies whose network chunks are not
// aligned with event boundaries; the Reassembler turns those chunks back into
// complete event blocks.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import "strings"

// Block is the raw text of one complete SSE event, as extracted from the
// stream buffer. The terminating blank line is not included.
type Block string

// Event represents a single parsed SSE event, delimited by a blank line
// in the upstream byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n" (per the SSE spec, multiple data fields are joined
	// with a single newline).
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string

	// HasData reports whether at least one "data:" line was present.
	HasData bool

	// DataLines is the number of "data:" lines folded into Data.
	DataLines int
}

// Parse splits the block into lines and accumulates its fields.
func (b Block) Parse() Event {
	var ev Event

	for line := range strings.SplitSeq(string(b), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}

		// Lines starting with ':' are comments.
		if strings.HasPrefix(line, ":") {
			continue
		}

		ev.parseLine(line)
	}

	return ev
}

// parseLine processes a single non-empty, non-comment SSE line and
// accumulates the field into the event.
//
// Per the SSE spec, a line has the form "field:value" where the first
// space after the colon is optional and stripped if present.
func (e *Event) parseLine(line string) {
	var field, value string

	if before, after, ok := strings.Cut(line, ":"); ok {
		field = before
		value = strings.TrimPrefix(after, " ")
	} else {
		// Line with no colon: the entire line is the field name with
		// an empty value.
		field = line
	}

	switch field {
	case "data":
		if e.HasData {
			e.Data += "\n"
		}
		e.Data += value
		e.HasData = true
		e.DataLines++
	case "event":
		e.Type = value
	case "id":
		e.ID = value
	default:
		// "retry" and unknown fields are ignored per the SSE spec.
	}
}
