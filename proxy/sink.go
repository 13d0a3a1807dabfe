package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/papercomputeco/relay/pkg/stream"
)

// eventStreamSink writes each record as one server-sent event:
//
//	event: <channel>
//	data: <payload as a JSON string>
//
// The payload is JSON encoded so that the multi-line data stream parts fit
// on a single data line.
type eventStreamSink struct {
	w   io.Writer
	buf bytes.Buffer
}

func newEventStreamSink(w io.Writer) *eventStreamSink {
	return &eventStreamSink{w: w}
}

func (s *eventStreamSink) Send(_ context.Context, rec stream.Record) error {
	s.buf.Reset()
	s.buf.WriteString("event: ")
	s.buf.WriteString(rec.Channel)
	s.buf.WriteString("\ndata: ")

	enc := json.NewEncoder(&s.buf)
	enc.SetEscapeHTML(false)
	// Encode terminates the value with a newline.
	if err := enc.Encode(rec.Payload); err != nil {
		return err
	}
	s.buf.WriteByte('\n')

	_, err := s.w.Write(s.buf.Bytes())
	return err
}
