package stream

import (
	"context"
	"fmt"
	"io"
)

// Sink is the single consumer of a session's records. Send is called
// synchronously and in order; a slow Sink backpressures the upstream read.
type Sink interface {
	Send(ctx context.Context, rec Record) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, rec Record) error

func (f SinkFunc) Send(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

// ChanSink delivers records to an in-process channel consumer.
type ChanSink chan<- Record

func (c ChanSink) Send(ctx context.Context, rec Record) error {
	select {
	case c <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WriterSink writes records as a line oriented AI SDK data stream: chunk
// payloads verbatim and errors as error parts. The end record writes the
// configured end line, or nothing by default, since the data stream protocol
// has no end part.
type WriterSink struct {
	w       io.Writer
	endLine string
}

// WriterSinkOption configures a WriterSink.
type WriterSinkOption func(*WriterSink)

// WithEndLine makes the end record write line followed by a newline.
func WithEndLine(line string) WriterSinkOption {
	return func(s *WriterSink) {
		s.endLine = line
	}
}

// NewWriterSink returns a WriterSink writing to w. If w has a Flush method
// it is flushed after every record.
func NewWriterSink(w io.Writer, opts ...WriterSinkOption) *WriterSink {
	s := &WriterSink{w: w}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WriterSink) Send(_ context.Context, rec Record) error {
	var line string
	switch rec.Channel {
	case ChannelChunk:
		line = rec.Payload
	case ChannelError:
		line = partError + jsonValue(rec.Payload)
	default:
		if s.endLine == "" {
			return nil
		}
		line = s.endLine + "\n"
	}

	if _, err := io.WriteString(s.w, line); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}

	switch f := s.w.(type) {
	case interface{ Flush() error }:
		return f.Flush()
	case interface{ Flush() }:
		f.Flush()
	}
	return nil
}
