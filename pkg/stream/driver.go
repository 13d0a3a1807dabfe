package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/papercomputeco/relay/pkg/llm"
	"github.com/papercomputeco/relay/pkg/llm/provider"
	"github.com/papercomputeco/relay/pkg/logger"
	"github.com/papercomputeco/relay/pkg/sse"
)

const (
	// DefaultChunkSize is the size of the buffer each upstream body read
	// fills at most.
	DefaultChunkSize = 4096

	// maxErrorBodySize caps how much of a non-success response body is read
	// into the error message.
	maxErrorBodySize = 64 << 10
)

// ErrNoProvider is returned by NewDriver when Config.Provider is nil.
var ErrNoProvider = errors.New("stream driver requires a provider")

// Config is the configuration of a Driver. It is shared by every session
// the Driver runs and is never mutated.
type Config struct {
	// Provider selects the upstream schema.
	Provider provider.Provider

	// Upstream is the provider endpoint and credential.
	Upstream provider.Upstream

	// Client performs upstream requests. Defaults to a client without a
	// total timeout, since streams are long lived.
	Client *http.Client

	// ChunkSize bounds a single body read. Defaults to DefaultChunkSize.
	ChunkSize int

	// ReadTimeout is the longest the upstream body may stay silent before
	// the session fails. Zero disables the idle timeout.
	ReadTimeout time.Duration

	// Observer receives lifecycle notifications. Defaults to NopObserver.
	Observer Observer

	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}

// Driver runs streaming sessions against one upstream provider.
//
// ┌──────────┐   ┌─────────────┐   ┌──────────┐   ┌─────────┐   ┌──────┐
// │ upstream │──▶│ Reassembler │──▶│ Provider │──▶│ Encode  │──▶│ Sink │
// │   body   │   │  (blocks)   │   │ (events) │   │(records)│   │      │
// └──────────┘   └─────────────┘   └──────────┘   └─────────┘   └──────┘
type Driver struct {
	cfg Config
}

// NewDriver validates cfg and fills in defaults.
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.Provider == nil {
		return nil, ErrNoProvider
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	// A chunk must hold at least one whole character.
	cfg.ChunkSize = max(cfg.ChunkSize, utf8.UTFMax)
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	return &Driver{cfg: cfg}, nil
}

// Provider returns the provider the Driver decodes with.
func (d *Driver) Provider() provider.Provider {
	return d.cfg.Provider
}

// Request is one session's input.
type Request struct {
	// SessionID identifies the session. A random id is used when empty.
	SessionID string

	// Body is the raw JSON request body. It is forwarded upstream with
	// streaming forced on.
	Body []byte

	// Headers are added to the upstream request after the configured
	// upstream headers.
	Headers http.Header
}

// Run performs one streaming session: it sends the request upstream and
// delivers every resulting record to sink, in order, until the upstream body
// ends, a fatal error occurs, or ctx is cancelled.
//
// On success the last record delivered is the end record and Run returns a
// nil error. On a fatal failure exactly one error record is delivered and a
// *TransportError, *StatusError or *EmitError is returned. On cancellation
// neither an error record nor the end record is delivered and ctx.Err() is
// returned. The Result is returned in every case.
func (d *Driver) Run(ctx context.Context, req Request, sink Sink) (*Result, error) {
	s := d.newSession(req, sink)
	err := s.run(ctx, req)
	s.finish(err)

	return &s.result, err
}

// session holds the state of one Run. It is owned by a single goroutine.
type session struct {
	cfg         *Config
	info        Info
	sink        Sink
	state       State
	reassembler *sse.Reassembler
	decoder     provider.StreamDecoder
	logger      *slog.Logger
	result      Result
}

func (d *Driver) newSession(req Request, sink Sink) *session {
	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	info := Info{SessionID: id, Provider: d.cfg.Provider.Name()}

	// The model is informational; a body the provider cannot parse is
	// still forwarded and rejected upstream.
	var model string
	if parsed, err := d.cfg.Provider.ParseRequest(req.Body); err == nil {
		model = parsed.Model
	}

	return &session{
		cfg:         &d.cfg,
		info:        info,
		sink:        sink,
		state:       StateIdle,
		reassembler: sse.NewReassembler(),
		decoder:     d.cfg.Provider.NewStreamDecoder(),
		logger:      logger.ForSession(d.cfg.Logger, id, info.Provider),
		result: Result{
			SessionID: id,
			Provider:  info.Provider,
			Model:     model,
			Events:    make(map[llm.StreamEventKind]int),
			StartedAt: time.Now(),
		},
	}
}

func (s *session) run(ctx context.Context, req Request) error {
	p := s.cfg.Provider

	// reqCtx bounds the upstream request; it is cancelled with
	// ErrReadTimeout when the body goes idle. Sink deliveries use ctx so
	// a timed out session can still report its failure.
	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	s.transition(StateConnecting)

	upstream := s.cfg.Upstream
	upstream.Headers = mergeHeaders(upstream.Headers, req.Headers)

	httpReq, err := p.NewUpstreamRequest(reqCtx, upstream, req.Body)
	if err != nil {
		return s.fail(ctx, &TransportError{Op: "request", Err: err},
			fmt.Sprintf("Failed to build %s request: %v", p.DisplayName(), err))
	}

	resp, err := s.cfg.Client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return s.cancelled(ctx)
		}
		return s.fail(ctx, &TransportError{Op: "connect", Err: err},
			fmt.Sprintf("Failed to connect to %s API: %v", p.DisplayName(), err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if ctx.Err() != nil {
			return s.cancelled(ctx)
		}

		statusErr := &StatusError{
			Provider: p.DisplayName(),
			Code:     resp.StatusCode,
			Body:     string(body),
		}
		return s.fail(ctx, statusErr, statusErr.Error())
	}

	s.transition(StateStreaming)
	if err := s.stream(ctx, reqCtx, cancel, resp.Body); err != nil {
		return err
	}

	return s.drain(ctx)
}

// stream reads the body strictly sequentially until EOF, pushing every chunk
// through the pipeline before the next read. A multi-byte character cut by
// the read buffer is carried over to the next read.
func (s *session) stream(ctx, reqCtx context.Context, cancel context.CancelCauseFunc, body io.Reader) error {
	buf := make([]byte, s.cfg.ChunkSize)
	carry := 0

	for {
		n, readErr := s.read(body, buf[carry:], cancel)

		n += carry
		cut := n
		if !errors.Is(readErr, io.EOF) {
			// Before a transport failure only whole characters go out, so
			// the failure is reported by a single error record.
			cut = sse.CompleteRunes(buf[:n])
		}
		if cut > 0 {
			if err := s.ingest(ctx, buf[:cut]); err != nil {
				return err
			}
		}
		carry = copy(buf, buf[cut:n])

		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if ctx.Err() != nil {
			return s.cancelled(ctx)
		}

		cause := readErr
		if errors.Is(readErr, ErrReadTimeout) || errors.Is(context.Cause(reqCtx), ErrReadTimeout) {
			cause = ErrReadTimeout
		}
		return s.fail(ctx, &TransportError{Op: "read", Err: cause},
			fmt.Sprintf("Error reading %s stream chunk: %v", s.cfg.Provider.DisplayName(), cause))
	}
}

type readResult struct {
	n   int
	err error
}

// read performs one body read bounded by the read timeout. The deadline is
// decided once: a read that completed by then is returned as is, otherwise
// the request is cancelled with ErrReadTimeout and whatever the read yields
// afterwards is dropped.
func (s *session) read(body io.Reader, p []byte, cancel context.CancelCauseFunc) (int, error) {
	if s.cfg.ReadTimeout <= 0 {
		return body.Read(p)
	}

	done := make(chan readResult, 1)
	go func() {
		n, err := body.Read(p)
		done <- readResult{n: n, err: err}
	}()

	timer := time.NewTimer(s.cfg.ReadTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.n, r.err
	case <-timer.C:
	}

	select {
	case r := <-done:
		return r.n, r.err
	default:
	}

	cancel(ErrReadTimeout)
	// p is not reused until the reader goroutine is done with it.
	<-done
	return 0, ErrReadTimeout
}

// ingest reassembles chunk and delivers the events of every completed block.
// Undecodable data is reported downstream and skipped.
func (s *session) ingest(ctx context.Context, chunk []byte) error {
	p := s.cfg.Provider

	blocks, err := s.reassembler.Ingest(chunk)
	if err != nil {
		s.decodeFailed(err)
		return s.deliver(ctx, llm.Error(fmt.Sprintf("Failed to decode %s chunk as UTF-8", p.DisplayName())))
	}

	for _, block := range blocks {
		ev := block.Parse()
		if ev.DataLines > 1 {
			s.logger.Debug("joined multi-line event data", "lines", ev.DataLines, "event", ev.Type)
		}

		events, err := s.decoder.Decode(ev)
		if err != nil {
			s.decodeFailed(err)

			cause := err
			var decodeErr *provider.DecodeError
			if errors.As(err, &decodeErr) {
				cause = decodeErr.Err
			}
			events = []llm.StreamEvent{llm.Error(fmt.Sprintf("Failed to parse %s JSON: %v", p.DisplayName(), cause))}
		}

		for _, ev := range events {
			if err := s.deliver(ctx, ev); err != nil {
				return err
			}
		}
	}

	return nil
}

// drain finishes a stream whose body reached EOF.
func (s *session) drain(ctx context.Context) error {
	s.transition(StateDraining)

	if pending := s.reassembler.Pending(); strings.TrimSpace(string(pending)) != "" {
		s.logger.Debug("discarding unterminated trailing block", "bytes", len(pending))
	}
	s.reassembler.Reset()

	if err := s.deliver(ctx, llm.End()); err != nil {
		return err
	}

	s.transition(StateEnded)
	return nil
}

// deliver emits ev. A sink failure is fatal: one error record is attempted
// and the session enters Errored.
func (s *session) deliver(ctx context.Context, ev llm.StreamEvent) error {
	err := s.emit(ctx, ev)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return s.cancelled(ctx)
	}

	if sendErr := s.sink.Send(ctx, Encode(llm.Error(err.Error()))); sendErr != nil {
		s.logger.Debug("could not report emit failure", "error", sendErr)
	}
	s.transition(StateErrored)

	return err
}

func (s *session) emit(ctx context.Context, ev llm.StreamEvent) error {
	if err := s.sink.Send(ctx, Encode(ev)); err != nil {
		return &EmitError{Err: err}
	}

	s.result.Events[ev.Kind]++
	switch ev.Kind {
	case llm.KindStreamStart:
		if ev.Start != nil && ev.Start.Model != "" {
			s.result.Model = ev.Start.Model
		}
	case llm.KindStreamFinish:
		if ev.Finish == nil {
			break
		}
		s.result.FinishReason = ev.Finish.Reason
		if ev.Finish.Usage != nil {
			s.result.Usage = ev.Finish.Usage
		}
	}

	s.cfg.Observer.EventEmitted(s.info, ev.Kind)
	return nil
}

// fail reports a fatal failure with a single error record and enters Errored.
func (s *session) fail(ctx context.Context, err error, msg string) error {
	if emitErr := s.emit(ctx, llm.Error(msg)); emitErr != nil {
		s.logger.Debug("could not report failure", "error", emitErr)
	}
	s.transition(StateErrored)

	return err
}

// cancelled enters Errored without reporting anything downstream.
func (s *session) cancelled(ctx context.Context) error {
	s.transition(StateErrored)
	return ctx.Err()
}

func (s *session) decodeFailed(err error) {
	s.result.DecodeFailures++
	s.cfg.Observer.DecodeFailed(s.info, err)
}

func (s *session) transition(to State) {
	from := s.state
	if from.Terminal() {
		s.logger.Debug("ignoring transition out of terminal state", "from", from, "to", to)
		return
	}

	s.state = to
	s.cfg.Observer.StateChanged(s.info, from, to)
}

func (s *session) finish(err error) {
	s.reassembler.Reset()
	s.result.Duration = time.Since(s.result.StartedAt)

	// Some schemas report usage after the finish event.
	if s.result.Usage == nil {
		s.result.Usage = s.decoder.Usage()
	}
	s.decoder = nil

	switch {
	case err == nil:
		s.result.Outcome = OutcomeCompleted
	case !IsFatal(err):
		s.result.Outcome = OutcomeCancelled
	default:
		s.result.Outcome = OutcomeFailed
		s.result.Error = err.Error()
	}

	s.cfg.Observer.SessionFinished(s.result)
}

func mergeHeaders(base, extra http.Header) http.Header {
	if len(extra) == 0 {
		return base
	}

	merged := base.Clone()
	if merged == nil {
		merged = make(http.Header, len(extra))
	}
	for k, vs := range extra {
		for _, v := range vs {
			merged.Add(k, v)
		}
	}
	return merged
}
