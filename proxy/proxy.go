// Package proxy provides the relay HTTP server. It accepts provider chat
// requests from downstream clients, streams them from the upstream provider,
// and answers with a normalized event stream.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/papercomputeco/relay/pkg/llm/provider"
	relaylogger "github.com/papercomputeco/relay/pkg/logger"
	"github.com/papercomputeco/relay/pkg/metrics"
	"github.com/papercomputeco/relay/pkg/storage"
	"github.com/papercomputeco/relay/pkg/stream"
	"github.com/papercomputeco/relay/proxy/header"
	"github.com/papercomputeco/relay/proxy/worker"
)

const (
	// StreamRoute is the route template for streaming sessions.
	StreamRoute = "/v1/streams/:provider"

	shutdownGracePeriod = 10 * time.Second
)

// Proxy is the relay server. Each POST to StreamRoute runs one streaming
// session against the named provider and writes its records back to the
// client as server-sent events. Finished sessions are enqueued for async
// storage and publishing via its worker pool.
type Proxy struct {
	config        Config
	workerPool    *worker.Pool
	logger        *slog.Logger
	server        *fiber.App
	drivers       map[string]*stream.Driver
	headerHandler *header.Handler
	registry      *prometheus.Registry

	// ctx scopes every session; it is cancelled on Close.
	ctx      context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
}

// New creates a new Proxy.
// The storage driver is injected to handle async persistence of session records.
// Returns an error if a configured provider name is not recognized.
func New(config Config, driver storage.Driver, logger *slog.Logger) (*Proxy, error) {
	if len(config.Upstreams) == 0 {
		return nil, errors.New("at least one upstream is required")
	}

	if logger == nil {
		logger = relaylogger.Nop()
	}

	registry := prometheus.NewRegistry()
	observer := stream.MultiObserver{
		stream.NewLogObserver(logger),
		metrics.NewObserver(registry),
	}

	client := stream.NewClient(config.ConnectTimeout, config.ResponseHeaderTimeout)

	drivers := make(map[string]*stream.Driver, len(config.Upstreams))
	for name, upstream := range config.Upstreams {
		prov, err := provider.New(name)
		if err != nil {
			return nil, fmt.Errorf("could not create provider %s: %w", name, err)
		}

		d, err := stream.NewDriver(stream.Config{
			Provider:    prov,
			Upstream:    upstream,
			Client:      client,
			ChunkSize:   config.ChunkSize,
			ReadTimeout: config.ReadTimeout,
			Observer:    observer,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create stream driver %s: %w", name, err)
		}
		drivers[name] = d
	}

	wp, err := worker.NewPool(&worker.Config{
		Driver:    driver,
		Publisher: config.Publisher,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	ctx, cancel := context.WithCancel(context.Background())

	p := &Proxy{
		config:        config,
		workerPool:    wp,
		logger:        logger,
		server:        app,
		drivers:       drivers,
		headerHandler: header.NewHandler(config.ForwardHeaders...),
		registry:      registry,
		ctx:           ctx,
		cancel:        cancel,
	}

	app.Get("/healthz", p.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(registry)))
	app.Post(StreamRoute, p.handleStream)

	return p, nil
}

// Providers returns the names of the routed providers, sorted.
func (p *Proxy) Providers() []string {
	names := make([]string, 0, len(p.drivers))
	for name := range p.drivers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Run starts the relay server on the given listening address
func (p *Proxy) Run() error {
	p.logger.Info("starting relay server",
		"listen", p.config.ListenAddr,
		"providers", strings.Join(p.Providers(), ","),
	)

	return p.server.Listen(p.config.ListenAddr)
}

// RunWithListener starts the relay server using the provided listener.
func (p *Proxy) RunWithListener(listener net.Listener) error {
	p.logger.Info("starting relay server",
		"listen", listener.Addr().String(),
		"providers", strings.Join(p.Providers(), ","),
	)

	return p.server.Listener(listener)
}

// Close gracefully shuts down the server. In-flight sessions get a grace
// period to finish before they are cancelled; the worker pool is drained
// last.
func (p *Proxy) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()

	err := p.server.ShutdownWithContext(ctx)

	p.cancel()
	p.sessions.Wait()
	p.workerPool.Close()

	return err
}

func (p *Proxy) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"providers": p.Providers(),
	})
}

// handleStream runs one streaming session. The response body is an io.Pipe
// fed by the session goroutine.
func (p *Proxy) handleStream(c *fiber.Ctx) error {
	name := c.Params("provider")
	d, ok := p.drivers[name]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("provider %q is not configured", name),
		})
	}

	// fasthttp reuses the request buffer once the handler returns.
	body := bytes.Clone(c.Body())
	if len(bytes.TrimSpace(body)) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "request body is required",
		})
	}

	sessionID := strings.Clone(c.Get(header.SessionIDHeader))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	req := stream.Request{
		SessionID: sessionID,
		Body:      body,
		Headers:   p.headerHandler.ForwardedRequestHeaders(c),
	}
	path := strings.Clone(c.Path())

	p.headerHandler.SetStreamResponseHeaders(c, sessionID)

	// Use io.Pipe + SetBodyStream instead of SetBodyStreamWriter.
	// SetBodyStreamWriter uses an internal PipeConns with a buffered channel
	// and bufio.Writers, which delays records behind unrelated buffering.
	// With io.Pipe, pw.Write blocks until fasthttp reads the record and
	// writes it to the client connection.
	pr, pw := io.Pipe()

	p.sessions.Add(1)
	go p.runSession(d, req, path, pw)

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// runSession drives the session into pw and hands the result to the worker
// pool. A client that stops reading is detected as a failed pipe write.
func (p *Proxy) runSession(d *stream.Driver, req stream.Request, path string, pw *io.PipeWriter) {
	defer p.sessions.Done()

	// Unblocks a pending pipe write when the server shuts down.
	stop := context.AfterFunc(p.ctx, func() {
		pw.CloseWithError(p.ctx.Err())
	})
	defer stop()

	res, err := d.Run(p.ctx, req, newEventStreamSink(pw))
	pw.Close()

	if err != nil {
		p.logger.Debug("session ended with error",
			"session_id", res.SessionID,
			"path", path,
			"error", err,
		)
	}

	p.workerPool.Enqueue(worker.Job{Path: path, Result: res})
}
