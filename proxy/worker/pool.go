// Package worker provides an asynchronous worker pool for persisting and
// publishing finished streaming sessions using the provided storage.Driver and
// eventstream.Publisher.
//
// The pool decouples storage operations from the relay's HTTP hot path so that
// a slow database or broker never holds up the downstream stream.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/pkg/logger"
	"github.com/papercomputeco/relay/pkg/storage"
	"github.com/papercomputeco/relay/pkg/stream"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 30 * time.Second
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	// Path is the relay route that served the session, empty for the CLI.
	Path string

	// Result is the summary returned by the stream driver.
	Result *stream.Result
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting session records.
	Driver storage.Driver

	// Publisher is the optional event publisher for completed sessions.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds the storage and publish calls of one job.
	JobTimeout time.Duration

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool processes storage jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("worker pool requires a storage driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout == 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	if job.Result == nil {
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"session_id", job.Result.SessionID,
			"provider", job.Result.Provider,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"session_id", job.Result.SessionID,
			"provider", job.Result.Provider,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the relay HTTP server has stopped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("storage worker stopped", "worker_id", id)
}

// processJob stores the session record and, when a publisher is configured,
// publishes the completed session event. A publish failure does not undo the
// stored record.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	rec := storage.NewSessionRecord(job.Result)

	if err := p.config.Driver.Put(ctx, rec); err != nil {
		p.logger.Error("session storage failed",
			"session_id", rec.ID,
			"provider", rec.Provider,
			"error", err,
		)
		return
	}

	p.logger.Info("session stored",
		"session_id", rec.ID,
		"provider", rec.Provider,
		"outcome", rec.Outcome,
	)

	if p.config.Publisher == nil {
		return
	}

	if err := p.config.Publisher.PublishSession(ctx, eventstream.NewSessionCompletedEvent(rec, job.Path)); err != nil {
		p.logger.Warn("failed to publish session event",
			"session_id", rec.ID,
			"error", err,
		)
		return
	}

	p.logger.Debug("session event published", "session_id", rec.ID)
}
