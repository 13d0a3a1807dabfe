// Package servecmder provides the serve command for running the relay server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/relay/api"
	"github.com/papercomputeco/relay/cmd/relay/upstream"
	"github.com/papercomputeco/relay/pkg/config"
	"github.com/papercomputeco/relay/pkg/credentials"
	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/pkg/eventstream/kafka"
	"github.com/papercomputeco/relay/pkg/eventstream/nop"
	"github.com/papercomputeco/relay/pkg/logger"
	storageutils "github.com/papercomputeco/relay/pkg/storage/utils"
	"github.com/papercomputeco/relay/proxy"
)

type serveCommander struct {
	flags struct {
		listen         string
		apiListen      string
		anthropicURL   string
		openaiURL      string
		connectTimeout string
		readTimeout    string
		chunkSize      uint
		sqlitePath     string
		postgresDSN    string
		kafkaBrokers   string
		kafkaTopic     string
	}

	forwardHeaders []string
	logFormat      string
	logFile        string

	debug     bool
	configDir string
	cfg       *config.Config
	logger    *slog.Logger
}

const serveLongDesc string = `Run the relay server.

Clients POST a provider chat request to /v1/streams/<provider>; the relay
streams it from the upstream provider and answers with a text/event-stream
of normalized ai-stream-chunk, ai-stream-error, and ai-stream-end events.

A read-only session API listens on a second address.

Every provider with an API key (environment, .env, or 'relay auth') is routed.
Finished sessions are recorded to the session store and, when Kafka brokers
are configured, published as events.

Endpoints:
  POST /v1/streams/anthropic   Anthropic Messages API stream
  POST /v1/streams/openai      OpenAI Chat Completions stream
  GET  /healthz                Liveness and routed providers
  GET  /metrics                Prometheus metrics

Session API:
  GET  /v1/sessions            Recent sessions, newest first
  GET  /v1/sessions/stats      Aggregates over every session
  GET  /v1/sessions/<id>       One session record`

const serveShortDesc string = "Run the relay server"

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagAPIListen,
	config.FlagAnthropicURL,
	config.FlagOpenAIURL,
	config.FlagConnectTimeout,
	config.FlagReadTimeout,
	config.FlagChunkSize,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlagKeys)
			cmder.cfg = config.FromViper(v)
			if err := cmder.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.flags.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.flags.apiListen)
	config.AddStringFlag(cmd, config.Flags, config.FlagAnthropicURL, &cmder.flags.anthropicURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagOpenAIURL, &cmder.flags.openaiURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagConnectTimeout, &cmder.flags.connectTimeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagReadTimeout, &cmder.flags.readTimeout)
	config.AddUintFlag(cmd, config.Flags, config.FlagChunkSize, &cmder.flags.chunkSize)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.flags.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.flags.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.flags.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.flags.kafkaTopic)
	cmd.Flags().StringSliceVar(&cmder.forwardHeaders, "forward-header", nil, "Extra client header to forward upstream (repeatable)")
	cmd.Flags().StringVar(&cmder.logFormat, "log-format", string(logger.FormatPretty),
		"Log format on stderr ("+strings.Join(logger.Formats(), ", ")+")")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	if path, err := credentials.LoadDotEnv("."); err != nil {
		return err
	} else if path != "" {
		c.logger.Debug("loaded environment file", "path", path)
	}

	creds, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	upstreams, err := upstream.ResolveAll(c.cfg, creds)
	if err != nil {
		return err
	}
	for name, up := range upstreams {
		c.logger.Info("routing provider",
			"provider", name,
			"base_url", up.BaseURL,
			"api_key", credentials.Redact(up.APIKey),
		)
	}

	connectTimeout, readTimeout, err := c.cfg.Upstream.Timeouts()
	if err != nil {
		return err
	}

	driver, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		SQLitePath:  c.cfg.Storage.SQLitePath,
		PostgresDSN: c.cfg.Storage.PostgresDSN,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}
	defer driver.Close()

	publisher, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	p, err := proxy.New(proxy.Config{
		ListenAddr:     c.cfg.Server.Listen,
		Upstreams:      upstreams,
		ConnectTimeout: connectTimeout,
		ReadTimeout:    readTimeout,
		ChunkSize:      int(c.cfg.Upstream.ChunkSize),
		ForwardHeaders: c.forwardHeaders,
		Publisher:      publisher,
	}, driver, c.logger)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}

	apiServer := api.NewServer(api.Config{ListenAddr: c.cfg.Server.APIListen}, driver, c.logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := p.Run(); err != nil {
			return fmt.Errorf("relay server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := apiServer.Run(); err != nil {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		c.logger.Info("shutting down")
		return errors.Join(p.Close(), apiServer.Shutdown())
	})

	return g.Wait()
}

// setupLogger builds the stderr logger and, with --log-file, pairs it with a
// JSON logger appending to that file. The returned func closes the file.
func (c *serveCommander) setupLogger() (func(), error) {
	format, err := logger.ParseFormat(c.logFormat)
	if err != nil {
		return nil, err
	}

	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithFormat(format),
		logger.WithWriter(os.Stderr),
	)

	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(console, logger.New(
		logger.WithDebug(c.debug),
		logger.WithFormat(logger.FormatJSON),
		logger.WithWriter(f),
	))
	return func() { f.Close() }, nil
}

func (c *serveCommander) newPublisher() (eventstream.Publisher, error) {
	brokers := c.cfg.EventStream.Brokers()
	if len(brokers) == 0 {
		return nop.NewPublisher(), nil
	}

	pub, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   c.cfg.EventStream.KafkaTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	c.logger.Info("publishing session events",
		"brokers", c.cfg.EventStream.KafkaBrokers,
		"topic", c.cfg.EventStream.KafkaTopic,
	)
	return pub, nil
}
