// Package streamcmder provides the stream command, which runs one streaming
// session and writes its records to stdout.
package streamcmder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/relay/cmd/relay/upstream"
	"github.com/papercomputeco/relay/pkg/cliui"
	"github.com/papercomputeco/relay/pkg/config"
	"github.com/papercomputeco/relay/pkg/credentials"
	"github.com/papercomputeco/relay/pkg/llm/provider"
	"github.com/papercomputeco/relay/pkg/logger"
	"github.com/papercomputeco/relay/pkg/stream"
)

type streamCommander struct {
	flags struct {
		provider       string
		anthropicURL   string
		openaiURL      string
		connectTimeout string
		readTimeout    string
		chunkSize      uint
	}

	sessionID string
	render    bool
	quiet     bool
	endMarker bool

	debug     bool
	configDir string
	cfg       *config.Config
}

const streamLongDesc string = `Stream one chat request and print the normalized records.

The request body is read from the file argument, or from stdin when the
argument is omitted or "-". Streaming is always forced on. Records are
written to stdout as an AI SDK data stream, one part per line.

The data stream has no end part. A session that drained normally exits
with status 0; with --end-marker it also writes a final "ai-stream-end"
line, which is never written for a failed or interrupted session.

A session summary is printed to stderr. With --render, the collected text
is rendered as markdown to stderr once the stream ends.

Examples:
  relay stream request.json
  relay stream -p openai < chat.json
  echo '{"model":"claude-sonnet-4-5","max_tokens":256,"messages":[{"role":"user","content":"Hi"}]}' | relay stream --render`

const streamShortDesc string = "Stream one request to stdout"

var streamFlagKeys = []string{
	config.FlagProvider,
	config.FlagAnthropicURL,
	config.FlagOpenAIURL,
	config.FlagConnectTimeout,
	config.FlagReadTimeout,
	config.FlagChunkSize,
}

func NewStreamCmd() *cobra.Command {
	cmder := &streamCommander{}

	cmd := &cobra.Command{
		Use:   "stream [file]",
		Short: streamShortDesc,
		Long:  streamLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, streamFlagKeys)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return cmder.run(cmd, args)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.flags.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagAnthropicURL, &cmder.flags.anthropicURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagOpenAIURL, &cmder.flags.openaiURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagConnectTimeout, &cmder.flags.connectTimeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagReadTimeout, &cmder.flags.readTimeout)
	config.AddUintFlag(cmd, config.Flags, config.FlagChunkSize, &cmder.flags.chunkSize)
	cmd.Flags().StringVar(&cmder.sessionID, "session-id", "", "Session id (default: random)")
	cmd.Flags().BoolVar(&cmder.render, "render", false, "Render the collected text as markdown to stderr")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Suppress the session summary")
	cmd.Flags().BoolVar(&cmder.endMarker, "end-marker", false, "Write a final \""+stream.ChannelEnd+"\" line when the stream drains")

	return cmd
}

func (c *streamCommander) run(cmd *cobra.Command, args []string) error {
	stderr := cmd.ErrOrStderr()

	body, err := readBody(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	if _, err := credentials.LoadDotEnv("."); err != nil {
		return err
	}

	prov, err := provider.New(c.cfg.Upstream.Provider)
	if err != nil {
		return err
	}

	creds, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	up, err := upstream.Resolve(c.cfg, creds, prov.Name())
	if err != nil {
		return err
	}

	connectTimeout, readTimeout, err := c.cfg.Upstream.Timeouts()
	if err != nil {
		return err
	}

	cfg := stream.Config{
		Provider:    prov,
		Upstream:    up,
		Client:      stream.NewClient(connectTimeout, 0),
		ChunkSize:   int(c.cfg.Upstream.ChunkSize),
		ReadTimeout: readTimeout,
	}
	if c.debug {
		log := logger.New(logger.WithDebug(true), logger.WithFormat(logger.FormatPretty), logger.WithWriter(stderr))
		cfg.Logger = log
		cfg.Observer = stream.NewLogObserver(log)
	}

	d, err := stream.NewDriver(cfg)
	if err != nil {
		return err
	}

	sessionID := c.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var spin *cliui.Spinner
	if !c.quiet && !c.debug && cliui.IsTerminal(stderr) {
		spin = cliui.StartSpinner(stderr, "waiting for "+prov.DisplayName())
	}

	var text strings.Builder
	var sinkOpts []stream.WriterSinkOption
	if c.endMarker {
		sinkOpts = append(sinkOpts, stream.WithEndLine(stream.ChannelEnd))
	}
	out := stream.NewWriterSink(cmd.OutOrStdout(), sinkOpts...)
	sink := stream.SinkFunc(func(ctx context.Context, rec stream.Record) error {
		spin.Stop()
		if t, ok := rec.Text(); ok {
			text.WriteString(t)
		}
		return out.Send(ctx, rec)
	})

	res, runErr := d.Run(ctx, stream.Request{SessionID: sessionID, Body: body}, sink)
	spin.Stop()

	if c.render && text.Len() > 0 {
		rendered, err := cliui.RenderMarkdown(text.String())
		if err != nil {
			rendered = text.String()
		}
		fmt.Fprint(stderr, rendered)
	}

	if !c.quiet {
		printSummary(stderr, prov, res, runErr)
	}

	return runErr
}

// readBody reads the request body from the file named by args, or from in.
func readBody(in io.Reader, args []string) ([]byte, error) {
	var (
		body []byte
		err  error
	)

	if len(args) == 0 || args[0] == "-" {
		body, err = io.ReadAll(in)
	} else {
		body, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("request body is required")
	}

	return body, nil
}

func printSummary(w io.Writer, prov provider.Provider, res *stream.Result, err error) {
	fmt.Fprintln(w)
	cliui.Outcome(w, err, cliui.NameStyle.Render(prov.DisplayName()), res.Duration)

	fmt.Fprintf(w, "  %s\n", cliui.KeyValue("session", res.SessionID, 8))
	if res.Model != "" {
		fmt.Fprintf(w, "  %s\n", cliui.KeyValue("model", res.Model, 8))
	}
	fmt.Fprintf(w, "  %s\n", cliui.KeyValue("outcome", string(res.Outcome), 8))
	if res.FinishReason != "" {
		fmt.Fprintf(w, "  %s\n", cliui.KeyValue("finish", res.FinishReason, 8))
	}
	if res.Usage != nil {
		fmt.Fprintf(w, "  %s\n", cliui.KeyValue("tokens",
			fmt.Sprintf("%d in, %d out", res.Usage.PromptTokens, res.Usage.CompletionTokens), 8))
	}
	if res.Error != "" {
		fmt.Fprintf(w, "  %s\n", cliui.ErrorStyle.Render(res.Error))
	}
	fmt.Fprintln(w)
}
