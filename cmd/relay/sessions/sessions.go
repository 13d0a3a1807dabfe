// Package sessionscmder provides the sessions command for inspecting
// recorded streaming sessions.
package sessionscmder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/relay/cmd/relay/sqlitepath"
	"github.com/papercomputeco/relay/pkg/cliui"
	"github.com/papercomputeco/relay/pkg/config"
	"github.com/papercomputeco/relay/pkg/storage"
	storageutils "github.com/papercomputeco/relay/pkg/storage/utils"
	"github.com/papercomputeco/relay/pkg/utils"
)

type sessionsCommander struct {
	flags struct {
		sqlitePath  string
		postgresDSN string
	}

	limit   int
	jsonOut bool
	cfg     *config.Config
}

const sessionsLongDesc string = `List recorded streaming sessions, newest first.

Records are read from the configured PostgreSQL or SQLite session store. When
neither is configured, a relay.db is looked up in $XDG_DATA_HOME/relay/, then
the relay directory (./.relay/ or ~/.relay/), then ./.

With a session id argument, the full record of that session is shown.

Examples:
  relay sessions
  relay sessions --limit 5 --json
  relay sessions 2f0c1a9e-5d1b-4f7e-9a77-1f6f1a2b3c4d`

const sessionsShortDesc string = "List recorded sessions"

var sessionsFlagKeys = []string{
	config.FlagSQLite,
	config.FlagPostgres,
}

func NewSessionsCmd() *cobra.Command {
	cmder := &sessionsCommander{}

	cmd := &cobra.Command{
		Use:   "sessions [id]",
		Short: sessionsShortDesc,
		Long:  sessionsLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, sessionsFlagKeys)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.flags.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.flags.postgresDSN)
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 20, "Maximum number of sessions to list, 0 for all")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Write records as JSON lines")

	return cmd
}

func (c *sessionsCommander) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	opts := &storageutils.NewDriverOpts{
		PostgresDSN: c.cfg.Storage.PostgresDSN,
		SQLitePath:  c.cfg.Storage.SQLitePath,
	}
	if opts.PostgresDSN == "" {
		path, err := sqlitepath.ResolveSQLitePath(opts.SQLitePath)
		if err != nil {
			return err
		}
		opts.SQLitePath = path
	}

	driver, err := storageutils.NewDriver(ctx, opts)
	if err != nil {
		return err
	}
	defer driver.Close()

	if len(args) == 1 {
		rec, err := driver.Get(ctx, args[0])
		if err != nil {
			var nf storage.NotFoundError
			if errors.As(err, &nf) {
				return fmt.Errorf("no session %q in the store", args[0])
			}
			return err
		}

		if c.jsonOut {
			return writeJSON(out, rec)
		}
		printRecord(out, rec)
		return nil
	}

	recs, err := driver.List(ctx, c.limit)
	if err != nil {
		return err
	}

	if c.jsonOut {
		for _, rec := range recs {
			if err := writeJSON(out, rec); err != nil {
				return err
			}
		}
		return nil
	}

	if len(recs) == 0 {
		fmt.Fprintf(out, "\n  %s No recorded sessions.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Fprintln(out)
	for _, rec := range recs {
		printLine(out, rec)
	}
	fmt.Fprintln(out)
	return nil
}

func writeJSON(w io.Writer, rec *storage.SessionRecord) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(rec)
}

func outcomeMark(rec *storage.SessionRecord) string {
	if rec.Outcome == "completed" {
		return cliui.SuccessMark
	}
	return cliui.FailMark
}

func printLine(w io.Writer, rec *storage.SessionRecord) {
	fmt.Fprintf(w, "  %s %s  %s  %s  %s\n",
		outcomeMark(rec),
		cliui.DimStyle.Render(rec.StartedAt.Local().Format("2006-01-02 15:04:05")),
		cliui.NameStyle.Render(fmt.Sprintf("%-9s", rec.Provider)),
		rec.ID,
		cliui.StepStyle.Render(fmt.Sprintf("(%s, %s)", utils.Truncate(rec.Model, 32), cliui.FormatDuration(rec.Duration))),
	)
}

func printRecord(w io.Writer, rec *storage.SessionRecord) {
	const width = 17

	fields := []struct{ key, value string }{
		{"id", rec.ID},
		{"provider", rec.Provider},
		{"model", rec.Model},
		{"outcome", rec.Outcome},
		{"finish_reason", rec.FinishReason},
		{"error", rec.Error},
		{"started_at", rec.StartedAt.Local().Format("2006-01-02 15:04:05 MST")},
		{"duration", cliui.FormatDuration(rec.Duration)},
		{"text_deltas", fmt.Sprint(rec.TextDeltas)},
		{"error_events", fmt.Sprint(rec.ErrorEvents)},
		{"decode_failures", fmt.Sprint(rec.DecodeFailures)},
		{"prompt_tokens", fmt.Sprint(rec.PromptTokens)},
		{"completion_tokens", fmt.Sprint(rec.CompletionTokens)},
	}

	fmt.Fprintf(w, "\n  %s %s\n\n", outcomeMark(rec), cliui.HeaderStyle.Render("Session"))
	for _, f := range fields {
		fmt.Fprintf(w, "  %s\n", cliui.KeyValue(f.key, f.value, width))
	}
	fmt.Fprintln(w)
}
