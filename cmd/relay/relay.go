// Package relaycmder
package relaycmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/relay/cmd/relay/auth"
	configcmder "github.com/papercomputeco/relay/cmd/relay/config"
	initcmder "github.com/papercomputeco/relay/cmd/relay/init"
	servecmder "github.com/papercomputeco/relay/cmd/relay/serve"
	sessionscmder "github.com/papercomputeco/relay/cmd/relay/sessions"
	streamcmder "github.com/papercomputeco/relay/cmd/relay/stream"
	versioncmder "github.com/papercomputeco/relay/cmd/relay/version"
)

const relayLongDesc string = `Relay translates streaming LLM responses into one normalized event stream.

Anthropic and OpenAI chat streams are reassembled, decoded, and re-emitted as
AI SDK data stream records.

Run services using:
  relay serve      Run the relay server
  relay stream     Stream one request to stdout
  relay sessions   List recorded sessions`

const relayShortDesc string = "Relay - LLM stream normalizer"

func NewRelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        relayShortDesc,
		Long:         relayLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .relay/ config directory")

	// Add subcommands
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(sessionscmder.NewSessionsCmd())
	cmd.AddCommand(streamcmder.NewStreamCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
