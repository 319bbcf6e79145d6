// Package scribecmder
package scribecmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/scribe/cmd/scribe/config"
	servecmder "github.com/papercomputeco/scribe/cmd/scribe/serve"
	summarizecmder "github.com/papercomputeco/scribe/cmd/scribe/summarize"
	versioncmder "github.com/papercomputeco/scribe/cmd/version"
)

const scribeLongDesc string = `Scribe streams model-written summaries over server-sent events.

Run the server and talk to it using:
  scribe serve                    Run the authenticated streaming API
  scribe summarize --notes ...    Summarize a visit through a running server
  scribe summarize --idea         Ask a running server for a business idea
  scribe config                   Manage persistent configuration`

const scribeShortDesc string = "Scribe - streaming visit summaries"

func NewScribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "scribe",
		Short:        scribeShortDesc,
		Long:         scribeLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .scribe/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(summarizecmder.NewSummarizeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
