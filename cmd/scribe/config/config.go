// Package configcmder provides the config command for managing persistent
// scribe configuration stored in the .scribe/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent scribe configuration.

Configuration is stored as config.toml in the .scribe/ directory and provides
default values for command flags. Environment variables (SCRIBE_*) and CLI
flags take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen, server.allowed_origins,
  auth.jwks_url, auth.issuer, auth.audience, auth.authorized_parties, auth.leeway,
  model.provider, model.name, model.upstream, model.api_key,
  client.target

List valued keys take a comma separated value.

Use subcommands to get, set, or list configuration values:
  scribe config set <key> <value>    Set a configuration value
  scribe config get <key>            Get a configuration value
  scribe config list                 List all configuration values

Examples:
  scribe config set auth.jwks_url https://auth.example.com/.well-known/jwks.json
  scribe config set server.allowed_origins https://app.example.com,https://admin.example.com
  scribe config get model.provider
  scribe config list`

const configShortDesc string = "Manage persistent scribe configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
