// Package configcmder provides the config command for managing persistent
// tablechat configuration stored in the .tablechat/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent tablechat configuration.

Configuration is stored as config.toml in the .tablechat/ directory and
provides default values for command flags. CLI flags and TABLECHAT_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.api_target, client.timeout,
  server.listen, server.upload_dir, server.max_upload_mb, server.session_ttl,
  assistant.provider, assistant.target, assistant.model,
  eventstream.provider, eventstream.brokers, eventstream.topic

Use subcommands to get, set, or list configuration values:
  tablechat config set <key> <value>    Set a configuration value
  tablechat config get <key>            Get a configuration value
  tablechat config list                 List all configuration values

Examples:
  tablechat config set assistant.model llama3.2
  tablechat config set server.session_ttl 2h
  tablechat config get client.api_target
  tablechat config list`

const configShortDesc string = "Manage persistent tablechat configuration"

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
