// Package configcmder provides the config command for managing persistent
// factory configuration stored in the .factory/ directory.
package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/factory/pkg/cliui"
	"github.com/papercomputeco/factory/pkg/config"
)

const configLongDesc string = `Manage persistent factory configuration.

Configuration is stored as config.toml in the .factory/ directory and
provides default values for command flags. CLI flags and FACTORY_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example
storage.provider, vector_store.target, embedding.model, providers.default,
server.listen or memory.recall_k. Run "factory config list" to see them all.

Subcommands:
  factory config set <key> <value>    Set a configuration value
  factory config get <key>            Get a configuration value
  factory config list                 List all configuration values

Examples:
  factory config set storage.provider postgres
  factory config set providers.default local,anthropic,openai
  factory config get embedding.model
  factory config list`

const configShortDesc string = "Manage persistent factory configuration"

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

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
