// Package remote holds the flags and output helpers shared by commands that
// call a running factory API server.
package remote

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/factory/api/client"
	"github.com/papercomputeco/factory/pkg/config"
)

// Options are the flags every remote command accepts.
type Options struct {
	APITarget string
	User      string
	JSON      bool
}

// AddTargetFlag registers --api-target on cmd.
func AddTargetFlag(cmd *cobra.Command, target *string) {
	config.AddStringFlag(cmd, config.Registry, config.FlagAPITarget, target)
}

// AddFlags registers --api-target, --user and --json on cmd.
func AddFlags(cmd *cobra.Command, o *Options) {
	AddTargetFlag(cmd, &o.APITarget)
	cmd.Flags().StringVarP(&o.User, "user", "u", "", "Owner identity (default: the server's default owner)")
	cmd.Flags().BoolVar(&o.JSON, "json", false, "Print the raw JSON response")
}

// Client builds an API client. The target resolves as --api-target, then
// FACTORY_CLIENT_API_TARGET, then config.toml, then the default.
func Client(cmd *cobra.Command) (*client.Client, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Registry, []string{config.FlagAPITarget})

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return client.New(cfg.Client.APITarget, nil)
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
