// Package initcmder provides the init command for initializing a local
// .factory directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/factory/pkg/cliui"
	"github.com/papercomputeco/factory/pkg/config"
	"github.com/papercomputeco/factory/pkg/dotdir"
)

const (
	configFile    = "config.toml"
	fetchTimeout  = 15 * time.Second
	maxRemoteSize = 1 << 20
)

const initLongDesc string = `Initialize a new .factory/ directory in the current working directory.

Creates a local .factory/ directory that takes precedence over ~/.factory/
for configuration, credentials and the default on-disk stores, and writes
a config.toml.

Without --preset an existing config.toml is left untouched. With --preset
the config is (re)written from one of the built-in presets or from a TOML
file fetched over HTTP.

Presets:
  local      sqlite rows and vectors, ollama generation and embeddings
  postgres   postgres rows, pgvector index
  cloud      qdrant index, openai embeddings, every hosted provider

Examples:
  factory init
  factory init --preset postgres
  factory init --preset https://example.com/factory/config.toml`

const initShortDesc string = "Initialize a local .factory/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.Context(), cmd.OutOrStdout(), preset)
		},
		ValidArgsFunction: cobra.NoFileCompletions,
	}

	cmd.Flags().StringVar(&preset, "preset", "",
		fmt.Sprintf("Config preset (%s) or an http(s) URL to a config.toml", strings.Join(config.ValidPresetNames(), ", ")))
	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runInit(ctx context.Context, w io.Writer, preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dotdir.DirName)
	existed := false
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		existed = true
	}

	// Resolve the preset before touching disk so a bad preset leaves no trace.
	var cfg *config.Config
	switch {
	case preset == "":
		cfg = config.NewDefaultConfig()
	case isURL(preset):
		if cfg, err = fetchRemoteConfig(ctx, preset); err != nil {
			return err
		}
	default:
		if cfg, err = config.PresetConfig(preset); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s directory: %w", dotdir.DirName, err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	_, statErr := os.Stat(filepath.Join(dir, configFile))
	hasConfig := statErr == nil

	if preset != "" || !hasConfig {
		if err := cfger.SaveConfig(cfg); err != nil {
			return err
		}
	}

	switch {
	case existed && preset == "":
		fmt.Fprintf(w, "  %s Already initialized: %s\n", cliui.SuccessMark, cliui.DimStyle.Render(dir))
	case preset != "":
		fmt.Fprintf(w, "  %s Initialized %s with preset %s\n",
			cliui.SuccessMark, cliui.DimStyle.Render(dir), cliui.ValueStyle.Render(preset))
	default:
		fmt.Fprintf(w, "  %s Initialized %s\n", cliui.SuccessMark, cliui.DimStyle.Render(dir))
	}
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize+1))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	if len(data) > maxRemoteSize {
		return nil, errors.New("fetching remote config: response too large")
	}

	return config.ParseConfigTOML(data)
}
