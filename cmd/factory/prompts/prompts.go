// Package promptscmder provides the prompts command for viewing and
// overriding the stage prompt templates held in the factory store.
package promptscmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/factory/pkg/cliui"
	"github.com/papercomputeco/factory/pkg/config"
	"github.com/papercomputeco/factory/pkg/prompts"
	"github.com/papercomputeco/factory/pkg/stack"
)

const promptsLongDesc string = `View and override stage prompt templates.

Templates use {{PLACEHOLDER}} markers that the stages fill in. Overrides are
written to the configured relational store, so a running server picks them
up on the next stage call. Reset restores the built-in template.

Templates: BRAINSTORM, SYNTHESIZE, BOOTSTRAP, RESEARCH, REFLECT

Examples:
  factory prompts list
  factory prompts get SYNTHESIZE
  factory prompts set BOOTSTRAP --file bootstrap.txt
  factory prompts set REFLECT "Summarize {{MEMORIES}} as JSON"
  factory prompts reset BOOTSTRAP`

const promptsShortDesc string = "View and override stage prompt templates"

var storeFlagKeys = []string{
	config.FlagStorageProv,
	config.FlagSQLite,
	config.FlagPostgresDSN,
}

// storeFlags holds flag targets; values reach the config through viper.
type storeFlags struct {
	provider, sqlite, postgres string
}

func addStoreFlags(cmd *cobra.Command) *cobra.Command {
	sf := &storeFlags{}
	config.AddStringFlag(cmd, config.Registry, config.FlagStorageProv, &sf.provider)
	config.AddStringFlag(cmd, config.Registry, config.FlagSQLite, &sf.sqlite)
	config.AddStringFlag(cmd, config.Registry, config.FlagPostgresDSN, &sf.postgres)
	return cmd
}

func NewPromptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: promptsShortDesc,
		Long:  promptsLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newResetCmd())

	return cmd
}

func completeNames(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return prompts.Names(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// templateName upper-cases name and rejects unknown templates.
func templateName(name string) (string, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if _, ok := prompts.Default(name); !ok {
		return "", fmt.Errorf("unknown prompt template: %q\n\nValid templates: %s",
			name, strings.Join(prompts.Names(), ", "))
	}
	return name, nil
}

// withLoader opens the configured store, runs fn with a loader over it and
// closes the store.
func withLoader(cmd *cobra.Command, fn func(ctx context.Context, l *prompts.Loader) error) error {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Registry, storeFlagKeys)

	cfg, err := config.FromViper(v)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Storage.Provider == "memory" || cfg.Storage.Provider == "inmemory" {
		return fmt.Errorf("prompt overrides need a persistent store, got storage provider %q", cfg.Storage.Provider)
	}

	ctx := cmd.Context()
	store, err := stack.OpenStore(ctx, cfg, configDir)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(ctx, prompts.NewLoader(store))
}

func newListCmd() *cobra.Command {
	return addStoreFlags(&cobra.Command{
		Use:   "list",
		Short: "List prompt templates and whether they are overridden",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLoader(cmd, func(ctx context.Context, l *prompts.Loader) error {
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "\n  %s\n\n", cliui.HeaderStyle.Render("Prompt templates"))
				for _, name := range prompts.Names() {
					tpl, err := l.Get(ctx, name)
					if err != nil {
						return err
					}
					def, _ := prompts.Default(name)

					state := cliui.DimStyle.Render("default")
					if tpl != def {
						state = cliui.WarnStyle.Render("overridden")
					}
					fmt.Fprintf(w, "  %-12s %s  %s\n",
						cliui.NameStyle.Render(name),
						state,
						cliui.DimStyle.Render(cliui.Truncate(strings.Join(strings.Fields(tpl), " "), 60)),
					)
				}
				fmt.Fprintln(w)
				return nil
			})
		},
	})
}

func newGetCmd() *cobra.Command {
	return addStoreFlags(&cobra.Command{
		Use:   "get <NAME>",
		Short: "Print the effective template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := templateName(args[0])
			if err != nil {
				return err
			}
			return withLoader(cmd, func(ctx context.Context, l *prompts.Loader) error {
				tpl, err := l.Get(ctx, name)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), tpl)
				return nil
			})
		},
		ValidArgsFunction: completeNames,
	})
}

func newSetCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "set <NAME> [template]",
		Short: "Override a template",
		Long: `Override a template with the given text, the contents of --file, or
stdin when the template argument is "-".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := templateName(args[0])
			if err != nil {
				return err
			}

			tpl, err := readTemplate(cmd.InOrStdin(), args[1:], file)
			if err != nil {
				return err
			}

			return withLoader(cmd, func(ctx context.Context, l *prompts.Loader) error {
				if err := l.Set(ctx, name, tpl); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s Set %s %s\n",
					cliui.SuccessMark,
					cliui.NameStyle.Render(name),
					cliui.DimStyle.Render(fmt.Sprintf("(%d bytes)", len(tpl))),
				)
				return nil
			})
		},
		ValidArgsFunction: completeNames,
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the template from a file")

	return addStoreFlags(cmd)
}

func readTemplate(in io.Reader, args []string, file string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case file != "" && len(args) > 0:
		return "", errors.New("pass the template as an argument or with --file, not both")
	case file != "":
		data, err = os.ReadFile(file)
	case len(args) == 1 && args[0] == "-":
		data, err = io.ReadAll(in)
	case len(args) == 1:
		data = []byte(args[0])
	default:
		return "", errors.New("template text, --file or - for stdin is required")
	}
	if err != nil {
		return "", fmt.Errorf("reading template: %w", err)
	}

	tpl := strings.TrimRight(string(data), "\n")
	if strings.TrimSpace(tpl) == "" {
		return "", errors.New("template cannot be empty; use reset to restore the default")
	}
	return tpl, nil
}

func newResetCmd() *cobra.Command {
	return addStoreFlags(&cobra.Command{
		Use:   "reset <NAME>",
		Short: "Restore the built-in template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := templateName(args[0])
			if err != nil {
				return err
			}
			return withLoader(cmd, func(ctx context.Context, l *prompts.Loader) error {
				if err := l.Reset(ctx, name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s Reset %s\n", cliui.SuccessMark, cliui.NameStyle.Render(name))
				return nil
			})
		},
		ValidArgsFunction: completeNames,
	})
}
