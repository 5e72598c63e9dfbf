// Package bootstrapcmder provides the bootstrap command.
package bootstrapcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/factory/api"
	"github.com/papercomputeco/factory/cmd/factory/remote"
	"github.com/papercomputeco/factory/pkg/cliui"
	"github.com/papercomputeco/factory/pkg/pipeline"
)

type bootstrapCommander struct {
	remote remote.Options
	prefer string
}

const bootstrapLongDesc string = `Bootstrap a repo pack from a project's latest synthesis.

Asks the preferred provider for a set of files, stores every file with a safe
relative path as an artifact and prints what was stored. Fetch the result
with factory download.

Examples:
  factory bootstrap <project-id>
  factory bootstrap <project-id> --prefer gemini`

const bootstrapShortDesc string = "Bootstrap a repo pack"

func NewBootstrapCmd() *cobra.Command {
	cmder := &bootstrapCommander{}

	cmd := &cobra.Command{
		Use:   "bootstrap <project-id>",
		Short: bootstrapShortDesc,
		Long:  bootstrapLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	remote.AddFlags(cmd, &cmder.remote)
	cmd.Flags().StringVar(&cmder.prefer, "prefer", "", "Preferred provider (default: providers.prefer_bootstrap)")

	return cmd
}

func (c *bootstrapCommander) run(cmd *cobra.Command, projectID string) error {
	cl, err := remote.Client(cmd)
	if err != nil {
		return err
	}

	var out *pipeline.BootstrapOutput
	err = cliui.Step(cmd.ErrOrStderr(), "Bootstrapping", func() error {
		var err error
		out, err = cl.Bootstrap(cmd.Context(), api.StageRequest{
			UserID:    c.remote.User,
			ProjectID: projectID,
			Prefer:    c.prefer,
		})
		return err
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if c.remote.JSON {
		return remote.PrintJSON(w, out)
	}

	fmt.Fprintf(w, "\n  %s %s\n\n",
		cliui.HeaderStyle.Render("Stored files"),
		cliui.DimStyle.Render(fmt.Sprintf("(%s, run %s)", out.Provider, out.RunID)),
	)
	if len(out.Stored) == 0 {
		fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render("No files were stored."))
		return nil
	}
	for _, f := range out.Stored {
		fmt.Fprintf(w, "  %s %s %s\n",
			cliui.SuccessMark,
			cliui.ValueStyle.Render(f.Path),
			cliui.DimStyle.Render(fmt.Sprintf("%d bytes", f.Bytes)),
		)
	}
	fmt.Fprintln(w)
	return nil
}
