// Package synthesizecmder provides the synthesize command.
package synthesizecmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/factory/api"
	"github.com/papercomputeco/factory/cmd/factory/remote"
	"github.com/papercomputeco/factory/pkg/cliui"
	"github.com/papercomputeco/factory/pkg/pipeline"
)

type synthesizeCommander struct {
	remote remote.Options
	prefer string
}

const synthesizeLongDesc string = `Synthesize a project's latest brainstorm into one plan.

Sends the brainstorm packet to the preferred provider, failing over to the
other configured providers, and prints the decoded synthesis. Memory
candidates in the synthesis are written to the memory engine.

Examples:
  factory synthesize <project-id>
  factory synthesize <project-id> --prefer openai`

const synthesizeShortDesc string = "Synthesize a brainstorm into a plan"

func NewSynthesizeCmd() *cobra.Command {
	cmder := &synthesizeCommander{}

	cmd := &cobra.Command{
		Use:   "synthesize <project-id>",
		Short: synthesizeShortDesc,
		Long:  synthesizeLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	remote.AddFlags(cmd, &cmder.remote)
	cmd.Flags().StringVar(&cmder.prefer, "prefer", "", "Preferred provider (default: providers.prefer_synthesize)")

	return cmd
}

func (c *synthesizeCommander) run(cmd *cobra.Command, projectID string) error {
	cl, err := remote.Client(cmd)
	if err != nil {
		return err
	}

	var out *pipeline.SynthesizeOutput
	err = cliui.Step(cmd.ErrOrStderr(), "Synthesizing", func() error {
		var err error
		out, err = cl.Synthesize(cmd.Context(), api.StageRequest{
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

	fmt.Fprintf(w, "\n  %s %s %s\n\n",
		cliui.KeyStyle.Render("Provider:"),
		cliui.NameStyle.Render(string(out.Provider)),
		cliui.DimStyle.Render("run "+out.RunID),
	)
	return remote.PrintJSON(w, out.Synthesized)
}
