// Package researchcmder provides the research command.
package researchcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/factory/api"
	"github.com/papercomputeco/factory/cmd/factory/remote"
	"github.com/papercomputeco/factory/pkg/cliui"
	"github.com/papercomputeco/factory/pkg/pipeline"
)

type researchCommander struct {
	remote remote.Options
	prefer string
}

const researchLongDesc string = `Run an ad hoc research prompt against a project.

The prompt is combined with the project's idea and constraints and sent to a
single provider. The project status does not change.

Examples:
  factory research <project-id> "who else builds tiny CI runners?"
  factory research <project-id> "licensing risks" --prefer anthropic`

const researchShortDesc string = "Research a question about a project"

func NewResearchCmd() *cobra.Command {
	cmder := &researchCommander{}

	cmd := &cobra.Command{
		Use:   "research <project-id> <prompt>",
		Short: researchShortDesc,
		Long:  researchLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0], args[1])
		},
	}

	remote.AddFlags(cmd, &cmder.remote)
	cmd.Flags().StringVar(&cmder.prefer, "prefer", "", "Provider to use (default: providers.prefer_research)")

	return cmd
}

func (c *researchCommander) run(cmd *cobra.Command, projectID, prompt string) error {
	cl, err := remote.Client(cmd)
	if err != nil {
		return err
	}

	var out *pipeline.ResearchOutput
	err = cliui.Step(cmd.ErrOrStderr(), "Researching", func() error {
		var err error
		out, err = cl.Research(cmd.Context(), api.ResearchRequest{
			UserID:    c.remote.User,
			ProjectID: projectID,
			Prompt:    prompt,
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
	return remote.PrintJSON(w, out.Research)
}
