// Package brainstormcmder provides the brainstorm command.
package brainstormcmder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/factory/api"
	"github.com/papercomputeco/factory/cmd/factory/remote"
	"github.com/papercomputeco/factory/pkg/cliui"
	"github.com/papercomputeco/factory/pkg/pipeline"
	"github.com/papercomputeco/factory/pkg/provider"
)

type brainstormCommander struct {
	remote remote.Options

	providers   []string
	name        string
	projectID   string
	constraints string
}

const brainstormLongDesc string = `Brainstorm an idea across one or more model providers.

Creates a new project, or continues an existing one with --project, and fans
the brainstorm prompt out to every selected provider in parallel. Providers
without credentials report NOT_CONFIGURED instead of failing the run.

Examples:
  factory brainstorm "a tiny CI runner"
  factory brainstorm "a tiny CI runner" --provider local,anthropic,openai
  factory brainstorm "a tiny CI runner" --constraints '{"language":"go"}'
  factory brainstorm "more ideas" --project <project-id>`

const brainstormShortDesc string = "Brainstorm an idea"

func NewBrainstormCmd() *cobra.Command {
	cmder := &brainstormCommander{}

	cmd := &cobra.Command{
		Use:   "brainstorm <idea>",
		Short: brainstormShortDesc,
		Long:  brainstormLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	remote.AddFlags(cmd, &cmder.remote)
	cmd.Flags().StringSliceVarP(&cmder.providers, "provider", "p", nil, "Providers to fan out to (default: providers.default)")
	cmd.Flags().StringVar(&cmder.name, "name", "", "Project name for a new project")
	cmd.Flags().StringVar(&cmder.projectID, "project", "", "Continue an existing project")
	cmd.Flags().StringVar(&cmder.constraints, "constraints", "", "Constraints as a JSON value")

	return cmd
}

func (c *brainstormCommander) run(cmd *cobra.Command, idea string) error {
	req := api.BrainstormRequest{
		UserID:      c.remote.User,
		ProjectID:   c.projectID,
		ProjectName: c.name,
		IdeaSeed:    idea,
		Providers:   c.providers,
	}
	if c.constraints != "" {
		if !json.Valid([]byte(c.constraints)) {
			return errors.New("--constraints must be valid JSON")
		}
		req.Constraints = json.RawMessage(c.constraints)
	}

	cl, err := remote.Client(cmd)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	var out *pipeline.BrainstormOutput
	err = cliui.Step(cmd.ErrOrStderr(), "Brainstorming", func() error {
		var err error
		out, err = cl.Brainstorm(cmd.Context(), req)
		return err
	})
	if err != nil {
		return err
	}

	if c.remote.JSON {
		return remote.PrintJSON(w, out)
	}
	PrintResults(w, out)
	return nil
}

// PrintResults renders one line per provider result.
func PrintResults(w io.Writer, out *pipeline.BrainstormOutput) {
	fmt.Fprintf(w, "\n  %s %s\n", cliui.KeyStyle.Render("Project:"), cliui.ValueStyle.Render(out.ProjectID))
	fmt.Fprintf(w, "  %s %s\n\n", cliui.KeyStyle.Render("Run:"), cliui.DimStyle.Render(out.RunID))

	for _, r := range out.Results {
		mark := cliui.SuccessMark
		if r.Outcome.Failed() {
			mark = cliui.FailMark
		}
		fmt.Fprintf(w, "  %s %s %s\n",
			mark,
			cliui.NameStyle.Render(string(r.Provider)),
			cliui.DimStyle.Render(cliui.Truncate(oneLine(r), 100)),
		)
	}
	fmt.Fprintln(w)
}

func oneLine(r provider.Result) string {
	text := r.Text
	if text == "" {
		text = r.Outcome.String()
	}
	return strings.Join(strings.Fields(text), " ")
}
