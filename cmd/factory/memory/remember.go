package memorycmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/factory/api"
	"github.com/papercomputeco/factory/cmd/factory/remote"
	"github.com/papercomputeco/factory/pkg/cliui"
)

type rememberCommander struct {
	remote    remote.Options
	projectID string
	kind      string
	tags      []string
	salience  float64
	source    string
}

const rememberLongDesc string = `Store a memory.

Examples:
  factory memory remember "prefers Go for services" --kind preference
  factory memory remember "ships on Fridays" --kind fact --project <project-id> --tags process`

func newRememberCmd() *cobra.Command {
	cmder := &rememberCommander{}

	cmd := &cobra.Command{
		Use:   "remember <text>",
		Short: "Store a memory",
		Long:  rememberLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	remote.AddFlags(cmd, &cmder.remote)
	cmd.Flags().StringVar(&cmder.projectID, "project", "", "Scope the memory to a project")
	cmd.Flags().StringVarP(&cmder.kind, "kind", "k", "note", "Memory kind (preference, fact, decision, artifact, note)")
	cmd.Flags().StringSliceVar(&cmder.tags, "tags", nil, "Comma separated tags")
	cmd.Flags().Float64Var(&cmder.salience, "salience", 0, "Importance between 0 and 1 (default: server default)")
	cmd.Flags().StringVar(&cmder.source, "source", "", "Source (user, agent, system; default: user)")

	return cmd
}

func (c *rememberCommander) run(cmd *cobra.Command, text string) error {
	cl, err := remote.Client(cmd)
	if err != nil {
		return err
	}

	req := api.RememberRequest{
		UserID:    c.remote.User,
		ProjectID: c.projectID,
		Kind:      c.kind,
		Text:      text,
		Tags:      c.tags,
		Source:    c.source,
	}
	if cmd.Flags().Changed("salience") {
		req.Salience = &c.salience
	}

	id, err := cl.Remember(cmd.Context(), req)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if c.remote.JSON {
		return remote.PrintJSON(w, map[string]string{"id": id})
	}
	fmt.Fprintf(w, "  %s Remembered %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(id))
	return nil
}
