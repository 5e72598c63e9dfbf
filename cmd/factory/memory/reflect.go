package memorycmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/factory/api"
	"github.com/papercomputeco/factory/cmd/factory/remote"
	"github.com/papercomputeco/factory/pkg/cliui"
)

type reflectCommander struct {
	remote    remote.Options
	projectID string
}

const reflectLongDesc string = `Summarise recent memories into a few durable items.

Needs at least memory.reflect_min memories in scope. Original memories are
kept.

Examples:
  factory memory reflect
  factory memory reflect --project <project-id>`

func newReflectCmd() *cobra.Command {
	cmder := &reflectCommander{}

	cmd := &cobra.Command{
		Use:   "reflect",
		Short: "Summarise recent memories",
		Long:  reflectLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	remote.AddFlags(cmd, &cmder.remote)
	cmd.Flags().StringVar(&cmder.projectID, "project", "", "Reflect on a project's memories")

	return cmd
}

func (c *reflectCommander) run(cmd *cobra.Command) error {
	cl, err := remote.Client(cmd)
	if err != nil {
		return err
	}

	out, err := cl.Reflect(cmd.Context(), api.ReflectRequest{
		UserID:    c.remote.User,
		ProjectID: c.projectID,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if c.remote.JSON {
		return remote.PrintJSON(w, out)
	}

	if out.Message != "" {
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render(out.Message))
		return nil
	}
	fmt.Fprintf(w, "  %s Created %d memories\n", cliui.SuccessMark, len(out.Created))
	for _, id := range out.Created {
		fmt.Fprintf(w, "    %s\n", cliui.DimStyle.Render(id))
	}
	return nil
}
