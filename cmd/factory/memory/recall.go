package memorycmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/factory/api"
	"github.com/papercomputeco/factory/cmd/factory/remote"
	"github.com/papercomputeco/factory/pkg/cliui"
)

type recallCommander struct {
	remote    remote.Options
	projectID string
	k         int
}

const recallLongDesc string = `Find the memories closest to a query.

Results are ranked by similarity blended with salience. Project scoped
recalls include the owner's global memories.

Examples:
  factory memory recall "language preferences"
  factory memory recall "release process" --project <project-id> -n 3`

func newRecallCmd() *cobra.Command {
	cmder := &recallCommander{}

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Find the closest memories",
		Long:  recallLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	remote.AddFlags(cmd, &cmder.remote)
	cmd.Flags().StringVar(&cmder.projectID, "project", "", "Limit recall to a project and global memories")
	cmd.Flags().IntVarP(&cmder.k, "top", "n", 0, "Number of results (default: memory.recall_k)")

	return cmd
}

func (c *recallCommander) run(cmd *cobra.Command, query string) error {
	cl, err := remote.Client(cmd)
	if err != nil {
		return err
	}

	items, err := cl.Recall(cmd.Context(), api.RecallRequest{
		UserID:    c.remote.User,
		ProjectID: c.projectID,
		Query:     query,
		K:         c.k,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if c.remote.JSON {
		return remote.PrintJSON(w, items)
	}

	if len(items) == 0 {
		fmt.Fprintln(w, "No memories found.")
		return nil
	}

	fmt.Fprintf(w, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Memories for:"),
		cliui.KeyStyle.Render(fmt.Sprintf("%q", query)),
	)
	for i, it := range items {
		fmt.Fprintf(w, "  %s  %s  %s  %s\n",
			cliui.NameStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.DimStyle.Render(fmt.Sprintf("score: %.4f", it.Score)),
			cliui.KeyStyle.Render(string(it.Kind)),
			cliui.DimStyle.Render(it.ID),
		)
		fmt.Fprintf(w, "  %s\n", cliui.ValueStyle.Render(cliui.Truncate(strings.Join(strings.Fields(it.Text), " "), 100)))
		if len(it.Tags) > 0 {
			fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("tags: "+strings.Join(it.Tags, ", ")))
		}
		fmt.Fprintln(w)
	}
	return nil
}
