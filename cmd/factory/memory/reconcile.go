package memorycmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/factory/cmd/factory/remote"
	"github.com/papercomputeco/factory/pkg/cliui"
)

type reconcileCommander struct {
	remote    remote.Options
	batchSize int
}

func newReconcileCmd() *cobra.Command {
	cmder := &reconcileCommander{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Remove vectors of forgotten memories",
		Long: `Remove the vectors and pointers of forgotten memories in batches until
none remain.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	remote.AddTargetFlag(cmd, &cmder.remote.APITarget)
	cmd.Flags().BoolVar(&cmder.remote.JSON, "json", false, "Print the raw JSON response")
	cmd.Flags().IntVar(&cmder.batchSize, "batch-size", 0, "Pointers per batch (default: memory.reconcile_batch)")

	return cmd
}

func (c *reconcileCommander) run(cmd *cobra.Command) error {
	cl, err := remote.Client(cmd)
	if err != nil {
		return err
	}

	res, err := cl.Reconcile(cmd.Context(), c.batchSize)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if c.remote.JSON {
		return remote.PrintJSON(w, res)
	}
	fmt.Fprintf(w, "  %s Removed %d of %d scanned %s\n",
		cliui.SuccessMark,
		res.Removed,
		res.Scanned,
		cliui.DimStyle.Render(fmt.Sprintf("(%d batches)", res.Batches)),
	)
	return nil
}
