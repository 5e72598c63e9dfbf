package memorycmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/factory/cmd/factory/remote"
	"github.com/papercomputeco/factory/pkg/cliui"
)

func newForgetCmd() *cobra.Command {
	var apiTarget string

	cmd := &cobra.Command{
		Use:   "forget <memory-id>",
		Short: "Soft delete a memory",
		Long: `Soft delete a memory. It stops appearing in recall immediately; its
vector is removed by the next reconcile.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := remote.Client(cmd)
			if err != nil {
				return err
			}
			if err := cl.Forget(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s Forgot %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(args[0]))
			return nil
		},
	}

	remote.AddTargetFlag(cmd, &apiTarget)

	return cmd
}
