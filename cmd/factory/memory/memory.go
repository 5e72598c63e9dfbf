// Package memorycmder provides the memory command and its subcommands for
// the semantic memory engine.
package memorycmder

import (
	"github.com/spf13/cobra"
)

const memoryLongDesc string = `Work with the factory memory engine on a running server.

Memories are short preference, fact, decision, artifact or note items owned
by a user and optionally scoped to a project. Writes pass a content policy
that blocks secret-shaped text.

Subcommands:
  factory memory remember <text>   Store a memory
  factory memory recall <query>    Find the closest memories
  factory memory forget <id>       Soft delete a memory
  factory memory reflect           Summarise recent memories
  factory memory reconcile         Remove vectors of forgotten memories`

const memoryShortDesc string = "Work with the memory engine"

func NewMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: memoryShortDesc,
		Long:  memoryLongDesc,
	}

	cmd.AddCommand(newRememberCmd())
	cmd.AddCommand(newRecallCmd())
	cmd.AddCommand(newForgetCmd())
	cmd.AddCommand(newReflectCmd())
	cmd.AddCommand(newReconcileCmd())

	return cmd
}
