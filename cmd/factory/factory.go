// Package factorycmder is the root factory command.
package factorycmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/factory/cmd/factory/auth"
	bootstrapcmder "github.com/papercomputeco/factory/cmd/factory/bootstrap"
	brainstormcmder "github.com/papercomputeco/factory/cmd/factory/brainstorm"
	configcmder "github.com/papercomputeco/factory/cmd/factory/config"
	downloadcmder "github.com/papercomputeco/factory/cmd/factory/download"
	initcmder "github.com/papercomputeco/factory/cmd/factory/init"
	memorycmder "github.com/papercomputeco/factory/cmd/factory/memory"
	promptscmder "github.com/papercomputeco/factory/cmd/factory/prompts"
	researchcmder "github.com/papercomputeco/factory/cmd/factory/research"
	servecmder "github.com/papercomputeco/factory/cmd/factory/serve"
	synthesizecmder "github.com/papercomputeco/factory/cmd/factory/synthesize"
	versioncmder "github.com/papercomputeco/factory/cmd/version"
)

const factoryLongDesc string = `Factory turns a one line idea into a repo pack.

Projects move through brainstorm, synthesize and bootstrap stages, each
calling one or more model providers, while a semantic memory engine keeps
preferences, facts and decisions across projects.

Run the server:
  factory serve

Drive a project against a running server:
  factory brainstorm "a tiny CI runner"
  factory synthesize <project-id>
  factory bootstrap <project-id>
  factory download <project-id>`

const factoryShortDesc string = "Factory - idea to repo pack"

func NewFactoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "factory",
		Short:        factoryShortDesc,
		Long:         factoryLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .factory/ config directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(brainstormcmder.NewBrainstormCmd())
	cmd.AddCommand(synthesizecmder.NewSynthesizeCmd())
	cmd.AddCommand(bootstrapcmder.NewBootstrapCmd())
	cmd.AddCommand(researchcmder.NewResearchCmd())
	cmd.AddCommand(downloadcmder.NewDownloadCmd())
	cmd.AddCommand(memorycmder.NewMemoryCmd())
	cmd.AddCommand(promptscmder.NewPromptsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
