// Package downloadcmder provides the download command.
package downloadcmder

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/factory/cmd/factory/remote"
	"github.com/papercomputeco/factory/pkg/archive"
	"github.com/papercomputeco/factory/pkg/cliui"
)

type downloadCommander struct {
	apiTarget string
	output    string
	show      bool
}

const downloadLongDesc string = `Download a project's repo pack as a tar.gz archive.

Writes repo-pack-<project-id>.tar.gz to the current directory unless -o is
given. Use "-o -" to write the archive to stdout. With --show, markdown files
in the pack are rendered to the terminal as well.

Examples:
  factory download <project-id>
  factory download <project-id> -o pack.tar.gz
  factory download <project-id> --show`

const downloadShortDesc string = "Download a repo pack"

func NewDownloadCmd() *cobra.Command {
	cmder := &downloadCommander{}

	cmd := &cobra.Command{
		Use:   "download <project-id>",
		Short: downloadShortDesc,
		Long:  downloadLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	remote.AddTargetFlag(cmd, &cmder.apiTarget)
	cmd.Flags().StringVarP(&cmder.output, "output", "o", "", "Output file (default: repo-pack-<project-id>.tar.gz)")
	cmd.Flags().BoolVar(&cmder.show, "show", false, "Render markdown files from the pack")

	return cmd
}

func (c *downloadCommander) run(cmd *cobra.Command, projectID string) error {
	cl, err := remote.Client(cmd)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := cl.Download(cmd.Context(), projectID, &buf); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if c.output == "-" {
		_, err := w.Write(buf.Bytes())
		return err
	}

	target := c.output
	if target == "" {
		target = fmt.Sprintf("repo-pack-%s.tar.gz", projectID)
	}
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	fmt.Fprintf(w, "\n  %s Wrote %s %s\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(target),
		cliui.DimStyle.Render(fmt.Sprintf("(%d bytes)", buf.Len())),
	)

	if c.show {
		return show(cmd, buf.Bytes())
	}
	return nil
}

// show renders every markdown file in the archive.
func show(cmd *cobra.Command, data []byte) error {
	files, err := archive.ReadTarGz(bytes.NewReader(data))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, f := range files {
		if !strings.EqualFold(path.Ext(f.Path), ".md") {
			continue
		}
		fmt.Fprintf(w, "  %s\n", cliui.HeaderStyle.Render(f.Path))

		rendered, err := cliui.RenderMarkdown(string(f.Data))
		if err != nil {
			rendered = string(f.Data)
		}
		fmt.Fprintln(w, rendered)
	}
	return nil
}
