package commands

import (
	"fmt"

	"dagao/pkg/core"
	"dagao/pkg/exporter"

	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat <ref>",
	Short: "Write the content reachable from a reference to stdout",
	Long: `Concatenate every data node reachable from the reference, depth first, to stdout.
Binary content can be redirected: dagao cat <ref> > file.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := core.ParseReference(args[0])
		if err != nil {
			return err
		}
		if err := exporter.NewExporter(DG.Store).Cat(cmd.Context(), ref, cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("cat failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
