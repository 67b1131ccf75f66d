package commands

import (
	"dagao/pkg/core"
	"dagao/pkg/exporter"

	"github.com/spf13/cobra"
)

var lsTree bool

var lsCmd = &cobra.Command{
	Use:   "ls <ref>",
	Short: "List the children of a link node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := core.ParseReference(args[0])
		if err != nil {
			return err
		}
		exp := exporter.NewExporter(DG.Store)
		if lsTree {
			return exp.Tree(cmd.Context(), ref, cmd.OutOrStdout())
		}
		return exp.List(cmd.Context(), ref, cmd.OutOrStdout())
	},
}

func init() {
	lsCmd.Flags().BoolVarP(&lsTree, "tree", "t", false, "print the whole DAG below the reference")
	rootCmd.AddCommand(lsCmd)
}
