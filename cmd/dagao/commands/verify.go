package commands

import (
	"fmt"

	"dagao/pkg/core"
	"dagao/pkg/exporter"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <ref>",
	Short: "Check that every node reachable from a reference exists and decodes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := core.ParseReference(args[0])
		if err != nil {
			return err
		}
		st, err := exporter.NewExporter(DG.Store).Verify(cmd.Context(), ref)
		if err != nil {
			return fmt.Errorf("verify failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "OK: %d link nodes, %d data nodes, %d bytes, depth %d\n",
			st.LinkNodes, st.DataNodes, st.Bytes, st.MaxDepth)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
