package commands

import (
	"fmt"

	"dagao/pkg/ingester"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put",
	Short: "Store stdin as a single data node",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ins, err := DG.Store.OpenDataNodeInserter(ctx)
		if err != nil {
			return err
		}
		n, err := ins.ReadFrom(cmd.InOrStdin())
		if err != nil {
			ins.Abort()
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		ref, err := ins.Commit(ctx)
		if err != nil {
			return err
		}
		if err := recordNode(cmd, ingester.Node{Ref: ref, Size: n}); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ref)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
