package commands

import (
	"fmt"

	"dagao/pkg/core"

	"github.com/spf13/cobra"
)

var hasCmd = &cobra.Command{
	Use:   "has <ref>",
	Short: "Report whether the store holds the referenced node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := core.ParseReference(args[0])
		if err != nil {
			return err
		}
		ok, err := DG.Store.HasRef(cmd.Context(), ref)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hasCmd)
}
