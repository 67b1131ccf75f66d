package commands

import (
	"fmt"

	"dagao/pkg/core"
	"dagao/pkg/ingester"

	"github.com/spf13/cobra"
)

var mklinkNoCheck bool

var mklinkCmd = &cobra.Command{
	Use:   "mklink <ref>...",
	Short: "Create a link node from text references",
	Long:  `Create a link node whose children are the given references, in argument order. Zero arguments create an empty link node.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// 1. 解析并检查所有子引用
		children := make([]core.Reference, len(args))
		for i, arg := range args {
			ref, err := core.ParseReference(arg)
			if err != nil {
				return fmt.Errorf("argument %d: %w", i+1, err)
			}
			if !mklinkNoCheck {
				ok, err := DG.Store.HasRef(ctx, ref)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("argument %d: %s does not exist in the store", i+1, ref)
				}
			}
			children[i] = ref
		}

		// 2. 写入 Link Node
		ins, err := DG.Store.OpenLinkNodeInserter(ctx)
		if err != nil {
			return err
		}
		for _, ref := range children {
			if err := ins.WriteReference(ref); err != nil {
				ins.Abort()
				return err
			}
		}
		ref, err := ins.Commit(ctx)
		if err != nil {
			return err
		}
		if err := recordNode(cmd, ingester.Node{Ref: ref, Children: children}); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ref)
		return nil
	},
}

func init() {
	mklinkCmd.Flags().BoolVar(&mklinkNoCheck, "no-check", false, "do not verify that children exist")
	rootCmd.AddCommand(mklinkCmd)
}
