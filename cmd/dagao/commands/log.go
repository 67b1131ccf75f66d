package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"dagao/pkg/core"
	"dagao/pkg/types"

	"github.com/spf13/cobra"
)

var (
	logLimit int
	logType  string
	logPath  string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show nodes recorded in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if DG.Catalog == nil {
			return errors.New("catalog is disabled (catalog.driver = none)")
		}
		ctx := cmd.Context()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)

		// 按路径查询：列出该路径在每次导入中的记录
		if logPath != "" {
			entries, err := DG.Catalog.FindByPath(ctx, types.RepoPath(logPath))
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "TIME\tREFERENCE\tSIZE\tROOT\n")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.CreatedAt.Format(time.RFC3339), e.Ref, e.Size, e.RootRef)
			}
			return tw.Flush()
		}

		var filter *core.RefType
		switch logType {
		case "":
		case "data":
			t := core.RefData
			filter = &t
		case "link":
			t := core.RefLink
			filter = &t
		default:
			return fmt.Errorf("unknown node type %q (want data or link)", logType)
		}

		nodes, err := DG.Catalog.ListNodes(ctx, filter, logLimit)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "TIME\tTYPE\tREFERENCE\tSIZE\tCHILDREN\n")
		for _, n := range nodes {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
				n.CreatedAt.Format(time.RFC3339), core.RefType(n.RefType), n.Ref, n.Size, n.ChildCount)
		}
		return tw.Flush()
	},
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "maximum number of nodes (0 = all)")
	logCmd.Flags().StringVar(&logType, "type", "", "only show data or link nodes")
	logCmd.Flags().StringVar(&logPath, "path", "", "show the history of one ingested path")
	rootCmd.AddCommand(logCmd)
}
