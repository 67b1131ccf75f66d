package commands

import (
	"fmt"
	"os"
	"time"

	"dagao/pkg/ingester"
	"dagao/pkg/meta"

	"github.com/spf13/cobra"
)

var addIgnore []string

var addCmd = &cobra.Command{
	Use:   "add <file|dir>",
	Short: "Ingest a file or directory into the DAG",
	Long: `Chunk a file into data nodes and link nodes, or recursively ingest a directory
(one link node per directory, children in lexical order). Prints the text references.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		target := args[0]

		info, err := os.Stat(target)
		if err != nil {
			return err
		}

		ing := ingester.NewIngester(DG.Store, ingester.WithIgnoreRules(addIgnore...))
		start := time.Now()

		// 1. 单个文件
		if !info.IsDir() {
			node, err := ing.IngestPath(ctx, target)
			if err != nil {
				return fmt.Errorf("failed to ingest %s: %w", target, err)
			}
			if err := recordNode(cmd, node); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s  %s\n", node.Ref, target)
			return nil
		}

		// 2. 目录：回调里记录每个节点，最后按根引用记录路径
		var (
			paths []meta.PathRecord
			files int
		)
		root, err := ing.IngestDir(ctx, target, func(e ingester.Entry) error {
			if err := recordNode(cmd, e.Node); err != nil {
				return err
			}
			paths = append(paths, meta.PathRecord{Path: e.Path, Ref: e.Ref, IsDir: e.IsDir, Size: e.Size})
			if !e.IsDir {
				files++
				fmt.Fprintf(out, "%s  %s\n", e.Ref, e.Path)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if DG.Catalog != nil {
			if err := DG.Catalog.RecordPaths(ctx, root.Ref, paths); err != nil {
				return err
			}
		}

		fmt.Fprintf(out, "%s  %s\n", root.Ref, target)
		fmt.Fprintf(cmd.ErrOrStderr(), "Added %d files (%d bytes) in %s\n", files, root.Size, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

// recordNode 把节点写入目录库，目录库未启用时什么都不做
func recordNode(cmd *cobra.Command, node ingester.Node) error {
	if DG.Catalog == nil {
		return nil
	}
	return DG.Catalog.RecordNode(cmd.Context(), meta.NodeRecord{
		Ref:      node.Ref,
		Size:     node.Size,
		Children: node.Children,
	})
}

func init() {
	addCmd.Flags().StringSliceVar(&addIgnore, "ignore", nil, "extra gitignore-style patterns to skip")
	rootCmd.AddCommand(addCmd)
}
