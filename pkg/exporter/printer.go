package exporter

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"dagao/pkg/core"
)

// List 打印节点的直接内容
// Link Node 列出每个子引用 (模拟 git ls-tree 的对齐输出)，Data Node 打印大小。
func (e *Exporter) List(ctx context.Context, ref core.Reference, w io.Writer) error {
	if ref.Type == core.RefData {
		n, err := e.dataSize(ctx, ref)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Type: Data\nSize: %s\n", fmtSize(n))
		return nil
	}

	r, err := e.store.OpenLinkNodeReader(ctx, ref)
	if err != nil {
		return err
	}
	defer r.Close()

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "INDEX\tTYPE\tREFERENCE\n")
	i := 0
	for child, err := range r.All() {
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i, child.Type, child)
		i++
	}
	return tw.Flush()
}

// Tree 以缩进的形式打印整个 DAG
func (e *Exporter) Tree(ctx context.Context, ref core.Reference, w io.Writer) error {
	return e.Walk(ctx, ref, func(ref core.Reference, depth int) error {
		for range depth {
			io.WriteString(w, "  ")
		}
		_, err := fmt.Fprintf(w, "%s %s\n", ref.Type, ref)
		return err
	})
}

func fmtSize(s int64) string {
	if s < 1024 {
		return fmt.Sprintf("%dB", s)
	} else if s < 1024*1024 {
		return fmt.Sprintf("%.1fKB", float64(s)/1024)
	}
	return fmt.Sprintf("%.2fMB", float64(s)/1024/1024)
}
