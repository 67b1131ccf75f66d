package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"

	"dagao/pkg/core"
	"dagao/pkg/dagstore"
)

// WalkFunc 可以返回的控制信号，不会作为错误传给 Walk 的调用方
var (
	ErrStop = errors.New("stop walk")    // 结束整个遍历
	ErrSkip = errors.New("skip subtree") // 不展开当前 Link Node 的子节点
)

// WalkFunc 在进入每个节点时被调用，depth 从 0 开始
type WalkFunc func(ref core.Reference, depth int) error

type Exporter struct {
	store *dagstore.Store
}

func NewExporter(store *dagstore.Store) *Exporter {
	return &Exporter{store: store}
}

// Walk 先序遍历从 ref 可达的所有节点
// Link Node 的子节点以流的方式逐个读取，不会一次性物化整个列表。
func (e *Exporter) Walk(ctx context.Context, ref core.Reference, fn WalkFunc) error {
	err := e.walk(ctx, ref, 0, fn)
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}

func (e *Exporter) walk(ctx context.Context, ref core.Reference, depth int, fn WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ref, depth); err != nil {
		if errors.Is(err, ErrSkip) {
			return nil
		}
		return err
	}
	if ref.Type != core.RefLink {
		return nil
	}

	r, err := e.store.OpenLinkNodeReader(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to open link node %s: %w", ref, err)
	}
	defer r.Close()

	for child, err := range r.All() {
		if err != nil {
			return fmt.Errorf("failed to read link node %s: %w", ref, err)
		}
		if err := e.walk(ctx, child, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Cat 深度优先拼接所有 Data Node 的内容，写入 w
func (e *Exporter) Cat(ctx context.Context, ref core.Reference, w io.Writer) error {
	return e.Walk(ctx, ref, func(ref core.Reference, _ int) error {
		if ref.Type != core.RefData {
			return nil
		}
		return e.copyData(ctx, ref, w)
	})
}

func (e *Exporter) copyData(ctx context.Context, ref core.Reference, w io.Writer) error {
	r, err := e.store.OpenDataNodeReader(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to open data node %s: %w", ref, err)
	}
	// 函数返回时立即关闭，不会堆积句柄
	defer r.Close()

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("failed to copy data node %s: %w", ref, err)
	}
	return nil
}

// Stats 是 Verify 的统计结果
type Stats struct {
	DataNodes int
	LinkNodes int
	Bytes     int64 // 所有 Data Node 的字节数 (按出现次数累计)
	MaxDepth  int
}

// Verify 遍历整个 DAG，确认每个节点都存在、每个 Link Node 都能解码，并读完每个 Data Node
func (e *Exporter) Verify(ctx context.Context, ref core.Reference) (Stats, error) {
	var st Stats
	err := e.Walk(ctx, ref, func(ref core.Reference, depth int) error {
		st.MaxDepth = max(st.MaxDepth, depth)
		if ref.Type == core.RefLink {
			st.LinkNodes++
			return nil
		}
		st.DataNodes++
		n, err := e.dataSize(ctx, ref)
		st.Bytes += n
		return err
	})
	return st, err
}

func (e *Exporter) dataSize(ctx context.Context, ref core.Reference) (int64, error) {
	r, err := e.store.OpenDataNodeReader(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("failed to open data node %s: %w", ref, err)
	}
	defer r.Close()
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return n, fmt.Errorf("failed to read data node %s: %w", ref, err)
	}
	return n, nil
}
