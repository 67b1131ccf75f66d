package ingester

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"dagao/pkg/chunker"
	"dagao/pkg/core"
	"dagao/pkg/dagstore"
	"dagao/pkg/ignore"
	"dagao/pkg/treebuilder"
	"dagao/pkg/types"

	"golang.org/x/sync/errgroup"
)

// Node 描述一次导入产生的根节点
type Node struct {
	Ref  core.Reference
	Size int64 // 原始内容字节数；目录为所有文件之和

	// Children 是根节点为 Link Node 时的直接子引用，Data Node 为空
	Children []core.Reference
}

// Entry 是 IngestDir 回调收到的单个条目
type Entry struct {
	Path  types.RepoPath // 相对导入根目录的 slash 路径，根目录为 "."
	IsDir bool
	Node
}

type Ingester struct {
	store       *dagstore.Store
	chunkOpts   chunker.Options
	concurrency int
	ignoreRules []string
}

type Option func(*Ingester)

func WithChunkerOptions(opts chunker.Options) Option {
	return func(i *Ingester) { i.chunkOpts = opts }
}

// WithConcurrency 限制同时写入的叶子数，也就限制了驻留内存的块数
func WithConcurrency(n int) Option {
	return func(i *Ingester) {
		if n > 0 {
			i.concurrency = n
		}
	}
}

// WithIgnoreRules 追加 gitignore 风格的规则，仅对 IngestDir 生效
func WithIgnoreRules(rules ...string) Option {
	return func(i *Ingester) { i.ignoreRules = append(i.ignoreRules, rules...) }
}

func NewIngester(store *dagstore.Store, opts ...Option) *Ingester {
	ing := &Ingester{
		store:       store,
		chunkOpts:   chunker.DefaultOptions(),
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// leaf 的地址在写入期间保持不变，goroutine 直接写回自己的槽位
type leaf struct {
	ref core.Reference
}

// IngestFile 流式切分 reader，并发写入 Data Node，最后写一个按顺序引用它们的 Link Node
// 只有一个块 (或空输入) 时直接返回那个 Data Node，不再包一层。
func (ing *Ingester) IngestFile(ctx context.Context, reader io.Reader) (Node, error) {
	c, err := chunker.New(reader, ing.chunkOpts)
	if err != nil {
		return Node{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.concurrency)

	var (
		leaves []*leaf
		size   int64
	)

	// 1. 切分 + 并发写叶子
	// g.Go 在达到并发上限时阻塞，读取速度被写入速度反压。
	for {
		chunk, err := c.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			g.Wait()
			return Node{}, err
		}
		if gctx.Err() != nil {
			break // 写入失败或 ctx 被取消，下面统一返回错误
		}

		l := &leaf{}
		leaves = append(leaves, l)
		size += int64(len(chunk))
		g.Go(func() error {
			ref, err := ing.putData(gctx, chunk)
			if err != nil {
				return fmt.Errorf("failed to store chunk: %w", err)
			}
			l.ref = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Node{}, err
	}
	// 没有叶子写入失败时 Wait 返回 nil，但切分可能已被取消打断，叶子不完整
	if err := ctx.Err(); err != nil {
		return Node{}, err
	}

	// 2. 空输入与单块：直接返回 Data Node
	switch len(leaves) {
	case 0:
		ref, err := ing.putData(ctx, nil)
		if err != nil {
			return Node{}, fmt.Errorf("failed to store empty data node: %w", err)
		}
		return Node{Ref: ref}, nil
	case 1:
		return Node{Ref: leaves[0].ref, Size: size}, nil
	}

	// 3. 多块：写 Link Node
	children := make([]core.Reference, len(leaves))
	for i, l := range leaves {
		children[i] = l.ref
	}
	ref, err := ing.putLink(ctx, children)
	if err != nil {
		return Node{}, fmt.Errorf("failed to store link node: %w", err)
	}
	return Node{Ref: ref, Size: size, Children: children}, nil
}

func (ing *Ingester) putData(ctx context.Context, data []byte) (core.Reference, error) {
	ins, err := ing.store.OpenDataNodeInserter(ctx)
	if err != nil {
		return core.Reference{}, err
	}
	if _, err := ins.Write(data); err != nil {
		ins.Abort()
		return core.Reference{}, err
	}
	return ins.Commit(ctx)
}

func (ing *Ingester) putLink(ctx context.Context, children []core.Reference) (core.Reference, error) {
	ins, err := ing.store.OpenLinkNodeInserter(ctx)
	if err != nil {
		return core.Reference{}, err
	}
	for _, ref := range children {
		if err := ins.WriteReference(ref); err != nil {
			ins.Abort()
			return core.Reference{}, err
		}
	}
	return ins.Commit(ctx)
}

// IngestPath 打开本地文件并导入
func (ing *Ingester) IngestPath(ctx context.Context, path string) (Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return Node{}, err
	}
	defer f.Close()
	return ing.IngestFile(ctx, f)
}

// IngestDir 递归导入目录
// 每个文件经过 IngestFile，每个目录成为一个 Link Node，子项按名字字典序排列。
// 匹配忽略规则的路径被跳过，符号链接等非普通文件也被跳过。
// fn 对每个文件和目录各调用一次，目录在其所有子项之后，根目录 (Path ".") 最后。
func (ing *Ingester) IngestDir(ctx context.Context, root string, fn func(Entry) error) (Node, error) {
	matcher, err := ignore.NewMatcher(root, ing.ignoreRules...)
	if err != nil {
		return Node{}, fmt.Errorf("failed to load ignore rules: %w", err)
	}

	builder := treebuilder.New(ing.store)
	sizes := make(map[types.RepoPath]int64)

	// 1. 遍历并导入所有文件
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		repoPath := types.RepoPath(filepath.ToSlash(rel))

		if matcher.Matches(repoPath.String(), d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return builder.AddDir(repoPath)
		}
		if !d.Type().IsRegular() {
			return nil
		}

		node, err := ing.IngestPath(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", repoPath, err)
		}
		if err := builder.AddFile(repoPath, node.Ref); err != nil {
			return err
		}
		for dir := repoPath; dir != "."; {
			dir = types.RepoPath(filepath.ToSlash(filepath.Dir(string(dir))))
			sizes[dir] += node.Size
		}
		if fn != nil {
			return fn(Entry{Path: repoPath, Node: node})
		}
		return nil
	})
	if err != nil {
		return Node{}, err
	}

	// 2. 自底向上写目录
	var rootNode Node
	_, err = builder.Build(ctx, func(dir types.RepoPath, ref core.Reference, children []core.Reference) error {
		node := Node{Ref: ref, Size: sizes[dir], Children: children}
		if dir == "." {
			rootNode = node
		}
		if fn != nil {
			return fn(Entry{Path: dir, IsDir: true, Node: node})
		}
		return nil
	})
	if err != nil {
		return Node{}, err
	}
	return rootNode, nil
}
