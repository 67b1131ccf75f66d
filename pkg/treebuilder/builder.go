package treebuilder

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"dagao/pkg/core"
	"dagao/pkg/dagstore"
	"dagao/pkg/types"
)

// Builder 负责把 "路径 -> 引用" 的平铺集合转换为 Merkle DAG
// 每个目录对应一个 Link Node，子项按名字的字典序排列，
// 文件子项直接使用文件的根引用，子目录子项使用子目录的 Link Node 引用。
type Builder struct {
	store *dagstore.Store
	root  *node
}

// VisitFunc 在每个目录的 Link Node 落盘后被调用 (子目录先于父目录)
// 根目录的 path 为 "."
type VisitFunc func(dir types.RepoPath, ref core.Reference, children []core.Reference) error

func New(store *dagstore.Store) *Builder {
	return &Builder{store: store, root: newDirNode()}
}

// AddFile 把一个文件加入内存树，缺失的父目录会被自动创建
// p 是 slash 分隔的相对路径，例如 "a/b/c.txt"
func (b *Builder) AddFile(p types.RepoPath, ref core.Reference) error {
	parts, err := split(p)
	if err != nil {
		return err
	}
	dir, err := b.root.mkdirAll(parts[:len(parts)-1])
	if err != nil {
		return fmt.Errorf("add %s: %w", p, err)
	}
	name := parts[len(parts)-1]
	if existing, ok := dir.children[name]; ok && existing.isDir {
		return fmt.Errorf("add %s: path is a directory", p)
	}
	dir.children[name] = &node{ref: ref}
	return nil
}

// AddDir 显式加入一个 (可能为空的) 目录
func (b *Builder) AddDir(p types.RepoPath) error {
	if p == "." || p == "" {
		return nil
	}
	parts, err := split(p)
	if err != nil {
		return err
	}
	if _, err := b.root.mkdirAll(parts); err != nil {
		return fmt.Errorf("add dir %s: %w", p, err)
	}
	return nil
}

// Build 自底向上写入所有目录的 Link Node，返回根目录的引用
func (b *Builder) Build(ctx context.Context, visit VisitFunc) (core.Reference, error) {
	return b.writeDir(ctx, ".", b.root, visit)
}

// -----------------------------------------------------------------------------
// 内部辅助结构：内存树节点
// -----------------------------------------------------------------------------

type node struct {
	isDir    bool
	children map[string]*node // 仅目录有效
	ref      core.Reference   // 仅文件有效
}

func newDirNode() *node {
	return &node{isDir: true, children: make(map[string]*node)}
}

func (n *node) mkdirAll(parts []string) (*node, error) {
	current := n
	for _, part := range parts {
		child, ok := current.children[part]
		if !ok {
			child = newDirNode()
			current.children[part] = child
		}
		if !child.isDir {
			return nil, fmt.Errorf("%q is a file", part)
		}
		current = child
	}
	return current, nil
}

func split(p types.RepoPath) ([]string, error) {
	s := string(p)
	if s == "" || path.IsAbs(s) || path.Clean(s) != s || s == "." || strings.HasPrefix(s, "../") || s == ".." {
		return nil, fmt.Errorf("invalid repo path %q", s)
	}
	return strings.Split(s, "/"), nil
}

// writeDir 递归地把目录写成 Link Node (核心算法)
func (b *Builder) writeDir(ctx context.Context, dirPath string, n *node, visit VisitFunc) (core.Reference, error) {
	// 为了保证 Merkle DAG 的确定性，必须按名字排序处理
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	slices.Sort(names)

	children := make([]core.Reference, 0, len(names))
	for _, name := range names {
		child := n.children[name]
		if !child.isDir {
			children = append(children, child.ref)
			continue
		}
		ref, err := b.writeDir(ctx, path.Join(dirPath, name), child, visit)
		if err != nil {
			return core.Reference{}, err
		}
		children = append(children, ref)
	}

	ins, err := b.store.OpenLinkNodeInserter(ctx)
	if err != nil {
		return core.Reference{}, fmt.Errorf("open link node for %s: %w", dirPath, err)
	}
	for _, ref := range children {
		if err := ins.WriteReference(ref); err != nil {
			ins.Abort()
			return core.Reference{}, fmt.Errorf("write link node for %s: %w", dirPath, err)
		}
	}
	ref, err := ins.Commit(ctx)
	if err != nil {
		return core.Reference{}, fmt.Errorf("commit link node for %s: %w", dirPath, err)
	}

	if visit != nil {
		if err := visit(types.RepoPath(dirPath), ref, children); err != nil {
			return core.Reference{}, err
		}
	}
	return ref, nil
}
