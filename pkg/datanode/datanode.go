// Package datanode 是数据节点的编解码器
// 数据节点就是调用方写入的原始字节：没有头部，没有额外的分帧。
package datanode

import (
	"context"
	"io"

	"dagao/pkg/core"
	"dagao/pkg/storage"
)

// Inserter 把写入原样转发给 Blob Store，Commit 时打上 Data 标签
type Inserter struct {
	ins    storage.Inserter
	closed bool
}

// Wrap 总是成功
func Wrap(ins storage.Inserter) *Inserter {
	return &Inserter{ins: ins}
}

func (i *Inserter) Write(p []byte) (int, error) {
	if i.closed {
		return 0, core.ErrClosed
	}
	return i.ins.Write(p)
}

// ReadFrom 让 io.Copy 直接把数据流灌进 Blob Store
func (i *Inserter) ReadFrom(r io.Reader) (int64, error) {
	if i.closed {
		return 0, core.ErrClosed
	}
	return io.Copy(i.ins, r)
}

// Commit 提交内容，返回 Data 类型的引用。之后 Inserter 不可再用。
func (i *Inserter) Commit(ctx context.Context) (core.Reference, error) {
	if i.closed {
		return core.Reference{}, core.ErrClosed
	}
	i.closed = true
	h, err := i.ins.Commit(ctx)
	if err != nil {
		return core.Reference{}, err
	}
	return core.NewReference(core.RefData, h), nil
}

// Abort 丢弃未提交的内容
func (i *Inserter) Abort() error {
	if i.closed {
		return nil
	}
	i.closed = true
	return i.ins.Abort()
}

// Reader 是 Blob Store 读取流的透传适配器
type Reader struct {
	rc io.ReadCloser
}

func NewReader(rc io.ReadCloser) *Reader {
	return &Reader{rc: rc}
}

func (r *Reader) Read(p []byte) (int, error) { return r.rc.Read(p) }
func (r *Reader) Close() error               { return r.rc.Close() }
