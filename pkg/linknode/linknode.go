// Package linknode 是链接节点的编解码器
//
// 磁盘格式：8 字节 ASCII 魔数 "dagao 0\n"，后面紧跟零个或多个定长二进制引用，
// 没有计数字段，序列在某个记录边界处的干净 EOF 结束。
package linknode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"dagao/pkg/core"
	"dagao/pkg/iox"
	"dagao/pkg/storage"
)

// Header 是链接节点的格式标识 (同时是版本号)
const Header = "dagao 0\n"

// HeaderSize 是 Header 的字节长度
const HeaderSize = len(Header)

// ErrHeaderUnrecognized 满足 errors.Is(err, core.ErrInvalidData)
var ErrHeaderUnrecognized = fmt.Errorf("%w: header unrecognized", core.ErrInvalidData)

// -----------------------------------------------------------------------------
// Inserter: Fresh -> HeaderWritten -> (Committed | Aborted)
// -----------------------------------------------------------------------------

type Inserter struct {
	ins    storage.Inserter
	closed bool
}

// Wrap 立即把头部以单次 Write 写入 Blob Store
// 短写不做重试：返回 core.ErrWriteZero。
func Wrap(ins storage.Inserter) (*Inserter, error) {
	n, err := ins.Write([]byte(Header))
	if err != nil {
		return nil, fmt.Errorf("failed to write link node header: %w", err)
	}
	if n != HeaderSize {
		return nil, fmt.Errorf("%w: could not write header in single write (%d of %d bytes): %w",
			core.ErrWriteZero, n, HeaderSize, io.ErrShortWrite)
	}
	return &Inserter{ins: ins}, nil
}

// Write 写入已编码的引用字节
// 调用方负责只写入完整的 ReferenceSize 记录，通常应使用 WriteReference。
func (i *Inserter) Write(p []byte) (int, error) {
	if i.closed {
		return 0, core.ErrClosed
	}
	return i.ins.Write(p)
}

// WriteReference 追加一个子节点引用
func (i *Inserter) WriteReference(ref core.Reference) error {
	buf := ref.Bytes()
	n, err := i.Write(buf[:])
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return nil
}

// Commit 提交内容，返回 Link 类型的引用
func (i *Inserter) Commit(ctx context.Context) (core.Reference, error) {
	if i.closed {
		return core.Reference{}, core.ErrClosed
	}
	i.closed = true
	h, err := i.ins.Commit(ctx)
	if err != nil {
		return core.Reference{}, err
	}
	return core.NewReference(core.RefLink, h), nil
}

func (i *Inserter) Abort() error {
	if i.closed {
		return nil
	}
	i.closed = true
	return i.ins.Abort()
}

// -----------------------------------------------------------------------------
// Reader: HeaderValidated -> (Next)* -> Exhausted
// -----------------------------------------------------------------------------

// Reader 按顺序逐个产出子节点引用，不会把整个列表读进内存
// 遇到第一个错误后不应再继续使用。
type Reader struct {
	r    io.Reader
	c    io.Closer
	done bool
}

// NewReader 读取并严格校验头部，任何不匹配都返回 ErrHeaderUnrecognized
// 头部被截断时，错误同时包装 io.ErrUnexpectedEOF。
func NewReader(rc io.ReadCloser) (*Reader, error) {
	var buf [HeaderSize]byte
	full, err := iox.ReadFull(rc, buf[:])
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: %w", ErrHeaderUnrecognized, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read link node header: %w", err)
	}
	if !full || string(buf[:]) != Header {
		return nil, ErrHeaderUnrecognized
	}
	return &Reader{r: rc, c: rc}, nil
}

// Next 返回下一个子节点引用；ok == false 表示已经没有更多子节点
func (r *Reader) Next() (ref core.Reference, ok bool, err error) {
	if r.done {
		return core.Reference{}, false, nil
	}
	ref, ok, err = core.ReadReference(r.r)
	if err != nil || !ok {
		r.done = true
	}
	return ref, ok, err
}

// All 以迭代器形式遍历剩余的子节点，出错时产出错误并停止
func (r *Reader) All() iter.Seq2[core.Reference, error] {
	return func(yield func(core.Reference, error) bool) {
		for {
			ref, ok, err := r.Next()
			if err != nil {
				yield(core.Reference{}, err)
				return
			}
			if !ok {
				return
			}
			if !yield(ref, nil) {
				return
			}
		}
	}
}

// Collect 读出剩余全部子节点，适合已知规模较小的节点
func (r *Reader) Collect() ([]core.Reference, error) {
	var refs []core.Reference
	for ref, err := range r.All() {
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (r *Reader) Close() error {
	if r.c == nil {
		return nil
	}
	err := r.c.Close()
	r.c = nil
	return err
}
