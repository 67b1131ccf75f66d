package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"dagao/pkg/types"
)

var (
	// ErrNotFound 同时满足 errors.Is(err, fs.ErrNotExist)
	ErrNotFound = fmt.Errorf("object not found: %w", fs.ErrNotExist)

	// ErrInserterClosed 表示 Inserter 已经 Commit 或 Abort
	ErrInserterClosed = errors.New("blob inserter is closed")
)

// BlobStore 是内容寻址的字节存储
// 实现可以是本地磁盘、S3、远程 gRPC 服务，或带缓存的装饰器。
// 存储位置完全由内容 Hash 决定，所以相同内容的并发写入是幂等的。
type BlobStore interface {
	// OpenInserter 打开一个流式写入器
	OpenInserter(ctx context.Context) (Inserter, error)

	// OpenReader 根据 Hash 打开只读字节流，不存在时返回 ErrNotFound
	// 返回 io.ReadCloser 而不是 []byte，支持大对象的流式读取
	OpenReader(ctx context.Context, hash types.Hash) (io.ReadCloser, error)

	// Has 检查内容是否存在
	Has(ctx context.Context, hash types.Hash) (bool, error)
}

// Inserter 是一次性的流式写入器
// Write 可以被调用任意多次；Commit 计算内容 Hash 并原子地持久化；
// Commit 或 Abort 之后，再次使用返回 ErrInserterClosed。
type Inserter interface {
	io.Writer

	// Commit 落盘并返回内容 Hash。若内容已存在则直接复用 (幂等)。
	Commit(ctx context.Context) (types.Hash, error)

	// Abort 丢弃所有未提交的数据。对已关闭的 Inserter 调用是无害的。
	Abort() error
}
