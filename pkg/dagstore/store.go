// Package dagstore 把索引目录和 Blob Store 绑定在一起
// 对外提供带类型检查的节点读写：每次打开 Reader 之前都会核对引用类型。
package dagstore

import (
	"context"
	"fmt"
	"path/filepath"

	"dagao/pkg/core"
	"dagao/pkg/datanode"
	"dagao/pkg/iox"
	"dagao/pkg/linknode"
	"dagao/pkg/storage"
	"dagao/pkg/storage/disk"
)

// 标准目录布局
//
//	basedir/index/  保留给索引使用，目前只做存在性检查
//	basedir/store/  Blob Store 自己的目录，对本层不透明
const (
	IndexDirName = "index"
	StoreDirName = "store"
)

// Store 持有索引目录路径和 Blob Store 句柄
// 它不拥有 Blob 本身，也不加锁：并发安全由内容寻址的 Blob Store 保证。
type Store struct {
	indexDir string
	blobs    storage.BlobStore
}

// CreateStd 在 basedir 下按标准布局创建 (或复用) 仓库
func CreateStd(basedir string, opts disk.Options) (*Store, error) {
	if err := iox.EnsureDir(basedir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base dir: %w", err)
	}
	blobs, err := disk.Create(filepath.Join(basedir, StoreDirName), opts)
	if err != nil {
		return nil, err
	}
	return Create(filepath.Join(basedir, IndexDirName), blobs)
}

// Create 幂等地创建索引目录，然后 Open
func Create(indexDir string, blobs storage.BlobStore) (*Store, error) {
	if err := iox.EnsureDir(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index dir: %w", err)
	}
	return Open(indexDir, blobs)
}

// OpenStd 打开标准布局的仓库，不会自动创建任何目录
func OpenStd(basedir string) (*Store, error) {
	blobs, err := disk.Open(filepath.Join(basedir, StoreDirName))
	if err != nil {
		return nil, err
	}
	return Open(filepath.Join(basedir, IndexDirName), blobs)
}

// Open 要求 indexDir 已经存在且可列举
func Open(indexDir string, blobs storage.BlobStore) (*Store, error) {
	if err := iox.ProbeDir(indexDir); err != nil {
		return nil, fmt.Errorf("failed to open index dir: %w", err)
	}
	return &Store{indexDir: indexDir, blobs: blobs}, nil
}

func (s *Store) IndexDir() string             { return s.indexDir }
func (s *Store) BlobStore() storage.BlobStore { return s.blobs }

// -----------------------------------------------------------------------------
// 数据节点
// -----------------------------------------------------------------------------

func (s *Store) OpenDataNodeInserter(ctx context.Context) (*datanode.Inserter, error) {
	ins, err := s.blobs.OpenInserter(ctx)
	if err != nil {
		return nil, err
	}
	return datanode.Wrap(ins), nil
}

// OpenDataNodeReader 要求引用类型为 Data，否则在读取任何字节之前返回 ErrInvalidInput
func (s *Store) OpenDataNodeReader(ctx context.Context, ref core.Reference) (*datanode.Reader, error) {
	if err := expect(ref, core.RefData); err != nil {
		return nil, err
	}
	rc, err := s.blobs.OpenReader(ctx, ref.Hash)
	if err != nil {
		return nil, err
	}
	return datanode.NewReader(rc), nil
}

// -----------------------------------------------------------------------------
// 链接节点
// -----------------------------------------------------------------------------

// OpenLinkNodeInserter 返回的 Inserter 已经写好了头部
func (s *Store) OpenLinkNodeInserter(ctx context.Context) (*linknode.Inserter, error) {
	ins, err := s.blobs.OpenInserter(ctx)
	if err != nil {
		return nil, err
	}
	lins, err := linknode.Wrap(ins)
	if err != nil {
		ins.Abort()
		return nil, err
	}
	return lins, nil
}

// OpenLinkNodeReader 要求引用类型为 Link，并立即校验头部
func (s *Store) OpenLinkNodeReader(ctx context.Context, ref core.Reference) (*linknode.Reader, error) {
	if err := expect(ref, core.RefLink); err != nil {
		return nil, err
	}
	rc, err := s.blobs.OpenReader(ctx, ref.Hash)
	if err != nil {
		return nil, err
	}
	r, err := linknode.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return r, nil
}

// HasRef 只检查底层内容是否存在，不关心引用类型
func (s *Store) HasRef(ctx context.Context, ref core.Reference) (bool, error) {
	return s.blobs.Has(ctx, ref.Hash)
}

func expect(ref core.Reference, want core.RefType) error {
	if ref.Type != want {
		return fmt.Errorf("%w: expected %s reference, found %s", core.ErrInvalidInput, want, ref.Type)
	}
	return nil
}
