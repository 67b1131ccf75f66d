package disk

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"dagao/pkg/iox"
	"dagao/pkg/storage"
	"dagao/pkg/types"

	"github.com/klauspost/compress/zstd"
)

const tmpDirName = "tmp"

// Options 在 Create 时固定存储目录的格式
type Options struct {
	Hash        storage.HashAlgo
	Compression Compression
}

// Adapter 实现了 storage.BlobStore 接口，数据存放在本地目录
//
//	root/FORMAT        存储格式描述 (CBOR)
//	root/tmp/          未提交的写入缓冲
//	root/ab/cdef...    已提交的 Blob (前 2 个 Hex 字符分片)
type Adapter struct {
	rootPath string
	format   Format
}

var _ storage.BlobStore = (*Adapter)(nil)

// Create 幂等地创建存储目录并打开它
// 目录已存在时沿用已有的 FORMAT；若显式传入的选项与之冲突则报错。
func Create(root string, opts Options) (*Adapter, error) {
	if err := iox.EnsureDir(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store dir: %w", err)
	}
	if err := iox.EnsureDir(filepath.Join(root, tmpDirName), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store tmp dir: %w", err)
	}

	want := defaultFormat()
	if opts.Hash != "" {
		want.Hash = opts.Hash
	}
	if opts.Compression != "" {
		want.Compression = opts.Compression
	}

	_, statErr := os.Stat(filepath.Join(root, formatFile))
	switch {
	case errors.Is(statErr, fs.ErrNotExist):
		if err := writeFormat(root, want); err != nil {
			return nil, fmt.Errorf("failed to write store format: %w", err)
		}
	case statErr != nil:
		return nil, statErr
	default:
		have, err := readFormat(root)
		if err != nil {
			return nil, err
		}
		if (opts.Hash != "" && opts.Hash != have.Hash) ||
			(opts.Compression != "" && opts.Compression != have.Compression) {
			return nil, fmt.Errorf("store %s already exists with format %s/%s", root, have.Hash, have.Compression)
		}
	}

	return Open(root)
}

// Open 打开一个已经存在的存储目录，目录不存在时返回 fs.ErrNotExist
func Open(root string) (*Adapter, error) {
	if err := iox.ProbeDir(root); err != nil {
		return nil, fmt.Errorf("failed to open store dir: %w", err)
	}
	f, err := readFormat(root)
	if err != nil {
		return nil, err
	}
	// tmp 可能被手动清理过，重建它
	if err := iox.EnsureDir(filepath.Join(root, tmpDirName), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store tmp dir: %w", err)
	}
	return &Adapter{rootPath: root, format: f}, nil
}

func (s *Adapter) Root() string   { return s.rootPath }
func (s *Adapter) Format() Format { return s.format }

// layout 返回哈希对应的物理路径
// Example: hash "aabbcc..." -> root/aa/bbcc...
func (s *Adapter) layout(hash types.Hash) string {
	hex := hash.String()
	return filepath.Join(s.rootPath, hex[:2], hex[2:])
}

func (s *Adapter) OpenInserter(ctx context.Context) (storage.Inserter, error) {
	tmp, err := os.CreateTemp(filepath.Join(s.rootPath, tmpDirName), "insert-*")
	if err != nil {
		return nil, fmt.Errorf("failed to open inserter: %w", err)
	}

	ins := &inserter{
		store:  s,
		tmp:    tmp,
		hasher: s.format.Hash.New(),
	}

	var sink io.Writer = tmp
	if s.format.Compression == CompressionZstd {
		enc, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return nil, fmt.Errorf("failed to init zstd encoder: %w", err)
		}
		ins.enc = enc
		sink = enc
	}
	// Hash 永远基于原始字节
	ins.w = io.MultiWriter(ins.hasher, sink)
	return ins, nil
}

func (s *Adapter) OpenReader(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	f, err := os.Open(s.layout(hash))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.format.Compression != CompressionZstd {
		return f, nil
	}

	dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to init zstd decoder: %w", err)
	}
	return &zstdReadCloser{dec: dec, file: f}, nil
}

func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	_, err := os.Stat(s.layout(hash))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// -----------------------------------------------------------------------------
// inserter
// -----------------------------------------------------------------------------

type inserter struct {
	store  *Adapter
	tmp    *os.File
	enc    *zstd.Encoder
	hasher hash.Hash
	w      io.Writer
	closed bool
}

func (i *inserter) Write(p []byte) (int, error) {
	if i.closed {
		return 0, storage.ErrInserterClosed
	}
	return i.w.Write(p)
}

// Commit 原子写入 (Atomic Write)
// 先写临时文件，再 Rename 到最终位置，保证要么文件不存在，要么文件是完整的。
func (i *inserter) Commit(ctx context.Context) (types.Hash, error) {
	if i.closed {
		return types.Hash{}, storage.ErrInserterClosed
	}
	i.closed = true
	// 成功 Rename 之后这个删除会失效，是无害的
	defer os.Remove(i.tmp.Name())

	if i.enc != nil {
		if err := i.enc.Close(); err != nil {
			i.tmp.Close()
			return types.Hash{}, fmt.Errorf("failed to flush zstd stream: %w", err)
		}
	}
	if err := i.tmp.Sync(); err != nil {
		i.tmp.Close()
		return types.Hash{}, err
	}
	if err := i.tmp.Close(); err != nil {
		return types.Hash{}, err
	}

	hash, err := types.HashFromBytes(i.hasher.Sum(nil))
	if err != nil {
		return types.Hash{}, err
	}

	target := i.store.layout(hash)
	// 已经存在，直接跳过 (CAS 的好处)
	if _, err := os.Stat(target); err == nil {
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return types.Hash{}, err
	}
	if err := os.Rename(i.tmp.Name(), target); err != nil {
		return types.Hash{}, fmt.Errorf("failed to move blob into place: %w", err)
	}
	return hash, nil
}

func (i *inserter) Abort() error {
	if i.closed {
		return nil
	}
	i.closed = true
	if i.enc != nil {
		i.enc.Close()
	}
	i.tmp.Close()
	return os.Remove(i.tmp.Name())
}

type zstdReadCloser struct {
	dec  *zstd.Decoder
	file *os.File
}

func (z *zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.file.Close()
}
