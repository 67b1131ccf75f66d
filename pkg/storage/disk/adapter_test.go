package disk

import (
	"bytes"
	"context"
	"crypto/sha256"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"dagao/pkg/storage"
	"dagao/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

// mustInsert 写入一段内容并提交，失败直接终止测试
func mustInsert(t *testing.T, store storage.BlobStore, data []byte) types.Hash {
	t.Helper()
	ctx := context.Background()
	ins, err := store.OpenInserter(ctx)
	require.NoError(t, err)
	_, err = ins.Write(data)
	require.NoError(t, err)
	h, err := ins.Commit(ctx)
	require.NoError(t, err)
	return h
}

func readAll(t *testing.T, store storage.BlobStore, h types.Hash) []byte {
	t.Helper()
	rc, err := store.OpenReader(context.Background(), h)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func TestDiskAdapter(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	store, err := Create(root, Options{})
	require.NoError(t, err)
	ctx := context.Background()

	// 1. 写入
	h := mustInsert(t, store, []byte("hello world"))
	assert.Equal(t, types.Hash(sha256.Sum256([]byte("hello world"))), h)

	// 验证文件存在于分片目录中: root/ab/cdef...
	hex := h.String()
	_, err = os.Stat(filepath.Join(root, hex[:2], hex[2:]))
	assert.NoError(t, err, "文件应该存在于 Sharding 目录中")

	// 2. Has
	exists, err := store.Has(ctx, h)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Has(ctx, types.Hash{0xff})
	require.NoError(t, err)
	assert.False(t, exists)

	// 3. 读取
	assert.Equal(t, []byte("hello world"), readAll(t, store, h))

	// 4. 不存在的内容
	_, err = store.OpenReader(ctx, types.Hash{0xff})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	// tmp 目录里不应该残留缓冲文件
	entries, err := os.ReadDir(filepath.Join(root, tmpDirName))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskAdapter_StreamingWritesAndIdempotency(t *testing.T) {
	store, err := Create(filepath.Join(t.TempDir(), "store"), Options{})
	require.NoError(t, err)
	ctx := context.Background()

	// 分多次写入与一次写入得到相同 Hash
	ins, err := store.OpenInserter(ctx)
	require.NoError(t, err)
	for _, part := range []string{"he", "llo", " ", "world"} {
		_, err := ins.Write([]byte(part))
		require.NoError(t, err)
	}
	h1, err := ins.Commit(ctx)
	require.NoError(t, err)

	h2 := mustInsert(t, store, []byte("hello world"))
	assert.Equal(t, h1, h2, "相同内容的重复提交是幂等的")

	// Commit 之后不能再使用
	_, err = ins.Write([]byte("x"))
	assert.ErrorIs(t, err, storage.ErrInserterClosed)
	_, err = ins.Commit(ctx)
	assert.ErrorIs(t, err, storage.ErrInserterClosed)
	assert.NoError(t, ins.Abort(), "对已关闭的 Inserter 调用 Abort 是无害的")
}

func TestDiskAdapter_EmptyBlob(t *testing.T) {
	store, err := Create(filepath.Join(t.TempDir(), "store"), Options{})
	require.NoError(t, err)

	h := mustInsert(t, store, nil)
	assert.Equal(t, types.Hash(sha256.Sum256(nil)), h)
	assert.Empty(t, readAll(t, store, h))
}

func TestDiskAdapter_Abort(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	store, err := Create(root, Options{})
	require.NoError(t, err)
	ctx := context.Background()

	ins, err := store.OpenInserter(ctx)
	require.NoError(t, err)
	_, err = ins.Write([]byte("discard me"))
	require.NoError(t, err)
	require.NoError(t, ins.Abort())

	exists, err := store.Has(ctx, types.Hash(sha256.Sum256([]byte("discard me"))))
	require.NoError(t, err)
	assert.False(t, exists)

	entries, err := os.ReadDir(filepath.Join(root, tmpDirName))
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = ins.Commit(ctx)
	assert.ErrorIs(t, err, storage.ErrInserterClosed)
}

func TestDiskAdapter_FormatOptions(t *testing.T) {
	payload := bytes.Repeat([]byte("compressible payload "), 1000)

	tests := []struct {
		name string
		opts Options
		want types.Hash
	}{
		{"sha256/none", Options{Hash: storage.HashSHA256, Compression: CompressionNone}, sha256.Sum256(payload)},
		{"sha256/zstd", Options{Hash: storage.HashSHA256, Compression: CompressionZstd}, sha256.Sum256(payload)},
		{"blake3/none", Options{Hash: storage.HashBLAKE3, Compression: CompressionNone}, blake3.Sum256(payload)},
		{"blake3/zstd", Options{Hash: storage.HashBLAKE3, Compression: CompressionZstd}, blake3.Sum256(payload)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := filepath.Join(t.TempDir(), "store")
			store, err := Create(root, tt.opts)
			require.NoError(t, err)

			h := mustInsert(t, store, payload)
			assert.Equal(t, tt.want, h, "Hash 基于未压缩的原始字节")
			assert.Equal(t, payload, readAll(t, store, h))

			info, err := os.Stat(store.layout(h))
			require.NoError(t, err)
			if tt.opts.Compression == CompressionZstd {
				assert.Less(t, info.Size(), int64(len(payload)), "zstd 应该压缩重复数据")
			} else {
				assert.Equal(t, int64(len(payload)), info.Size())
			}

			// 重新打开后沿用 FORMAT
			reopened, err := Open(root)
			require.NoError(t, err)
			assert.Equal(t, tt.opts.Hash, reopened.Format().Hash)
			assert.Equal(t, tt.opts.Compression, reopened.Format().Compression)
			assert.Equal(t, payload, readAll(t, reopened, h))
		})
	}
}

func TestCreate_Idempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")

	_, err := Create(root, Options{Hash: storage.HashBLAKE3})
	require.NoError(t, err)

	// 不指定选项：沿用已有格式
	s, err := Create(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, storage.HashBLAKE3, s.Format().Hash)

	// 冲突的选项：报错
	_, err = Create(root, Options{Hash: storage.HashSHA256})
	assert.Error(t, err)
}

func TestCreate_RejectsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	require.NoError(t, os.WriteFile(root, []byte("not a dir"), 0o644))

	_, err := Create(root, Options{})
	assert.Error(t, err)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOpen_LegacyDirWithoutFormat(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root)
	require.NoError(t, err)
	assert.Equal(t, defaultFormat(), s.Format())
}

func TestOpen_CorruptedFormat(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, formatFile), []byte{0xff, 0x00}, 0o644))
	_, err := Open(root)
	assert.Error(t, err)
}
