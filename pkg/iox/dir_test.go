package iox

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a")

	require.NoError(t, EnsureDir(dir, 0o755))
	require.NoError(t, EnsureDir(dir, 0o755), "第二次创建也应该成功")

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEnsureDir_Failures(t *testing.T) {
	root := t.TempDir()

	// 同名文件
	file := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.Error(t, EnsureDir(file, 0o755))

	// 父目录不存在
	err := EnsureDir(filepath.Join(root, "missing", "child"), 0o755)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestProbeDir(t *testing.T) {
	root := t.TempDir()
	assert.NoError(t, ProbeDir(root), "空目录可读")

	require.NoError(t, os.WriteFile(filepath.Join(root, "f"), nil, 0o644))
	assert.NoError(t, ProbeDir(root))

	err := ProbeDir(filepath.Join(root, "nope"))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	// 普通文件不是目录
	assert.Error(t, ProbeDir(filepath.Join(root, "f")))
}
