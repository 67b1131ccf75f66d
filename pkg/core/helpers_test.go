package core

import (
	"crypto/sha256"
	"testing"

	"dagao/pkg/types"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// 辅助工具
// -----------------------------------------------------------------------------

// mockHash 生成一个确定性的 32 字节 Hash
func mockHash(input string) types.Hash {
	return types.Hash(sha256.Sum256([]byte(input)))
}

// mustParseReference 解析文本引用，失败直接终止测试
func mustParseReference(t *testing.T, s string, msgAndArgs ...any) Reference {
	t.Helper()
	ref, err := ParseReference(s)
	require.NoError(t, err, msgAndArgs...)
	return ref
}
