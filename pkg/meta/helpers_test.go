package meta

import (
	"context"
	"crypto/sha256"
	"fmt"
	"testing"

	"dagao/pkg/core"
	"dagao/pkg/types"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// -----------------------------------------------------------------------------
// 通用辅助函数 (Helpers)
// -----------------------------------------------------------------------------

// mockRef 生成合法的测试用引用
func mockRef(t core.RefType, input string) core.Reference {
	return core.NewReference(t, types.Hash(sha256.Sum256([]byte(input))))
}

// setupTestRepo 构建隔离的测试环境
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	db := NewWithConn(conn)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	return NewRepository(db)
}

// mustRecordNode 强制记录节点，失败则终止
func mustRecordNode(t *testing.T, repo *Repository, rec NodeRecord, msgAndArgs ...any) {
	t.Helper()
	require.NoError(t, repo.RecordNode(context.Background(), rec), msgAndArgs...)
}
