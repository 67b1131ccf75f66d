package meta

import (
	"time"

	"gorm.io/datatypes"
)

// Node 是一个已提交的 DAG 节点在关系型数据库中的投影 (索引)
// 节点不可变，所以每行只插入一次，之后再也不会被修改。
type Node struct {
	// Ref 是主键，44 字符的文本形式引用
	Ref string `gorm:"primaryKey;type:char(44)"`

	RefType uint8 `gorm:"index;not null"`

	// Size 是节点代表的原始内容字节数 (文件或目录的逻辑大小)
	Size int64

	ChildCount int

	// Children 是 Link Node 的直接子引用 (文本形式的 JSON 数组)
	Children datatypes.JSON

	CreatedAt time.Time `gorm:"index"`
}

// FileEntry 记录一次递归导入中 "路径 -> 节点" 的关联
// 以 (RootRef, Path) 为主键：同一路径在不同的导入根下各有一行，不存在可变的名字。
type FileEntry struct {
	RootRef string `gorm:"primaryKey;type:char(44)"`
	Path    string `gorm:"primaryKey;type:varchar(4096);index"`

	Ref   string `gorm:"type:char(44);not null;index"`
	IsDir bool
	Size  int64

	CreatedAt time.Time
}

// TableName 强制指定表名
func (FileEntry) TableName() string {
	return "file_entries"
}
