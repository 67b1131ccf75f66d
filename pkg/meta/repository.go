package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dagao/pkg/core"
	"dagao/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNodeNotFound = errors.New("node not found in catalog")

// NodeRecord 是写入目录库的节点描述
type NodeRecord struct {
	Ref      core.Reference
	Size     int64
	Children []core.Reference
}

// PathRecord 是一次递归导入中单个路径的描述
type PathRecord struct {
	Path  types.RepoPath
	Ref   core.Reference
	IsDir bool
	Size  int64
}

// Repository 封装所有对 SQL 数据库的操作
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// -----------------------------------------------------------------------------
// 1. 节点索引
// -----------------------------------------------------------------------------

// RecordNode 把节点 "投影" 到数据库 (幂等写入)
// 如果 Ref 已存在，则什么都不做：节点内容由引用决定，重复记录一定相同。
func (r *Repository) RecordNode(ctx context.Context, rec NodeRecord) error {
	model, err := toModel(rec)
	if err != nil {
		return err
	}
	err = r.db.GetConn().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ref"}},
			DoNothing: true,
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to record node: %w", err)
	}
	return nil
}

func toModel(rec NodeRecord) (Node, error) {
	children := make([]string, len(rec.Children))
	for i, c := range rec.Children {
		children[i] = c.String()
	}
	childrenJSON, err := json.Marshal(children)
	if err != nil {
		return Node{}, fmt.Errorf("failed to marshal children: %w", err)
	}
	return Node{
		Ref:        rec.Ref.String(),
		RefType:    rec.Ref.Type.Byte(),
		Size:       rec.Size,
		ChildCount: len(rec.Children),
		Children:   datatypes.JSON(childrenJSON),
		CreatedAt:  time.Now(),
	}, nil
}

func (r *Repository) GetNode(ctx context.Context, ref core.Reference) (*Node, error) {
	var node Node
	err := r.db.GetConn().WithContext(ctx).
		Where("ref = ?", ref.String()).
		First(&node).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// ChildRefs 解析 Children 列
func (n *Node) ChildRefs() ([]core.Reference, error) {
	if len(n.Children) == 0 {
		return nil, nil
	}
	var refs []core.Reference
	if err := json.Unmarshal(n.Children, &refs); err != nil {
		return nil, fmt.Errorf("corrupt children of %s: %w", n.Ref, err)
	}
	return refs, nil
}

// Reference 解析 Ref 列
func (n *Node) Reference() (core.Reference, error) {
	return core.ParseReference(n.Ref)
}

// ListNodes 按记录时间倒序列出节点
// refType 为 nil 时不过滤类型；limit <= 0 时不限制条数。
func (r *Repository) ListNodes(ctx context.Context, refType *core.RefType, limit int) ([]Node, error) {
	q := r.db.GetConn().WithContext(ctx).Order("created_at DESC").Order("ref")
	if refType != nil {
		q = q.Where("ref_type = ?", refType.Byte())
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var nodes []Node
	err := q.Find(&nodes).Error
	return nodes, err
}

// -----------------------------------------------------------------------------
// 2. 路径索引
// -----------------------------------------------------------------------------

// RecordPaths 在一个事务里记录某次导入的全部路径 (幂等写入)
func (r *Repository) RecordPaths(ctx context.Context, root core.Reference, recs []PathRecord) error {
	if len(recs) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]FileEntry, len(recs))
	for i, rec := range recs {
		rows[i] = FileEntry{
			RootRef:   root.String(),
			Path:      rec.Path.String(),
			Ref:       rec.Ref.String(),
			IsDir:     rec.IsDir,
			Size:      rec.Size,
			CreatedAt: now,
		}
	}
	return r.db.GetConn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "root_ref"}, {Name: "path"}},
			DoNothing: true,
		}).CreateInBatches(rows, 500).Error
		if err != nil {
			return fmt.Errorf("failed to record paths: %w", err)
		}
		return nil
	})
}

// FindByPath 返回某路径在所有导入中的记录，最新的在前
func (r *Repository) FindByPath(ctx context.Context, path types.RepoPath) ([]FileEntry, error) {
	var entries []FileEntry
	err := r.db.GetConn().WithContext(ctx).
		Where("path = ?", path.String()).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

// ListPaths 返回某次导入的全部路径，按路径排序
func (r *Repository) ListPaths(ctx context.Context, root core.Reference) ([]FileEntry, error) {
	var entries []FileEntry
	err := r.db.GetConn().WithContext(ctx).
		Where("root_ref = ?", root.String()).
		Order("path").
		Find(&entries).Error
	return entries, err
}
