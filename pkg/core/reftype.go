package core

import "fmt"

// RefType 是引用的类型标签，一个封闭的枚举 {Data, Link}
// 编码为单字节。新增节点类型时，必须同时更新下面所有的 switch。
type RefType uint8

const (
	RefData RefType = 0 // 叶子节点：原始字节
	RefLink RefType = 1 // 内部节点：引用序列
)

// ParseRefType 解码类型字节，未知值返回 InvalidRefType
func ParseRefType(b byte) (RefType, error) {
	switch RefType(b) {
	case RefData, RefLink:
		return RefType(b), nil
	default:
		return 0, &DecodeError{Kind: InvalidRefType, Byte: b}
	}
}

func (t RefType) Byte() byte { return byte(t) }

func (t RefType) String() string {
	switch t {
	case RefData:
		return "Data"
	case RefLink:
		return "Link"
	default:
		return fmt.Sprintf("RefType(%d)", uint8(t))
	}
}
