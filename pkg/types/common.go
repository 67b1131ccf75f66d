// pkg/types/common.go
package types

import (
	"encoding/hex"
	"fmt"
)

// HashSize 是 Blob Store 摘要的固定字节长度 (sha256 与 blake3 都是 32 字节)
const HashSize = 32

// Hash 代表 Blob 内容的唯一标识符
// 这是一个“值对象”：定长数组，可直接用 == 比较，可作为 map key。
// 只有 Blob Store 在内容落盘之后才会生成它。
type Hash [HashSize]byte

// String 返回小写 Hex 形式 (64 字符)，用于日志和存储路径
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

func (h Hash) IsZero() bool { return h == Hash{} }

// Bytes 返回一份拷贝，调用方修改它不会影响 Hash 本身
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// HashFromBytes 将原始摘要字节包装为 Hash，长度必须严格等于 HashSize
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("invalid hash length %d, expected %d", len(b), HashSize)
	}
	copy(h[:], b)
	return h, nil
}

// ParseHash 解析 64 字符的 Hex 字符串
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != HashSize*2 {
		return h, fmt.Errorf("invalid hash hex length %d, expected %d", len(s), HashSize*2)
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("invalid hash hex: %w", err)
	}
	return h, nil
}

// RepoPath 是相对于被导入根目录的 slash 路径 (如 "data/model.bin")
type RepoPath string

func (p RepoPath) String() string { return string(p) }
