package storage

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
)

// HashAlgo 决定 Blob Store 用哪种摘要算法给内容寻址
// 两种算法都输出 32 字节，和 types.HashSize 一致。
type HashAlgo string

const (
	HashSHA256 HashAlgo = "sha256"
	HashBLAKE3 HashAlgo = "blake3"
)

// ParseHashAlgo 解析配置中的算法名，空字符串使用默认的 sha256
func ParseHashAlgo(name string) (HashAlgo, error) {
	switch HashAlgo(name) {
	case "", HashSHA256:
		return HashSHA256, nil
	case HashBLAKE3:
		return HashBLAKE3, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm: %q", name)
	}
}

// New 返回一个新的流式摘要器
func (a HashAlgo) New() hash.Hash {
	switch a {
	case HashBLAKE3:
		return blake3.New()
	default:
		return sha256.New()
	}
}
