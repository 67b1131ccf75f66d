package core

import (
	"encoding/base64"
	"errors"
	"io"

	"dagao/pkg/iox"
	"dagao/pkg/types"
)

const (
	// ReferenceSize 是二进制引用的定长长度：1 字节类型 + 原始 Hash
	ReferenceSize = 1 + types.HashSize

	// TextSize 是文本引用的定长长度：ceil(ReferenceSize * 4 / 3)
	TextSize = (ReferenceSize*4 + 2) / 3
)

// 文本形式使用标准字母表，不带填充：长度恰好是上面的 ceil
var textEncoding = base64.RawStdEncoding

// Reference 是指向内容寻址存储的带类型指针
// 值类型，不可变；== 即结构相等。
// 持有一个 Reference 并不意味着被引用的内容存在，直到真正去读它。
type Reference struct {
	Type RefType
	Hash types.Hash
}

func NewReference(t RefType, h types.Hash) Reference {
	return Reference{Type: t, Hash: h}
}

// Bytes 返回规范的二进制编码 (用于磁盘/线上)
func (r Reference) Bytes() [ReferenceSize]byte {
	var buf [ReferenceSize]byte
	buf[0] = r.Type.Byte()
	copy(buf[1:], r.Hash[:])
	return buf
}

// String 返回定长的 base64 文本形式，供人阅读的标识符
func (r Reference) String() string {
	buf := r.Bytes()
	return textEncoding.EncodeToString(buf[:])
}

// DecodeBinary 解码一条二进制引用
// 第一个字节必须是已知的 RefType，其余字节原样作为 Hash。
func DecodeBinary(b []byte) (Reference, error) {
	if len(b) != ReferenceSize {
		return Reference{}, &DecodeError{Kind: InvalidLength, Length: len(b), Want: ReferenceSize}
	}
	rt, err := ParseRefType(b[0])
	if err != nil {
		return Reference{}, err
	}
	var h types.Hash
	copy(h[:], b[1:])
	return Reference{Type: rt, Hash: h}, nil
}

// ReadReference 从流中读取下一条引用
// ok == false 且 err == nil 表示流已干净地结束；
// 半条记录会返回包装了 io.ErrUnexpectedEOF 的错误。
func ReadReference(r io.Reader) (ref Reference, ok bool, err error) {
	var buf [ReferenceSize]byte
	full, err := iox.ReadFull(r, buf[:])
	if err != nil || !full {
		return Reference{}, false, err
	}
	ref, err = DecodeBinary(buf[:])
	if err != nil {
		return Reference{}, false, err
	}
	return ref, true, nil
}

// ParseReference 解码文本形式的引用
// 长度必须恰好是 TextSize，否则 InvalidLength；
// 非法字符返回 InvalidBase64Byte，携带字符及其偏移。
func ParseReference(s string) (Reference, error) {
	if len(s) != TextSize {
		return Reference{}, &DecodeError{Kind: InvalidLength, Length: len(s), Want: TextSize}
	}
	buf, err := textEncoding.DecodeString(s)
	if err != nil {
		var corrupt base64.CorruptInputError
		if errors.As(err, &corrupt) {
			idx := int(corrupt)
			if idx >= len(s) {
				// 最后一组的尾部比特非零，落在最后一个字符上
				idx = len(s) - 1
			}
			return Reference{}, &DecodeError{Kind: InvalidBase64Byte, Byte: s[idx], Index: idx}
		}
		return Reference{}, err
	}
	return DecodeBinary(buf)
}

// MarshalBinary 实现 encoding.BinaryMarshaler
func (r Reference) MarshalBinary() ([]byte, error) {
	buf := r.Bytes()
	return buf[:], nil
}

// UnmarshalBinary 实现 encoding.BinaryUnmarshaler
func (r *Reference) UnmarshalBinary(data []byte) error {
	ref, err := DecodeBinary(data)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// MarshalText 实现 encoding.TextMarshaler，使引用在 JSON / YAML 中以文本形式出现
func (r Reference) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (r *Reference) UnmarshalText(text []byte) error {
	ref, err := ParseReference(string(text))
	if err != nil {
		return err
	}
	*r = ref
	return nil
}
