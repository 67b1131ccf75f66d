package core

import "fmt"

type DecodeErrorKind int

const (
	InvalidRefType DecodeErrorKind = iota + 1
	InvalidLength
	InvalidBase64Byte
)

// DecodeError 描述引用解码失败的具体原因
// 它在 errors.Is 层面等价于 ErrInvalidData，方便在 I/O 边界统一处理。
type DecodeError struct {
	Kind DecodeErrorKind

	Byte   byte // InvalidRefType / InvalidBase64Byte: 出错的字节
	Index  int  // InvalidBase64Byte: 出错字符的偏移
	Length int  // InvalidLength: 实际长度
	Want   int  // InvalidLength: 期望长度
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case InvalidRefType:
		return fmt.Sprintf("invalid reference: bad RefType byte %d", e.Byte)
	case InvalidLength:
		return fmt.Sprintf("invalid reference: bad length %d, expected %d", e.Length, e.Want)
	case InvalidBase64Byte:
		return fmt.Sprintf("invalid reference: bad base64 char %q at index %d", e.Byte, e.Index)
	default:
		return "invalid reference"
	}
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrInvalidData
}
