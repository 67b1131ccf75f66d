package core

import "errors"

// 错误分类 (Error Kinds)
// 具体错误会用 %w 包装这些哨兵值，调用方统一用 errors.Is 判断类别。
var (
	// ErrInvalidData: Link 节点头部不匹配、引用的类型字节非法、文本引用无法解码
	ErrInvalidData = errors.New("invalid data")

	// ErrInvalidInput: 请求的编解码器与引用的实际类型不一致
	ErrInvalidInput = errors.New("invalid input")

	// ErrWriteZero: 头部没能在单次 Write 中完整写入
	ErrWriteZero = errors.New("write zero")

	// ErrClosed: Inserter 已经 Commit 或 Abort，不能再使用
	ErrClosed = errors.New("inserter is closed")
)
