package iox

import (
	"errors"
	"fmt"
	"io"
)

// ReadFull 从 r 中读取恰好 len(buf) 个字节，区分三种结果：
//
//	(true, nil)  读满了一条完整记录
//	(false, nil) 流在第一个字节之前就结束了 (干净的 EOF)，buf 无意义
//	(_, err)     读到 1..len(buf)-1 个字节后流结束，err 包装 io.ErrUnexpectedEOF
//
// 慢速流上的短读 (short read) 会被内部循环吸收，不会被误判为 EOF。
// 连续 maxEmptyReads 次返回 (0, nil) 的 Reader 视为坏掉，返回 io.ErrNoProgress。
func ReadFull(r io.Reader, buf []byte) (bool, error) {
	n, empty := 0, 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		switch {
		case n == len(buf):
			return true, nil
		case err != nil && isEOF(err) && n == 0:
			return false, nil
		case err != nil && isEOF(err):
			return false, fmt.Errorf("partial read of %d bytes, expected %d: %w", n, len(buf), io.ErrUnexpectedEOF)
		case err != nil:
			return false, err
		case m > 0:
			empty = 0
		default:
			if empty++; empty >= maxEmptyReads {
				return false, fmt.Errorf("read %d of %d bytes: %w", n, len(buf), io.ErrNoProgress)
			}
		}
	}
	return true, nil
}

// 与 bufio 的上限一致
const maxEmptyReads = 100

func isEOF(err error) bool { return errors.Is(err, io.EOF) }
