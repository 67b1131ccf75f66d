package iox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// EnsureDir 幂等地创建单层目录
// 目录已存在视为成功；同名的非目录文件、权限不足等其他错误原样返回。
// 注意：不会创建父目录 (不是 MkdirAll)。
func EnsureDir(path string, perm fs.FileMode) error {
	err := os.Mkdir(path, perm)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return err
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		return statErr
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists and is not a directory: %w", path, err)
	}
	return nil
}

// ProbeDir 检查 path 是一个存在且可列举的目录
// 只做存在性和可读性探测，不会创建任何东西。
func ProbeDir(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	// ReadDir(1) 对空目录返回 io.EOF，这也说明目录可读
	if _, err := f.ReadDir(1); err != nil && !isEOF(err) {
		return err
	}
	return nil
}
