package disk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"dagao/pkg/storage"

	"github.com/fxamacker/cbor/v2"
)

// Compression 决定 Blob 在磁盘上的存储形式
// 内容 Hash 永远基于未压缩的字节计算，所以切换压缩不影响去重。
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd:
		return CompressionZstd, nil
	default:
		return "", fmt.Errorf("unknown compression: %q", name)
	}
}

const (
	formatFile    = "FORMAT"
	formatVersion = 1
)

// Format 是存储目录的描述文件 (root/FORMAT)，在 Create 时写入一次
// 使用 Canonical CBOR，保证相同的配置产生相同的字节。
type Format struct {
	Version     int              `cbor:"v"`
	Hash        storage.HashAlgo `cbor:"h"`
	Compression Compression      `cbor:"c"`
}

var formatEncMode, _ = cbor.CanonicalEncOptions().EncMode()

var formatDecMode, _ = cbor.DecOptions{
	DupMapKey:   cbor.DupMapKeyEnforcedAPF,
	IndefLength: cbor.IndefLengthForbidden,
}.DecMode()

// defaultFormat 用于没有 FORMAT 文件的旧目录
func defaultFormat() Format {
	return Format{Version: formatVersion, Hash: storage.HashSHA256, Compression: CompressionNone}
}

func readFormat(root string) (Format, error) {
	data, err := os.ReadFile(filepath.Join(root, formatFile))
	if errors.Is(err, fs.ErrNotExist) {
		return defaultFormat(), nil
	}
	if err != nil {
		return Format{}, fmt.Errorf("failed to read store format: %w", err)
	}

	var f Format
	if err := formatDecMode.Unmarshal(data, &f); err != nil {
		return Format{}, fmt.Errorf("corrupted store format: %w", err)
	}
	if f.Version != formatVersion {
		return Format{}, fmt.Errorf("unsupported store format version %d", f.Version)
	}
	if _, err := storage.ParseHashAlgo(string(f.Hash)); err != nil {
		return Format{}, err
	}
	if _, err := ParseCompression(string(f.Compression)); err != nil {
		return Format{}, err
	}
	return f, nil
}

// writeFormat 原子写入描述文件 (临时文件 + Rename)
func writeFormat(root string, f Format) error {
	data, err := formatEncMode.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal store format: %w", err)
	}

	tmp, err := os.CreateTemp(root, ".format-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(root, formatFile))
}
