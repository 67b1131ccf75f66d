// Package chunker 实现 FastCDC 内容定义切分
// 相同内容产生相同切点，文件中间插入数据只影响附近的块，未改动的块可以被去重复用。
package chunker

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// 默认配置 (单位: 字节)
const (
	DefaultMinSize = 256 * 1024      // 256KB
	DefaultAvgSize = 1024 * 1024     // 1MB
	DefaultMaxSize = 4 * 1024 * 1024 // 4MB
	NormLevel      = 2
)

// Options 控制切分粒度，三个值都必须为正且 Min <= Avg <= Max
type Options struct {
	MinSize int
	AvgSize int
	MaxSize int
}

func DefaultOptions() Options {
	return Options{MinSize: DefaultMinSize, AvgSize: DefaultAvgSize, MaxSize: DefaultMaxSize}
}

func (o Options) validate() error {
	if o.MinSize <= 0 || o.AvgSize < o.MinSize || o.MaxSize < o.AvgSize {
		return fmt.Errorf("invalid chunker sizes min=%d avg=%d max=%d", o.MinSize, o.AvgSize, o.MaxSize)
	}
	return nil
}

// gearTable 由固定种子的 splitmix64 生成
// 切点依赖这张表，表一旦改变，已有数据的切分结果全部改变，不能随意修改种子。
var gearTable = func() (t [256]uint64) {
	x := uint64(0x64616761_6f676561) // "dagaogea"
	for i := range t {
		x += 0x9E3779B97F4A7C15
		z := x
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		t[i] = z ^ (z >> 31)
	}
	return t
}()

// Chunker 从 io.Reader 中流式切出数据块
// 内部缓冲区最多保留 MaxSize 字节，内存占用与文件大小无关。
type Chunker struct {
	r    io.Reader
	opts Options

	maskS uint64
	maskL uint64

	buf []byte // 读入但尚未切出的数据
	eof bool
}

func New(r io.Reader, opts Options) (*Chunker, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	// 预计算掩码
	b := int(math.Round(math.Log2(float64(opts.AvgSize))))
	return &Chunker{
		r:     r,
		opts:  opts,
		maskS: mask(b + NormLevel),
		maskL: mask(b - NormLevel),
		buf:   make([]byte, 0, opts.MaxSize),
	}, nil
}

func mask(n int) uint64 {
	n = max(1, min(n, 63))
	return uint64(1)<<n - 1
}

// Next 返回下一个块
// 每次返回新分配的切片，归调用方所有，可以交给其他 goroutine 持有。数据读完后返回 io.EOF。
// 最后一块可能小于 MinSize，空输入不产生任何块。
func (c *Chunker) Next() ([]byte, error) {
	if err := c.fill(); err != nil {
		return nil, err
	}
	if len(c.buf) == 0 {
		return nil, io.EOF
	}

	n := c.cut(c.buf)
	chunk := make([]byte, n)
	copy(chunk, c.buf[:n])
	c.buf = append(c.buf[:0], c.buf[n:]...)
	return chunk, nil
}

// fill 尽量把缓冲区填满到 MaxSize
func (c *Chunker) fill() error {
	for !c.eof && len(c.buf) < c.opts.MaxSize {
		n, err := c.r.Read(c.buf[len(c.buf):c.opts.MaxSize])
		c.buf = c.buf[:len(c.buf)+n]
		if errors.Is(err, io.EOF) {
			c.eof = true
			break
		}
		if err != nil {
			return fmt.Errorf("chunker read: %w", err)
		}
	}
	return nil
}

// cut 返回 data 中第一个块的长度
func (c *Chunker) cut(data []byte) int {
	n := len(data)
	// 1. 剩余不足最小块，直接收尾
	if n <= c.opts.MinSize {
		return n
	}

	// 2. 跳过最小块区域，从 MinSize 开始计算指纹
	fp := uint64(0)
	idx := c.opts.MinSize
	normLimit := min(c.opts.AvgSize, n)
	maxLimit := min(c.opts.MaxSize, n)

	// A. 归一化区域 (严掩码)
	for ; idx < normLimit; idx++ {
		fp = (fp << 1) + gearTable[data[idx]]
		if fp&c.maskS == 0 {
			return idx + 1
		}
	}
	// B. 普通区域 (宽掩码)
	for ; idx < maxLimit; idx++ {
		fp = (fp << 1) + gearTable[data[idx]]
		if fp&c.maskL == 0 {
			return idx + 1
		}
	}
	// C. 强制切分
	return maxLimit
}
