package blobrpc

import (
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

// =============================================================================
// 1. 接收方向: gRPC Stream -> io.Reader
// =============================================================================

// RecvStream 是 Write 服务端流和 Read 客户端流共有的最小接口，方便测试 Mock
type RecvStream interface {
	Recv() (*wrapperspb.BytesValue, error)
}

// StreamReader 将收到的 BytesValue 流包装为 io.Reader
// 流的终止错误 (包括 io.EOF) 会被记住，之后每次 Read 都返回它。
type StreamReader struct {
	stream RecvStream
	buf    []byte // 从 Recv 拿到、还没被 Read 读走的数据
	err    error
}

func NewStreamReader(stream RecvStream) *StreamReader {
	return &StreamReader{stream: stream}
}

// Prime 预先接收第一条消息，让调用方尽早看到流上的错误
// 流立即结束 (空内容) 时返回 nil，后续 Read 返回 io.EOF。
func (r *StreamReader) Prime() error {
	if r.err != nil || len(r.buf) > 0 {
		return nil
	}
	r.recv()
	if r.err != nil && len(r.buf) == 0 && !isEOF(r.err) {
		return r.err
	}
	return nil
}

func (r *StreamReader) Read(p []byte) (int, error) {
	// 空消息是合法的，跳过继续读
	for len(r.buf) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.recv()
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *StreamReader) recv() {
	msg, err := r.stream.Recv()
	if err != nil {
		r.err = err
		return
	}
	r.buf = msg.GetValue()
}

// =============================================================================
// 2. 发送方向: io.Writer -> gRPC Stream
// =============================================================================

// SendStream 是 Read 服务端流和 Write 客户端流共有的最小接口
type SendStream interface {
	Send(*wrapperspb.BytesValue) error
}

// StreamWriter 将 io.Writer 包装为 BytesValue 流
// 单条消息不超过 maxChunk 字节，大的 Write 会被拆成多条。
type StreamWriter struct {
	stream   SendStream
	maxChunk int
}

func NewStreamWriter(stream SendStream, maxChunk int) *StreamWriter {
	return &StreamWriter{stream: stream, maxChunk: max(1, maxChunk)}
}

// Write 同步发送，返回时 p 已经被序列化，调用方可以复用 p
func (w *StreamWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := min(len(p), w.maxChunk)
		if err := w.stream.Send(wrapperspb.Bytes(p[:n])); err != nil {
			return written, fmt.Errorf("grpc send failed: %w", err)
		}
		written += n
		p = p[n:]
	}
	return written, nil
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
