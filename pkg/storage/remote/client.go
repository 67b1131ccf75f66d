// Package remote 通过 dagao.v1.BlobStore gRPC 服务访问远端 Blob Store
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	blobrpc "dagao/pkg/api/blobrpc/v1"
	"dagao/pkg/storage"
	"dagao/pkg/types"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// WriteChunkSize 是 Write 流中单个消息的最大字节数
const WriteChunkSize = 256 * 1024

// Client 实现 storage.BlobStore
type Client struct {
	conn *grpc.ClientConn // 仅在 Dial 创建时非空，由 Close 负责释放
	rpc  *blobrpc.BlobStoreClient
}

var _ storage.BlobStore = (*Client)(nil)

// Dial 创建客户端
// grpc.NewClient 立即返回，连接在后台建立，所以地址不可达不会在这里报错。
func Dial(addr string) (*Client, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", addr, err)
	}
	c := NewWithConn(conn)
	c.conn = conn
	return c, nil
}

// NewWithConn 复用调用方已有的连接，Close 不会关闭它
func NewWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{rpc: blobrpc.NewBlobStoreClient(cc)}
}

func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) Has(ctx context.Context, hash types.Hash) (bool, error) {
	resp, err := c.rpc.Has(ctx, wrapperspb.Bytes(hash[:]))
	if err != nil {
		return false, fromStatus(err)
	}
	return resp.GetValue(), nil
}

// OpenReader 预取第一条消息，这样对象不存在时在打开阶段就能返回 ErrNotFound
func (c *Client) OpenReader(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := c.rpc.Read(ctx, wrapperspb.Bytes(hash[:]))
	if err != nil {
		cancel()
		return nil, fromStatus(err)
	}

	sr := blobrpc.NewStreamReader(stream)
	if err := sr.Prime(); err != nil {
		cancel()
		return nil, fromStatus(err)
	}
	return &streamReader{sr: sr, cancel: cancel}, nil
}

func (c *Client) OpenInserter(ctx context.Context) (storage.Inserter, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := c.rpc.Write(ctx)
	if err != nil {
		cancel()
		return nil, fromStatus(err)
	}
	return &inserter{stream: stream, w: blobrpc.NewStreamWriter(stream, WriteChunkSize), cancel: cancel}, nil
}

// --- reader ---

type streamReader struct {
	sr     *blobrpc.StreamReader
	cancel context.CancelFunc
}

func (r *streamReader) Read(p []byte) (int, error) {
	n, err := r.sr.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fromStatus(err)
	}
	return n, err
}

func (r *streamReader) Close() error {
	r.cancel()
	return nil
}

// --- inserter ---

type inserter struct {
	stream grpc.ClientStreamingClient[wrapperspb.BytesValue, wrapperspb.BytesValue]
	w      *blobrpc.StreamWriter
	cancel context.CancelFunc
	closed bool
}

func (w *inserter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, storage.ErrInserterClosed
	}
	n, err := w.w.Write(p)
	if err != nil {
		return n, w.sendError(err)
	}
	return n, nil
}

// sendError 在 Send 失败时取回服务端的真实状态
// 流被服务端终止时 Send 只返回 io.EOF，真正的错误要靠 RecvMsg 取得。
func (w *inserter) sendError(err error) error {
	if errors.Is(err, io.EOF) {
		var out wrapperspb.BytesValue
		if rerr := w.stream.RecvMsg(&out); rerr != nil && !errors.Is(rerr, io.EOF) {
			return fromStatus(rerr)
		}
		return io.ErrClosedPipe
	}
	return fromStatus(err)
}

func (w *inserter) Commit(ctx context.Context) (types.Hash, error) {
	var h types.Hash
	if w.closed {
		return h, storage.ErrInserterClosed
	}
	w.closed = true
	defer w.cancel()

	resp, err := w.stream.CloseAndRecv()
	if err != nil {
		return h, fromStatus(err)
	}
	h, err = types.HashFromBytes(resp.GetValue())
	if err != nil {
		return h, fmt.Errorf("remote returned malformed hash: %w", err)
	}
	return h, nil
}

// Abort 取消流上下文，服务端看到 Canceled 后丢弃已接收的数据
func (w *inserter) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.cancel()
	return nil
}

// fromStatus 把 gRPC 状态码映射回存储层的哨兵错误
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", storage.ErrNotFound, st.Message())
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", storage.ErrInserterClosed, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, st.Message())
	default:
		return fmt.Errorf("remote blob store: %w", err)
	}
}
