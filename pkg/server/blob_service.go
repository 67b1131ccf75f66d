package server

import (
	"context"
	"errors"
	"io"

	blobrpc "dagao/pkg/api/blobrpc/v1"
	"dagao/pkg/storage"
	"dagao/pkg/types"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ReadChunkSize 是 Read 流中单个消息的最大字节数
const ReadChunkSize = 256 * 1024

// BlobService 把任意 storage.BlobStore 暴露为 dagao.v1.BlobStore 服务
type BlobService struct {
	store storage.BlobStore
}

var _ blobrpc.BlobStoreServer = (*BlobService)(nil)

func NewBlobService(store storage.BlobStore) *BlobService {
	return &BlobService{store: store}
}

func (s *BlobService) Has(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	h, err := parseHash(req)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.Has(ctx, h)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bool(ok), nil
}

func (s *BlobService) Read(req *wrapperspb.BytesValue, stream grpc.ServerStreamingServer[wrapperspb.BytesValue]) error {
	h, err := parseHash(req)
	if err != nil {
		return err
	}
	rc, err := s.store.OpenReader(stream.Context(), h)
	if err != nil {
		return toStatus(err)
	}
	defer rc.Close()

	buf := make([]byte, ReadChunkSize)
	if _, err := io.CopyBuffer(blobrpc.NewStreamWriter(stream, ReadChunkSize), rc, buf); err != nil {
		return toStatus(err)
	}
	return nil
}

// Write 接收客户端的内容流，流正常结束时提交
// 客户端中途取消时丢弃已写入的数据。
func (s *BlobService) Write(stream grpc.ClientStreamingServer[wrapperspb.BytesValue, wrapperspb.BytesValue]) error {
	ctx := stream.Context()
	ins, err := s.store.OpenInserter(ctx)
	if err != nil {
		return toStatus(err)
	}

	if _, err := io.Copy(ins, blobrpc.NewStreamReader(stream)); err != nil {
		ins.Abort()
		return toStatus(err)
	}

	h, err := ins.Commit(ctx)
	if err != nil {
		return toStatus(err)
	}
	return stream.SendAndClose(wrapperspb.Bytes(h[:]))
}

func parseHash(req *wrapperspb.BytesValue) (types.Hash, error) {
	h, err := types.HashFromBytes(req.GetValue())
	if err != nil {
		return h, status.Error(codes.InvalidArgument, err.Error())
	}
	return h, nil
}

// toStatus 把存储层的哨兵错误映射为 gRPC 状态码
func toStatus(err error) error {
	// 已经是 gRPC 状态 (例如流被客户端取消) 则原样返回
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, storage.ErrInserterClosed):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
