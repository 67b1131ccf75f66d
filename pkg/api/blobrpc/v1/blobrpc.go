// Package blobrpc 定义 dagao.v1.BlobStore gRPC 服务
//
// 消息全部使用 protobuf 内置的 wrapper 类型，不需要额外的 .proto 代码生成：
//
//	rpc Has(BytesValue) returns (BoolValue);            // hash -> exists
//	rpc Read(BytesValue) returns (stream BytesValue);   // hash -> content chunks
//	rpc Write(stream BytesValue) returns (BytesValue);  // content chunks -> hash
package blobrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "dagao.v1.BlobStore"

	HasMethod   = "/" + ServiceName + "/Has"
	ReadMethod  = "/" + ServiceName + "/Read"
	WriteMethod = "/" + ServiceName + "/Write"
)

// BlobStoreServer 是服务端需要实现的接口
type BlobStoreServer interface {
	Has(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error)
	Read(*wrapperspb.BytesValue, grpc.ServerStreamingServer[wrapperspb.BytesValue]) error
	Write(grpc.ClientStreamingServer[wrapperspb.BytesValue, wrapperspb.BytesValue]) error
}

func RegisterBlobStoreServer(s grpc.ServiceRegistrar, srv BlobStoreServer) {
	s.RegisterService(&BlobStoreServiceDesc, srv)
}

var BlobStoreServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BlobStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Has", Handler: hasHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Read", Handler: readHandler, ServerStreams: true},
		{StreamName: "Write", Handler: writeHandler, ClientStreams: true},
	},
	Metadata: "dagao/v1/blobstore.proto",
}

func hasHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BlobStoreServer).Has(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: HasMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BlobStoreServer).Has(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func readHandler(srv any, stream grpc.ServerStream) error {
	in := new(wrapperspb.BytesValue)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(BlobStoreServer).Read(in, &grpc.GenericServerStream[wrapperspb.BytesValue, wrapperspb.BytesValue]{ServerStream: stream})
}

func writeHandler(srv any, stream grpc.ServerStream) error {
	return srv.(BlobStoreServer).Write(&grpc.GenericServerStream[wrapperspb.BytesValue, wrapperspb.BytesValue]{ServerStream: stream})
}

// BlobStoreClient 是客户端存根
type BlobStoreClient struct {
	cc grpc.ClientConnInterface
}

func NewBlobStoreClient(cc grpc.ClientConnInterface) *BlobStoreClient {
	return &BlobStoreClient{cc: cc}
}

func (c *BlobStoreClient) Has(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, HasMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BlobStoreClient) Read(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (grpc.ServerStreamingClient[wrapperspb.BytesValue], error) {
	stream, err := c.cc.NewStream(ctx, &BlobStoreServiceDesc.Streams[0], ReadMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[wrapperspb.BytesValue, wrapperspb.BytesValue]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *BlobStoreClient) Write(ctx context.Context, opts ...grpc.CallOption) (grpc.ClientStreamingClient[wrapperspb.BytesValue, wrapperspb.BytesValue], error) {
	stream, err := c.cc.NewStream(ctx, &BlobStoreServiceDesc.Streams[1], WriteMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[wrapperspb.BytesValue, wrapperspb.BytesValue]{ClientStream: stream}, nil
}
