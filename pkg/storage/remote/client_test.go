package remote

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"

	blobrpc "dagao/pkg/api/blobrpc/v1"
	"dagao/pkg/server"
	"dagao/pkg/storage"
	"dagao/pkg/storage/memory"
	"dagao/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

// newTestClient 启动一个基于 bufconn 的内存服务端
func newTestClient(t *testing.T) (*Client, *memory.Store) {
	t.Helper()

	backend := memory.New(storage.HashSHA256)
	lis := bufconn.Listen(1 << 20)
	srv := server.NewGRPCServer()
	blobrpc.RegisterBlobStoreServer(srv, server.NewBlobService(backend))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewWithConn(conn), backend
}

func put(t *testing.T, s storage.BlobStore, data []byte) types.Hash {
	t.Helper()
	ctx := context.Background()
	ins, err := s.OpenInserter(ctx)
	require.NoError(t, err)
	_, err = ins.Write(data)
	require.NoError(t, err)
	h, err := ins.Commit(ctx)
	require.NoError(t, err)
	return h
}

func TestRemote_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client, backend := newTestClient(t)

	// 跨越多个 WriteChunkSize 和 ReadChunkSize
	data := bytes.Repeat([]byte("0123456789abcdef"), (WriteChunkSize*2+123)/16)
	h := put(t, client, data)

	// 哈希必须与本地计算一致
	local := memory.New(storage.HashSHA256)
	assert.Equal(t, put(t, local, data), h)
	assert.Equal(t, 1, backend.Len())

	ok, err := client.Has(ctx, h)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := client.OpenReader(ctx, h)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestRemote_EmptyBlob(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	h := put(t, client, nil)
	rc, err := client.OpenReader(ctx, h)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, rc.Close())
}

func TestRemote_NotFound(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	var missing types.Hash
	missing[0] = 0xAB

	ok, err := client.Has(ctx, missing)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = client.OpenReader(ctx, missing)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRemote_AbortDiscards(t *testing.T) {
	ctx := context.Background()
	client, backend := newTestClient(t)

	ins, err := client.OpenInserter(ctx)
	require.NoError(t, err)
	_, err = ins.Write([]byte("never committed"))
	require.NoError(t, err)
	require.NoError(t, ins.Abort())
	require.NoError(t, ins.Abort())

	_, err = ins.Write([]byte("x"))
	assert.ErrorIs(t, err, storage.ErrInserterClosed)
	_, err = ins.Commit(ctx)
	assert.ErrorIs(t, err, storage.ErrInserterClosed)

	assert.Equal(t, 0, backend.Len())
}

func TestRemote_CommitTwice(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	ins, err := client.OpenInserter(ctx)
	require.NoError(t, err)
	_, err = ins.Commit(ctx)
	require.NoError(t, err)
	_, err = ins.Commit(ctx)
	assert.ErrorIs(t, err, storage.ErrInserterClosed)
}
