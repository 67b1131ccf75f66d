package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"dagao/pkg/storage"
	"dagao/pkg/types"

	"github.com/redis/go-redis/v9"
)

// CachedStore 是一个装饰器，为底层的 storage.BlobStore 添加 Redis 存在性缓存
// 内容寻址的 Blob 一旦存在就不会改变，所以“存在”这个事实可以放心缓存。
type CachedStore struct {
	backend storage.BlobStore // 被装饰的底层存储 (如 S3)
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
}

var _ storage.BlobStore = (*CachedStore)(nil)

type Config struct {
	RedisURL string        // redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 0 表示永不过期
}

// NewCachedStore 解析 URL 并做一次 Fail-fast 连接检查
func NewCachedStore(backend storage.BlobStore, cfg Config) (*CachedStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(backend, client, cfg.TTL), nil
}

// NewWithClient 使用现成的 Redis 客户端，不做连接检查
func NewWithClient(backend storage.BlobStore, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		backend: backend,
		client:  client,
		ttl:     ttl,
		logger:  slog.Default().With(slog.String("component", "blob-cache")),
	}
}

func (s *CachedStore) Close() error { return s.client.Close() }

// cacheKey 生成 Redis Key，添加前缀防止冲突
func (s *CachedStore) cacheKey(hash types.Hash) string {
	return "dagao:blob:" + hash.String()
}

// Has 优先查 Redis
func (s *CachedStore) Has(ctx context.Context, hash types.Hash) (bool, error) {
	key := s.cacheKey(hash)

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		// 缓存故障降级：Redis 不可用时退化为无缓存模式
		s.logger.Warn("redis exists failed, falling back to backend",
			slog.String("hash", hash.String()), slog.Any("err", err))
	} else if val > 0 {
		return true, nil
	}

	found, err := s.backend.Has(ctx, hash)
	if err != nil {
		return false, err
	}

	// 只缓存正结果：不存在的内容随时可能被写入
	if found {
		s.remember(ctx, hash)
	}
	return found, nil
}

// OpenReader 透传，不缓存 Blob 数据本身
func (s *CachedStore) OpenReader(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	return s.backend.OpenReader(ctx, hash)
}

func (s *CachedStore) OpenInserter(ctx context.Context) (storage.Inserter, error) {
	ins, err := s.backend.OpenInserter(ctx)
	if err != nil {
		return nil, err
	}
	return &cachingInserter{Inserter: ins, store: s}, nil
}

// remember 写入缓存，失败不影响主流程
func (s *CachedStore) remember(ctx context.Context, hash types.Hash) {
	if err := s.client.Set(ctx, s.cacheKey(hash), "1", s.ttl).Err(); err != nil {
		s.logger.Debug("redis set failed", slog.String("hash", hash.String()), slog.Any("err", err))
	}
}

// cachingInserter 只有底层提交成功之后才写 Redis
type cachingInserter struct {
	storage.Inserter
	store *CachedStore
}

func (i *cachingInserter) Commit(ctx context.Context) (types.Hash, error) {
	h, err := i.Inserter.Commit(ctx)
	if err != nil {
		return h, err
	}
	i.store.remember(ctx, h)
	return h, nil
}
