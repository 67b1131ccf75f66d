package s3

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"dagao/pkg/storage"
	"dagao/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// API 是 Adapter 用到的 S3 客户端方法子集，方便测试注入
type API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Adapter 实现了 storage.BlobStore 接口，数据存放在 S3 / MinIO
type Adapter struct {
	client API
	bucket string
	prefix string
	algo   storage.HashAlgo
	// spoolDir 是 Commit 之前本地缓冲文件的目录，空字符串表示系统临时目录
	spoolDir string
}

var _ storage.BlobStore = (*Adapter)(nil)

// Config 用于初始化 Adapter
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string // 可选，所有 Key 的前缀，如 "dagao/"
	AccessKeyID     string
	SecretAccessKey string
	Hash            storage.HashAlgo
	SpoolDir        string
}

// NewAdapter 初始化 S3 客户端 (AWS SDK v2)
func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	// 1. 加载基础配置 (仅包含 Region 和 Credentials)
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	// 2. 创建 S3 客户端时注入 Endpoint
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// MinIO 必须强制使用 Path Style: http://host:9000/bucket/key
		o.UsePathStyle = true
	})

	return NewWithClient(ctx, client, cfg)
}

// NewWithClient 使用现成的客户端，并确保 Bucket 存在
func NewWithClient(ctx context.Context, client API, cfg Config) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket not set")
	}
	algo, err := storage.ParseHashAlgo(string(cfg.Hash))
	if err != nil {
		return nil, err
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		// Head 失败，尝试创建；并发创建时另一方可能已经建好了
		if _, cerr := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(cfg.Bucket)}); cerr != nil {
			var owned *s3types.BucketAlreadyOwnedByYou
			if !errors.As(cerr, &owned) {
				return nil, fmt.Errorf("failed to ensure bucket exists: %w", cerr)
			}
		}
	}

	return &Adapter{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		algo:     algo,
		spoolDir: cfg.SpoolDir,
	}, nil
}

// objectKey 将 Hash 转换为 S3 Key (Sharding)
// Logic: "aabbcc..." -> prefix + "aa/bbcc..."
func (s *Adapter) objectKey(hash types.Hash) string {
	hex := hash.String()
	return s.prefix + hex[:2] + "/" + hex[2:]
}

func (s *Adapter) OpenInserter(ctx context.Context) (storage.Inserter, error) {
	// S3 PutObject 需要已知长度的 Body，先在本地缓冲
	f, err := os.CreateTemp(s.spoolDir, "dagao-s3-*")
	if err != nil {
		return nil, fmt.Errorf("failed to open s3 spool file: %w", err)
	}
	h := s.algo.New()
	return &inserter{
		store:  s,
		spool:  f,
		hasher: h,
		w:      io.MultiWriter(h, f),
	}, nil
}

// OpenReader 下载对象
func (s *Adapter) OpenReader(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(hash)),
	})
	if err != nil {
		// 将 AWS 的 NoSuchKey 映射为我们自己的 ErrNotFound
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	return resp.Body, nil
}

// Has 检查对象是否存在 (HEAD 请求比 GET 便宜)
func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(hash)),
	})
	if err == nil {
		return true, nil
	}

	var notFound *s3types.NotFound
	var noKey *s3types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return false, nil
	}
	// 兼容性：某些 S3 实现只返回 generic 404
	if strings.Contains(err.Error(), "StatusCode: 404") {
		return false, nil
	}
	return false, fmt.Errorf("s3 head failed: %w", err)
}

// -----------------------------------------------------------------------------
// inserter
// -----------------------------------------------------------------------------

type inserter struct {
	store  *Adapter
	spool  *os.File
	hasher hash.Hash
	w      io.Writer
	size   int64
	closed bool
}

func (i *inserter) Write(p []byte) (int, error) {
	if i.closed {
		return 0, storage.ErrInserterClosed
	}
	n, err := i.w.Write(p)
	i.size += int64(n)
	return n, err
}

func (i *inserter) Commit(ctx context.Context) (types.Hash, error) {
	if i.closed {
		return types.Hash{}, storage.ErrInserterClosed
	}
	i.closed = true
	defer i.cleanup()

	h, err := types.HashFromBytes(i.hasher.Sum(nil))
	if err != nil {
		return types.Hash{}, err
	}

	// 1. 幂等性检查 (去重)
	exists, err := i.store.Has(ctx, h)
	if err != nil {
		return types.Hash{}, fmt.Errorf("s3 put existence check failed: %w", err)
	}
	if exists {
		return h, nil
	}

	// 2. 从头上传缓冲文件
	if _, err := i.spool.Seek(0, io.SeekStart); err != nil {
		return types.Hash{}, err
	}
	_, err = i.store.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(i.store.bucket),
		Key:           aws.String(i.store.objectKey(h)),
		Body:          i.spool,
		ContentLength: aws.Int64(i.size),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return types.Hash{}, fmt.Errorf("s3 put failed: %w", err)
	}
	return h, nil
}

func (i *inserter) Abort() error {
	if i.closed {
		return nil
	}
	i.closed = true
	return i.cleanup()
}

func (i *inserter) cleanup() error {
	i.spool.Close()
	return os.Remove(i.spool.Name())
}
