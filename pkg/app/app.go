// pkg/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"dagao/pkg/dagstore"
	"dagao/pkg/iox"
	"dagao/pkg/meta"
	"dagao/pkg/storage"
	"dagao/pkg/storage/cache"
	"dagao/pkg/storage/disk"
	"dagao/pkg/storage/memory"
	"dagao/pkg/storage/remote"
	"dagao/pkg/storage/s3"

	"github.com/spf13/viper"
)

// App 是整个应用程序的依赖容器 (Dependency Container)
// 它持有所有 "单例" 服务，CLI 命令和 Server 都从这里取依赖。
type App struct {
	RepoPath string
	Store    *dagstore.Store
	Catalog  *meta.Repository // catalog.driver = none 时为 nil

	closers []func() error
}

// NewApp 打开已经初始化过的仓库
// 它遵循 Viper 的配置，但不知道具体的 CLI 命令。
func NewApp(ctx context.Context) (*App, error) {
	return build(ctx, false)
}

// InitApp 幂等地创建仓库 (init 命令使用)
func InitApp(ctx context.Context) (*App, error) {
	return build(ctx, true)
}

func build(ctx context.Context, create bool) (_ *App, err error) {
	// 1. 获取仓库根路径 (Single Source of Truth)
	repoPath := viper.GetString("repo.path")
	if repoPath == "" {
		return nil, errors.New("repo path not set")
	}
	a := &App{RepoPath: repoPath}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if create {
		if err := iox.EnsureDir(repoPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create repo dir: %w", err)
		}
	}

	// 2. 初始化存储层 (Dependency Injection)
	blobs, err := a.initBlobStore(ctx, repoPath, create)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	// 3. 可选的 Redis 存在性缓存
	if url := viper.GetString("cache.redis_url"); url != "" {
		cached, err := cache.NewCachedStore(blobs, cache.Config{
			RedisURL: url,
			TTL:      viper.GetDuration("cache.ttl"),
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, cached.Close)
		blobs = cached
	}

	// 4. 绑定索引目录
	indexDir := filepath.Join(repoPath, dagstore.IndexDirName)
	if create {
		a.Store, err = dagstore.Create(indexDir, blobs)
	} else {
		a.Store, err = dagstore.Open(indexDir, blobs)
	}
	if err != nil {
		return nil, err
	}

	// 5. 目录库
	catalog, err := a.initCatalog(ctx, indexDir)
	if err != nil {
		return nil, err
	}
	a.Catalog = catalog
	return a, nil
}

// initBlobStore 根据 storage.type 选择 Blob Store 实现
func (a *App) initBlobStore(ctx context.Context, repoPath string, create bool) (storage.BlobStore, error) {
	storeType := viper.GetString("storage.type")

	switch storeType {
	case "", "disk":
		root := filepath.Join(repoPath, dagstore.StoreDirName)
		if !create {
			return disk.Open(root)
		}
		hash, err := storage.ParseHashAlgo(viper.GetString("storage.hash"))
		if err != nil {
			return nil, err
		}
		comp, err := disk.ParseCompression(viper.GetString("storage.compression"))
		if err != nil {
			return nil, err
		}
		return disk.Create(root, disk.Options{Hash: hash, Compression: comp})

	case "s3":
		hash, err := storage.ParseHashAlgo(viper.GetString("storage.hash"))
		if err != nil {
			return nil, err
		}
		cfg := s3.Config{
			Endpoint:        viper.GetString("s3.endpoint"),
			Region:          viper.GetString("s3.region"),
			Bucket:          viper.GetString("s3.bucket"),
			Prefix:          viper.GetString("s3.prefix"),
			AccessKeyID:     viper.GetString("s3.access_key"),
			SecretAccessKey: viper.GetString("s3.secret_key"),
			Hash:            hash,
		}
		if cfg.Bucket == "" {
			return nil, errors.New("s3 bucket is required (set s3.bucket)")
		}
		return s3.NewAdapter(ctx, cfg)

	case "remote":
		addr := viper.GetString("remote.addr")
		if addr == "" {
			return nil, errors.New("remote address is required (set remote.addr)")
		}
		client, err := remote.Dial(addr)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return client, nil

	case "memory":
		hash, err := storage.ParseHashAlgo(viper.GetString("storage.hash"))
		if err != nil {
			return nil, err
		}
		return memory.New(hash), nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storeType)
	}
}

func (a *App) initCatalog(ctx context.Context, indexDir string) (*meta.Repository, error) {
	driver := viper.GetString("catalog.driver")
	if driver == "none" {
		return nil, nil
	}
	db, err := meta.NewDB(ctx, meta.Config{
		Driver:   driver,
		DSN:      viper.GetString("catalog.dsn"),
		IndexDir: indexDir,
		Debug:    viper.GetBool("catalog.debug"),
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	return meta.NewRepository(db), nil
}

// Close 按创建的逆序释放资源
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
