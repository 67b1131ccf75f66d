package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RepoDirName 是默认仓库目录名
const RepoDirName = ".dagao"

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
func Load(cfgFile string) error {
	// 1. 设置默认值 (Defaults)
	SetDefaults()

	// 2. 配置搜索路径
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 搜索顺序：当前目录 -> ./.dagao -> ~/.dagao
		viper.AddConfigPath(".")
		viper.AddConfigPath(RepoDirName)
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, RepoDirName))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config") // 找 config.yaml
	}

	// 3. 读取环境变量 (DAGAO_STORAGE_TYPE, DAGAO_S3_BUCKET 等)
	viper.SetEnvPrefix("DAGAO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 4. 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		// 没找到配置文件不算错，可能全部来自默认值和环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("fatal error config file: %w", err)
		}
		slog.Debug("no config file found, using defaults and env vars")
	} else {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	}

	return nil
}

func SetDefaults() {
	wd, _ := os.Getwd()
	viper.SetDefault("repo.path", filepath.Join(wd, RepoDirName))

	// 存储默认值
	viper.SetDefault("storage.type", "disk")
	viper.SetDefault("storage.hash", "sha256")
	viper.SetDefault("storage.compression", "none")

	viper.SetDefault("s3.region", "us-east-1")

	viper.SetDefault("cache.ttl", 24*time.Hour)

	// 目录库默认值 (index/catalog.db)
	viper.SetDefault("catalog.driver", "sqlite")

	viper.SetDefault("server.addr", ":8080")
}
