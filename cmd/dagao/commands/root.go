package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"dagao/pkg/app"
	"dagao/pkg/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool

	// 全局应用实例，供子命令使用
	DG *app.App
)

var rootCmd = &cobra.Command{
	Use:          "dagao",
	Short:        "dagao: content-addressed Merkle DAG object store",
	SilenceUsage: true,
	// PersistentPreRunE 会在所有子命令执行前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger(cmd)

		// init 命令自己负责创建环境，help 与 completion 不需要仓库
		if cmd.Name() == "init" || cmd.Name() == "help" ||
			(cmd.HasParent() && cmd.Parent().Name() == "completion") {
			return nil
		}

		var err error
		DG, err = app.NewApp(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to open dagao repository: %w\n(Did you run 'dagao init'?)", err)
		}
		return nil
	},
}

// Execute 是入口
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext 执行命令，结束后 (无论成功与否) 释放 App 持有的资源
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if DG != nil {
		err = errors.Join(err, DG.Close())
		DG = nil
	}
	return err
}

func init() {
	// 在初始化时，加载配置
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.dagao/config.yaml or $HOME/.dagao/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")

	// repo.path 既可以在 yaml 里写，也可以用 --repo 覆盖
	rootCmd.PersistentFlags().String("repo", "", "repository directory (default ./.dagao)")
	if err := viper.BindPFlag("repo.path", rootCmd.PersistentFlags().Lookup("repo")); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to bind flag:", err)
		os.Exit(1)
	}
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if err := config.Load(cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, "Config error:", err)
		os.Exit(1)
	}
}

func setupLogger(cmd *cobra.Command) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
}
