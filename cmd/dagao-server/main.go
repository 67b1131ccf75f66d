package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	blobrpc "dagao/pkg/api/blobrpc/v1"
	"dagao/pkg/app"
	"dagao/pkg/config"
	"dagao/pkg/server"

	"github.com/spf13/viper"
	"google.golang.org/grpc/reflection"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Config
	cfgFile := flag.String("config", "", "config file (default is ./.dagao/config.yaml)")
	flag.Parse()

	if err := config.Load(*cfgFile); err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	// 2. Init Core Application
	// 服务端自己的 Blob Store 不能是 remote，否则会转发给自己
	if viper.GetString("storage.type") == "remote" {
		slog.Error("dagao-server cannot serve a remote storage backend")
		os.Exit(1)
	}
	ctx := context.Background()
	application, err := app.InitApp(ctx)
	if err != nil {
		slog.Error("failed to initialize app", "err", err)
		os.Exit(1)
	}
	defer application.Close()
	slog.Info("dagao store initialized", "repo", application.RepoPath, "storage", viper.GetString("storage.type"))

	// 3. Setup Network
	addr := viper.GetString("server.addr")
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("failed to listen", "addr", addr, "err", err)
		os.Exit(1)
	}

	// 4. Setup gRPC Server
	grpcServer := server.NewGRPCServer()
	blobrpc.RegisterBlobStoreServer(grpcServer, server.NewBlobService(application.Store.BlobStore()))

	// Enable Reflection for debugging tools (grpcurl)
	reflection.Register(grpcServer)

	// 5. Start Server (Async)
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("grpc server listening", "addr", addr)
		serveErr <- grpcServer.Serve(lis)
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
		grpcServer.GracefulStop()
	case err := <-serveErr:
		slog.Error("failed to serve", "err", err)
		application.Close()
		os.Exit(1)
	}
	slog.Info("server stopped")
}
