// API Gatewayサービスのエントリポイント。
// 認証リクエストを認証サービスへ転送し、下流サービスのヘルスを集約する。
// 外部からアクセス可能な唯一のサービスであり、セキュリティの境界線となる。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nao1215/authgate/internal/config"
	"github.com/nao1215/authgate/internal/gateway"
	"github.com/nao1215/authgate/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Gatewayサービスの起動に失敗: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.LoadGateway()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := gateway.NewServer(cfg, logger)

	logger.Info("Gatewayサービスを起動します",
		zap.String("addr", cfg.Addr()),
		zap.String("auth_service_url", cfg.AuthServiceURL),
		zap.Duration("auth_service_timeout", cfg.AuthServiceTimeout()),
	)
	if err := server.Run(ctx); err != nil {
		return err
	}
	logger.Info("Gatewayサービスを停止しました")
	return nil
}
