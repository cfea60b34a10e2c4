// 認証サービスのエントリポイント。
// Basic認証の資格情報をSQLiteのユーザーストアと照合し、署名付きトークンの発行と検証を担当する。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nao1215/authgate/internal/auth"
	"github.com/nao1215/authgate/internal/config"
	"github.com/nao1215/authgate/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "認証サービスの起動に失敗: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .envは無くてもよい
	_ = godotenv.Load()

	cfg, err := config.LoadAuth()
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

	server, err := auth.NewServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer server.Close()

	logger.Info("認証サービスを起動します", zap.String("addr", cfg.Addr()), zap.String("db_file", cfg.DBFile))
	if err := server.Run(ctx); err != nil {
		return err
	}
	logger.Info("認証サービスを停止しました")
	return nil
}
