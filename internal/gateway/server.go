package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/authgate/internal/config"
	"github.com/nao1215/authgate/pkg/httpclient"
	"github.com/nao1215/authgate/pkg/middleware"
)

const (
	// Version はレスポンスヘッダーで返すGatewayのバージョン。
	Version = "1.0.0"
	// authServiceName はヘルスチェック結果に使う認証サービスの名前。
	authServiceName = "auth-service"
	// shutdownTimeout はグレースフルシャットダウンの待ち時間。
	shutdownTimeout = 10 * time.Second
)

// Server はAPI GatewayサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// addr はサーバーのリッスンアドレス。
	addr string
	// forwarder は認証サービスへの転送を行う。
	forwarder *Forwarder
	// health は下流サービスのヘルスを集約する。
	health *HealthAggregator
	// logger は構造化ロガー。
	logger *zap.Logger
}

// NewServer は新しいGatewayサーバーを生成する。
func NewServer(cfg config.Gateway, logger *zap.Logger) *Server {
	return newServer(cfg, httpclient.New(cfg.AuthServiceURL, cfg.AuthServiceTimeout()), logger)
}

// newServer は認証サービス向けクライアントからサーバーを組み立てる。
func newServer(cfg config.Gateway, client *httpclient.Client, logger *zap.Logger) *Server {
	health := NewHealthAggregator(logger)
	health.Register(authServiceName, cfg.AuthServiceURL)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	// 処理時間は他のミドルウェアの処理も含めて計測する
	router.Use(middleware.ProcessTime(Version))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins()))
	router.Use(middleware.SecureHeaders(cfg.IsDevelopment()))

	s := &Server{
		router:    router,
		addr:      cfg.Addr(),
		forwarder: NewForwarder(client, logger),
		health:    health,
		logger:    logger,
	}
	s.setupRoutes()
	return s
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルにシャットダウンする。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("シャットダウンに失敗: %w", err)
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// 認証（認証サービスへ転送）
	s.router.POST("/login", s.handleForward("/login"))
	s.router.POST("/validate", s.handleForward("/validate"))

	auth := s.router.Group("/auth")
	{
		auth.GET("/health", s.handleForward("/health"))
		// 開発用
		auth.GET("/users", s.handleForward("/users"))
	}

	s.router.GET("/health", s.handleHealth())
	s.router.GET("/", s.handleRoot())
}

// handleForward は認証サービスのpathへリクエストを転送するハンドラを返す。
// 下流のステータスコードとボディはそのまま返す。
func (s *Server) handleForward(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := s.forwarder.Forward(c.Request.Context(), c.Request.Method, path, c.Request)
		if err != nil {
			status, msg := forwardErrorStatus(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		s.relay(c, resp)
	}
}

// relay は下流のレスポンスをクライアントへ中継する。
// JSONはそのまま、それ以外は本文をJSON文字列として返す。
func (s *Server) relay(c *gin.Context, resp *httpclient.Response) {
	if !resp.IsJSON() {
		c.JSON(resp.StatusCode, string(resp.Body))
		return
	}
	if !json.Valid(resp.Body) {
		s.logger.Error("認証サービスが不正なJSONを返しました", zap.Int("status", resp.StatusCode))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gatewayで内部エラーが発生しました"})
		return
	}
	c.Data(resp.StatusCode, "application/json", resp.Body)
}

// forwardErrorStatus は転送エラーをHTTPステータスコードとメッセージに変換する。
func forwardErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, httpclient.ErrTimeout):
		return http.StatusGatewayTimeout, "認証サービスがタイムアウトしました"
	case errors.Is(err, httpclient.ErrUnavailable):
		return http.StatusServiceUnavailable, "認証サービスに接続できません"
	case errors.Is(err, ErrMethodNotSupported):
		return http.StatusMethodNotAllowed, err.Error()
	default:
		return http.StatusInternalServerError, "Gatewayで内部エラーが発生しました"
	}
}

// handleHealth は下流サービスのヘルスを集約して返すハンドラを返す。
// 下流の状態にかかわらず200を返し、statusで全体の状態を示す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.health.Check(c.Request.Context()))
	}
}

// handleRoot はGatewayの情報を返すハンドラを返す。
func (s *Server) handleRoot() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "Azure API Gateway",
			"version":     Version,
			"description": "Gateway for microservices routing",
			"routes": gin.H{
				"authentication": []string{"/login", "/validate"},
				"health":         []string{"/health", "/auth/health"},
				"development":    []string{"/auth/users"},
			},
			"downstream_services": []string{authServiceName},
		})
	}
}
