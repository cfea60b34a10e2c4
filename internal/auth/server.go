package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nao1215/authgate/internal/config"
	"github.com/nao1215/authgate/pkg/middleware"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 10 * time.Second

// Server は認証サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// addr はサーバーのリッスンアドレス。
	addr string
	// store はユーザーストア。
	store *Store
	// credentials は資格情報の照合を行う。
	credentials *CredentialValidator
	// tokens はトークンの発行と検証を行う。
	tokens *TokenIssuer
	// validate はリクエスト入力のバリデーションを行う。
	validate *validator.Validate
	// logger は構造化ロガー。
	logger *zap.Logger
}

// NewServer は新しい認証サーバーを生成する。
// SQLiteデータベースを開き、スキーマ作成とデモ用ユーザーの投入を行う。
func NewServer(ctx context.Context, cfg config.Auth, logger *zap.Logger) (*Server, error) {
	store, err := OpenStore(ctx, FileDSN(cfg.DBFile), logger)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	if cfg.UsesDevSecret() {
		logger.Warn("JWT_SECRETが未設定のため開発用の署名鍵を使用します。外部公開する環境では必ず設定してください")
	}

	return newServer(cfg, store, NewTokenIssuer(cfg.Secret()), logger), nil
}

// newServer は依存コンポーネントからサーバーを組み立てる。
func newServer(cfg config.Auth, store *Store, tokens *TokenIssuer, logger *zap.Logger) *Server {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecureHeaders(cfg.IsDevelopment()))

	s := &Server{
		router:      router,
		addr:        cfg.Addr(),
		store:       store,
		credentials: NewCredentialValidator(store, logger),
		tokens:      tokens,
		validate:    validator.New(),
		logger:      logger,
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

// Handler はルーティング済みのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close はデータベース接続を閉じる。
func (s *Server) Close() error {
	return s.store.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleRoot())
	s.router.POST("/login", s.handleLogin())
	s.router.POST("/validate", middleware.BearerAuth(), s.handleValidate())
	s.router.GET("/health", s.handleHealth())
	// 開発用。認可チェックは行わない
	s.router.GET("/users", s.handleListUsers())
}

// loginCredentials はHTTP Basic認証から取り出した資格情報。
type loginCredentials struct {
	// Username はログインIDとして使うメールアドレス。
	Username string `validate:"required"`
	// Password はパスワード。
	Password string `validate:"required"`
}

// validateResponse はトークン検証結果のJSONレスポンス構造。
type validateResponse struct {
	// Username はトークンに含まれるユーザー名。
	Username string `json:"username"`
	// Exp は有効期限（UNIX秒）。
	Exp int64 `json:"exp"`
	// Iat は発行日時（UNIX秒）。
	Iat int64 `json:"iat"`
}

// createdAtLayout はcreated_atの出力書式。SQLiteのCURRENT_TIMESTAMPと同じ形式（UTC）。
const createdAtLayout = "2006-01-02 15:04:05"

// userResponse はユーザー一覧の1件分のJSONレスポンス構造。パスワードは含めない。
type userResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// handleRoot はサービス情報を返すハンドラを返す。
func (s *Server) handleRoot() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":   "Azure Auth Microservice",
			"version":   "1.0.0",
			"database":  "SQLite (local development)",
			"status":    "running",
			"endpoints": "/login, /validate, /health, /users",
		})
	}
}

// handleLogin はHTTP Basic認証の資格情報を照合してトークンを発行するハンドラを返す。
// ユーザーが存在しない場合とパスワードが異なる場合は同じ401レスポンスを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", "Basic")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Basic認証の資格情報が必要です"})
			return
		}

		creds := loginCredentials{Username: username, Password: password}
		if err := s.validate.Struct(creds); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ユーザー名とパスワードは必須です"})
			return
		}

		valid, err := s.credentials.Validate(c.Request.Context(), creds.Username, creds.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "認証サービスでエラーが発生しました"})
			return
		}
		if !valid {
			c.Header("WWW-Authenticate", "Basic")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証情報が正しくありません"})
			return
		}

		resp, err := s.tokens.Issue(creds.Username)
		if err != nil {
			s.logger.Error("トークン発行に失敗しました", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークンの発行に失敗しました"})
			return
		}

		s.logger.Info("ユーザーを認証しました", zap.String("username", creds.Username))
		c.JSON(http.StatusOK, resp)
	}
}

// handleValidate はBearerトークンを検証してクレームを返すハンドラを返す。
func (s *Server) handleValidate() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := s.tokens.Verify(middleware.GetBearerToken(c))
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": ErrTokenExpired.Error()})
				return
			}
			// 検証で判明した無効理由はそのまま返す
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, validateResponse{
			Username: claims.Username,
			Exp:      claims.ExpiresAt.Unix(),
			Iat:      claims.IssuedAt.Unix(),
		})
	}
}

// handleHealth はデータベースの疎通を確認するハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			s.logger.Error("ヘルスチェックに失敗しました", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "サービスが利用できません"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "connected"})
	}
}

// handleListUsers は全ユーザーをパスワード抜きで返すハンドラを返す。
func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := s.store.List(c.Request.Context())
		if err != nil {
			s.logger.Error("ユーザー一覧の取得に失敗しました", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "データベース操作に失敗しました"})
			return
		}

		resp := make([]userResponse, 0, len(users))
		for _, u := range users {
			resp = append(resp, userResponse{
				ID:        u.ID,
				Username:  u.Username,
				Email:     u.Email,
				CreatedAt: u.CreatedAt.Format(createdAtLayout),
			})
		}
		c.JSON(http.StatusOK, gin.H{"users": resp, "count": len(resp)})
	}
}
