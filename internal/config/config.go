// Package config は認証サービスとGatewayサービスの設定を環境変数から読み込む。
//
// 設定はプロセス起動時に一度だけ読み込み、各コンポーネントのコンストラクタに値として渡す。
// リクエスト処理中に環境変数を参照することはない。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// DevJWTSecret はJWT_SECRETが未設定の場合に使用する開発用の署名鍵。
// 外部から到達可能な環境では絶対に使用してはならない。
const DevJWTSecret = "your-super-secret-jwt-key-change-in-production"

// Server は両サービスに共通するサーバー設定。
type Server struct {
	// Host はリッスンするホスト。
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	// Environment は実行環境（development / production など）。
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	// LogLevel はログレベル。
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// IsDevelopment は開発環境で実行されている場合にtrueを返す。
func (s Server) IsDevelopment() bool {
	return s.Environment == "development"
}

// Auth は認証サービスの設定。
type Auth struct {
	Server
	// Port はリッスンポート。
	Port string `env:"PORT" envDefault:"8000"`
	// JWTSecret はトークン署名用の共有秘密鍵。
	JWTSecret string `env:"JWT_SECRET"`
	// DBFile はユーザーストアのSQLiteファイルパス。
	DBFile string `env:"DB_FILE" envDefault:"auth_service.db"`
}

// UsesDevSecret はJWT_SECRETが未設定で開発用の署名鍵を使っている場合にtrueを返す。
func (a Auth) UsesDevSecret() bool {
	return a.JWTSecret == "" || a.JWTSecret == DevJWTSecret
}

// Secret は実際に使用する署名鍵を返す。
func (a Auth) Secret() string {
	if a.JWTSecret == "" {
		return DevJWTSecret
	}
	return a.JWTSecret
}

// Addr はリッスンアドレスを返す。
func (a Auth) Addr() string {
	return a.Host + ":" + a.Port
}

// Gateway はGatewayサービスの設定。
type Gateway struct {
	Server
	// Port はリッスンポート。
	Port string `env:"PORT" envDefault:"8080"`
	// AuthServiceURL は認証サービスのベースURL。
	AuthServiceURL string `env:"AUTH_SERVICE_URL" envDefault:"http://localhost:8000"`
	// AuthServiceTimeoutSeconds は認証サービス呼び出しのタイムアウト（秒）。
	AuthServiceTimeoutSeconds int `env:"AUTH_SERVICE_TIMEOUT" envDefault:"30"`
	// CORSAllowedOrigins はカンマ区切りの許可オリジン。
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173"`
}

// AuthServiceTimeout は認証サービス呼び出しのタイムアウトを返す。
func (g Gateway) AuthServiceTimeout() time.Duration {
	return time.Duration(g.AuthServiceTimeoutSeconds) * time.Second
}

// Addr はリッスンアドレスを返す。
func (g Gateway) Addr() string {
	return g.Host + ":" + g.Port
}

// AllowedOrigins はCORSの許可オリジンをスライスで返す。
func (g Gateway) AllowedOrigins() []string {
	if g.CORSAllowedOrigins == "" {
		return nil
	}
	origins := strings.Split(g.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))
	for _, o := range origins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// LoadAuth は環境変数から認証サービスの設定を読み込む。
func LoadAuth() (Auth, error) {
	var cfg Auth
	if err := env.Parse(&cfg); err != nil {
		return Auth{}, fmt.Errorf("認証サービス設定の読み込みに失敗: %w", err)
	}
	return cfg, nil
}

// LoadGateway は環境変数からGatewayサービスの設定を読み込む。
func LoadGateway() (Gateway, error) {
	var cfg Gateway
	if err := env.Parse(&cfg); err != nil {
		return Gateway{}, fmt.Errorf("Gateway設定の読み込みに失敗: %w", err)
	}
	if cfg.AuthServiceTimeoutSeconds <= 0 {
		return Gateway{}, fmt.Errorf("AUTH_SERVICE_TIMEOUT は正の整数である必要があります: %d", cfg.AuthServiceTimeoutSeconds)
	}
	return cfg, nil
}
