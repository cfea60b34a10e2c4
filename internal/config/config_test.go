package config

import (
	"os"
	"testing"
	"time"
)

// 環境変数を書き換えるため、このファイルのテストは並列実行しない。

// unsetenv はテスト終了時に元の値へ戻るよう登録した上で環境変数を削除する。
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("環境変数 %s の削除に失敗: %v", key, err)
		}
	}
}

// TestLoadAuth はLoadAuth関数を検証する。
func TestLoadAuth(t *testing.T) {
	t.Run("環境変数が未設定の場合にデフォルト値が使われること", func(t *testing.T) {
		unsetenv(t, "JWT_SECRET", "PORT", "HOST", "ENVIRONMENT", "DB_FILE")

		cfg, err := LoadAuth()
		if err != nil {
			t.Fatalf("LoadAuth()でエラーが発生: %v", err)
		}
		if cfg.Port != "8000" {
			t.Errorf("Port = %q, want %q", cfg.Port, "8000")
		}
		if cfg.Host != "0.0.0.0" {
			t.Errorf("Host = %q, want %q", cfg.Host, "0.0.0.0")
		}
		if cfg.DBFile != "auth_service.db" {
			t.Errorf("DBFile = %q, want %q", cfg.DBFile, "auth_service.db")
		}
		if !cfg.IsDevelopment() {
			t.Error("デフォルトの実行環境はdevelopmentであるべき")
		}
		if !cfg.UsesDevSecret() {
			t.Error("JWT_SECRET未設定時は開発用の署名鍵を使うべき")
		}
		if cfg.Secret() != DevJWTSecret {
			t.Errorf("Secret() = %q, want %q", cfg.Secret(), DevJWTSecret)
		}
		if cfg.Addr() != "0.0.0.0:8000" {
			t.Errorf("Addr() = %q, want %q", cfg.Addr(), "0.0.0.0:8000")
		}
	})

	t.Run("環境変数の値が反映されること", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "prod-secret")
		t.Setenv("PORT", "9000")
		t.Setenv("HOST", "127.0.0.1")
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("DB_FILE", "/tmp/users.db")

		cfg, err := LoadAuth()
		if err != nil {
			t.Fatalf("LoadAuth()でエラーが発生: %v", err)
		}
		if cfg.Secret() != "prod-secret" {
			t.Errorf("Secret() = %q, want %q", cfg.Secret(), "prod-secret")
		}
		if cfg.UsesDevSecret() {
			t.Error("JWT_SECRET設定時に開発用の署名鍵と判定された")
		}
		if cfg.IsDevelopment() {
			t.Error("production環境がdevelopmentと判定された")
		}
		if cfg.Addr() != "127.0.0.1:9000" {
			t.Errorf("Addr() = %q, want %q", cfg.Addr(), "127.0.0.1:9000")
		}
		if cfg.DBFile != "/tmp/users.db" {
			t.Errorf("DBFile = %q, want %q", cfg.DBFile, "/tmp/users.db")
		}
	})
}

// TestLoadGateway はLoadGateway関数を検証する。
func TestLoadGateway(t *testing.T) {
	t.Run("環境変数が未設定の場合にデフォルト値が使われること", func(t *testing.T) {
		unsetenv(t, "PORT", "AUTH_SERVICE_URL", "AUTH_SERVICE_TIMEOUT", "CORS_ALLOWED_ORIGINS")

		cfg, err := LoadGateway()
		if err != nil {
			t.Fatalf("LoadGateway()でエラーが発生: %v", err)
		}
		if cfg.Port != "8080" {
			t.Errorf("Port = %q, want %q", cfg.Port, "8080")
		}
		if cfg.AuthServiceURL != "http://localhost:8000" {
			t.Errorf("AuthServiceURL = %q, want %q", cfg.AuthServiceURL, "http://localhost:8000")
		}
		if cfg.AuthServiceTimeout() != 30*time.Second {
			t.Errorf("AuthServiceTimeout() = %v, want 30s", cfg.AuthServiceTimeout())
		}
		origins := cfg.AllowedOrigins()
		if len(origins) != 1 || origins[0] != "http://localhost:5173" {
			t.Errorf("AllowedOrigins() = %v, want [http://localhost:5173]", origins)
		}
	})

	t.Run("タイムアウトを秒数の整数で指定できること", func(t *testing.T) {
		t.Setenv("AUTH_SERVICE_TIMEOUT", "5")
		t.Setenv("AUTH_SERVICE_URL", "http://auth:8000")

		cfg, err := LoadGateway()
		if err != nil {
			t.Fatalf("LoadGateway()でエラーが発生: %v", err)
		}
		if cfg.AuthServiceTimeout() != 5*time.Second {
			t.Errorf("AuthServiceTimeout() = %v, want 5s", cfg.AuthServiceTimeout())
		}
		if cfg.AuthServiceURL != "http://auth:8000" {
			t.Errorf("AuthServiceURL = %q, want %q", cfg.AuthServiceURL, "http://auth:8000")
		}
	})

	t.Run("数値でないタイムアウトはエラーになること", func(t *testing.T) {
		t.Setenv("AUTH_SERVICE_TIMEOUT", "thirty")

		if _, err := LoadGateway(); err == nil {
			t.Fatal("LoadGateway()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("0以下のタイムアウトはエラーになること", func(t *testing.T) {
		t.Setenv("AUTH_SERVICE_TIMEOUT", "0")

		if _, err := LoadGateway(); err == nil {
			t.Fatal("LoadGateway()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("カンマ区切りのオリジンが空白を除いて分割されること", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example.com, https://b.example.com ,")

		cfg, err := LoadGateway()
		if err != nil {
			t.Fatalf("LoadGateway()でエラーが発生: %v", err)
		}
		origins := cfg.AllowedOrigins()
		if len(origins) != 2 {
			t.Fatalf("len(AllowedOrigins()) = %d, want 2", len(origins))
		}
		if origins[0] != "http://a.example.com" || origins[1] != "https://b.example.com" {
			t.Errorf("AllowedOrigins() = %v", origins)
		}
	})
}
