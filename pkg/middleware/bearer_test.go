package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestBearerAuth はBearerAuthミドルウェアを検証する。
func TestBearerAuth(t *testing.T) {
	t.Parallel()

	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(BearerAuth())
		router.GET("/protected", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"token": GetBearerToken(c)})
		})
		return router
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantToken  string
	}{
		{name: "正しい形式のトークンが取り出されること", header: "Bearer abc.def.ghi", wantStatus: http.StatusOK, wantToken: "abc.def.ghi"},
		{name: "スキーム名の大文字小文字を区別しないこと", header: "bearer abc.def.ghi", wantStatus: http.StatusOK, wantToken: "abc.def.ghi"},
		{name: "ヘッダーが無い場合は401", header: "", wantStatus: http.StatusUnauthorized},
		{name: "Basicスキームは401", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized},
		{name: "トークンが空の場合は401", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "スキームのみの場合は401", header: "Bearer", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newRouter().ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("ステータスコード = %d, want %d", w.Code, tt.wantStatus)
			}

			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("レスポンスボディのパースに失敗: %v", err)
			}
			if tt.wantStatus == http.StatusOK {
				if body["token"] != tt.wantToken {
					t.Errorf("token = %q, want %q", body["token"], tt.wantToken)
				}
			} else if body["error"] == "" {
				t.Error("エラーメッセージが含まれていない")
			}
		})
	}
}

// TestGetBearerToken はBearerAuthが適用されていない場合の挙動を検証する。
func TestGetBearerToken(t *testing.T) {
	t.Parallel()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := GetBearerToken(c); got != "" {
		t.Errorf("GetBearerToken() = %q, want empty string", got)
	}
}
