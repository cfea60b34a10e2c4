package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestSecureHeaders はSecureHeadersミドルウェアを検証する。
func TestSecureHeaders(t *testing.T) {
	t.Parallel()

	for _, dev := range []bool{true, false} {
		t.Run("セキュリティヘッダーが付与されること", func(t *testing.T) {
			t.Parallel()

			router := gin.New()
			router.Use(SecureHeaders(dev))
			router.GET("/", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			if w.Code != http.StatusOK {
				t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
			}
			if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
				t.Errorf("X-Frame-Options = %q, want %q", got, "DENY")
			}
			if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
			}
			if got := w.Header().Get("Referrer-Policy"); got != "strict-origin-when-cross-origin" {
				t.Errorf("Referrer-Policy = %q, want %q", got, "strict-origin-when-cross-origin")
			}
		})
	}
}
