package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// SecureHeaders はunrolled/secureでセキュリティ関連のレスポンスヘッダーを付与するGinミドルウェアを返す。
// TLS終端は上位のロードバランサーに任せるため、HTTPSリダイレクトは行わない。
func SecureHeaders(isDevelopment bool) gin.HandlerFunc {
	s := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		IsDevelopment:      isDevelopment,
	})

	return func(c *gin.Context) {
		if err := s.Process(c.Writer, c.Request); err != nil {
			// Processがエラーを返す場合はレスポンスが既に書き込まれている
			c.Abort()
			return
		}
		c.Next()
	}
}
