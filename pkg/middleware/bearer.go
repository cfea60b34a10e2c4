package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// contextKeyBearerToken はGinコンテキストにBearerトークンを格納するためのキー。
const contextKeyBearerToken = "bearer_token"

// BearerAuth はAuthorizationヘッダーからBearerトークンを取り出すGinミドルウェアを返す。
// トークンの検証は行わず、取り出したトークン文字列をコンテキストに設定する。
// ヘッダーが無い場合や形式が不正な場合は401で中断する。
func BearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorizationヘッダーが必要です",
			})
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		token = strings.TrimSpace(token)
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer トークン形式が不正です",
			})
			return
		}

		c.Set(contextKeyBearerToken, token)
		c.Next()
	}
}

// GetBearerToken はGinコンテキストからBearerトークンを取得する。
// BearerAuthミドルウェアが事前に適用されている必要がある。
func GetBearerToken(c *gin.Context) string {
	token, _ := c.Get(contextKeyBearerToken)
	if s, ok := token.(string); ok {
		return s
	}
	return ""
}
