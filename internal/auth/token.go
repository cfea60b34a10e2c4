package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenIssuerName はトークンのiss（発行者）クレーム。
	TokenIssuerName = "azure-auth-service"
	// TokenAudience はトークンのaud（対象者）クレーム。
	TokenAudience = "azure-microservices"
	// TokenLifetime はトークンの有効期間。
	TokenLifetime = 24 * time.Hour
	// TokenType はレスポンスのtoken_type。
	TokenType = "bearer"
)

var (
	// ErrTokenExpired はトークンの有効期限が切れていることを表す。
	ErrTokenExpired = errors.New("トークンの有効期限が切れています")
	// ErrTokenInvalid は署名不正、形式不正、発行者・対象者の不一致など、期限切れ以外の理由でトークンが無効であることを表す。
	ErrTokenInvalid = errors.New("トークンが無効です")
)

// Claims はトークンのクレーム（ペイロード）を表す。
type Claims struct {
	jwt.RegisteredClaims
	// Username はログインしたユーザーのメールアドレス。
	Username string `json:"username"`
}

// TokenResponse はトークン発行時のレスポンス。
type TokenResponse struct {
	// AccessToken は署名済みのトークン文字列。
	AccessToken string `json:"access_token"`
	// TokenType は常に "bearer"。
	TokenType string `json:"token_type"`
	// ExpiresIn は有効期間（秒）。
	ExpiresIn int64 `json:"expires_in"`
}

// TokenIssuer は共有秘密鍵を使ってトークンの発行と検証を行う。
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer は新しいTokenIssuerを生成する。
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Issue はusernameを含むトークンをHS256で署名して発行する。
func (i *TokenIssuer) Issue(username string) (TokenResponse, error) {
	now := i.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    TokenIssuerName,
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
		},
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("トークンの署名に失敗: %w", err)
	}

	return TokenResponse{
		AccessToken: signed,
		TokenType:   TokenType,
		ExpiresIn:   int64(TokenLifetime / time.Second),
	}, nil
}

// Verify はトークンの署名、有効期限、発行日時、発行者、対象者を検証してクレームを返す。
// 現在時刻が有効期限以降の場合はErrTokenExpired、それ以外の検証失敗はErrTokenInvalidをラップして返す。
func (i *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(_ *jwt.Token) (any, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuerName),
		jwt.WithAudience(TokenAudience),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.Username == "" {
		return nil, fmt.Errorf("%w: usernameクレームがありません", ErrTokenInvalid)
	}
	return claims, nil
}
