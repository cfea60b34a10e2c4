package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// UserFinder はメールアドレスでユーザーを取得する。
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// CredentialValidator はユーザー名（メールアドレス）とパスワードの組を照合する。
type CredentialValidator struct {
	users  UserFinder
	logger *zap.Logger
}

// NewCredentialValidator は新しいCredentialValidatorを生成する。
func NewCredentialValidator(users UserFinder, logger *zap.Logger) *CredentialValidator {
	return &CredentialValidator{users: users, logger: logger}
}

// Validate はusernameに一致するユーザーが存在し、保存されたパスワードがpasswordと完全一致する場合にtrueを返す。
// ユーザーが存在しない場合とパスワードが異なる場合はどちらも(false, nil)を返し、呼び出し側から区別できない。
// データベース操作に失敗した場合はErrStorageをラップしたエラーを返す。
func (v *CredentialValidator) Validate(ctx context.Context, username, password string) (bool, error) {
	user, err := v.users.FindByEmail(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		v.logger.Error("ユーザー照合に失敗しました", zap.Error(err))
		if errors.Is(err, ErrStorage) {
			return false, err
		}
		return false, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	// TODO: 本番環境ではbcrypt等のハッシュ比較に置き換える
	return user.Password == password, nil
}
