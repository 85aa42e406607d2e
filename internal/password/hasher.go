// Package password はパスワードの一方向ハッシュ化と照合を提供する。
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost はbcryptのワークファクター。設定では変更できない固定値。
const Cost = 10

// HashFormatError は保存済みダイジェストがbcrypt形式として解釈できない場合のエラー。
// パスワード不一致とは区別して扱う。
type HashFormatError struct {
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *HashFormatError) Error() string {
	return fmt.Sprintf("malformed password hash: %v", e.Err)
}

// Unwrap は元のエラーを返す。
func (e *HashFormatError) Unwrap() error {
	return e.Err
}

// BcryptHasher はbcryptによるパスワードハッシャー。
// ソルトは呼び出しごとに生成され、出力ダイジェストに埋め込まれる。
type BcryptHasher struct{}

// NewBcryptHasher はBcryptHasherを生成する。
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{}
}

// Hash は平文パスワードからソルト付きダイジェストを生成する。
func (h *BcryptHasher) Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify は平文パスワードがダイジェストと一致するかを返す。
// 不一致はfalse、nilを返す。ダイジェストが壊れている場合は*HashFormatErrorを返す。
// 比較の定数時間性はbcrypt側に委ねる。
func (h *BcryptHasher) Verify(plain, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, &HashFormatError{Err: err}
	}
}
