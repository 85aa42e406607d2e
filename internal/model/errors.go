// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

var (
	// ErrEmailTaken は登録済みのメールアドレスで再登録しようとした場合のエラー。
	// 利用者には理由を表示せず、ログイン画面へのリダイレクトとして扱う。
	ErrEmailTaken = errors.New("email already registered")

	// ErrAuthFailure は認証情報の不一致を表す。
	// メールアドレスとパスワードのどちらが誤っていたかは区別しない。
	ErrAuthFailure = errors.New("authentication failed")
)

// StorageError はデータストアへの接続失敗や書き込み失敗を表す。
// ハンドラーでは500レスポンスとして扱う。
type StorageError struct {
	Op  string // 失敗した操作（例: "users.find_by_email"）
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError はStorageErrorを生成する。
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsStorageError はエラーチェーンにStorageErrorが含まれるかを返す。
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// ValidationError はフォーム入力の不備を表す。
type ValidationError struct {
	Field  string
	Reason string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError はValidationErrorを生成する。
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
