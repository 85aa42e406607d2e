// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/secretapp/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。IDが空の場合はストア側で採番する。
	// メールアドレスが重複した場合はmodel.ErrEmailTakenを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByEmail はメールアドレスの完全一致でユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
}

// ExpiredSessionPurger は期限切れセッションを一括削除できるストアが実装する。
// RedisのようにTTLで自動失効するストアは実装しない。
type ExpiredSessionPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}
