// Package model はドメインモデルを定義する。
package model

import "time"

// User は登録済みユーザーを表す。
// PasswordHash は一方向ハッシュの出力であり、平文パスワードは保持しない。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// ID はクライアントのCookieに載る不透明トークン。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired は指定時刻においてセッションが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
