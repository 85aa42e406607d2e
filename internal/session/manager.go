// Package session はサーバー側セッションの発行、検証、破棄とセッションCookieの管理を提供する。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/hitoshi/secretapp/internal/model"
	"github.com/hitoshi/secretapp/internal/repository"
)

const (
	// DefaultCookieName はセッションCookieの既定名。
	DefaultCookieName = "session_id"
	// DefaultMaxAge はセッションの既定の有効期間。発行時刻からの絶対期限で、利用による延長はしない。
	DefaultMaxAge = time.Hour

	tokenBytes = 32
)

// Config はセッションマネージャーの設定。
type Config struct {
	CookieName string
	MaxAge     time.Duration
	// Secure はHTTPS配信時にtrueにする。Cookieに Secure 属性を付与する。
	Secure bool
	// Secret はCookie値の署名鍵。
	Secret []byte
}

// Manager はセッションのライフサイクルを管理する。
type Manager struct {
	repo   repository.SessionRepository
	codec  *securecookie.SecureCookie
	config Config
	now    func() time.Time
}

// NewManager はManagerを生成する。
// CookieNameとMaxAgeが未設定の場合は既定値を使用する。
func NewManager(repo repository.SessionRepository, config Config) *Manager {
	if config.CookieName == "" {
		config.CookieName = DefaultCookieName
	}
	if config.MaxAge <= 0 {
		config.MaxAge = DefaultMaxAge
	}

	codec := securecookie.New(config.Secret, nil)
	codec.MaxAge(int(config.MaxAge.Seconds()))

	return &Manager{
		repo:   repo,
		codec:  codec,
		config: config,
		now:    time.Now,
	}
}

// MaxAge はセッションの有効期間を返す。
func (m *Manager) MaxAge() time.Duration {
	return m.config.MaxAge
}

// Create はユーザーIDに紐づく新しいセッションを発行し永続化する。
func (m *Manager) Create(ctx context.Context, userID string) (*model.Session, error) {
	if userID == "" {
		return nil, errors.New("user ID is required")
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := m.now()
	session := &model.Session{
		ID:        token,
		UserID:    userID,
		ExpiresAt: now.Add(m.config.MaxAge),
		CreatedAt: now,
	}

	if err := m.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// Validate はトークンに対応するセッションを検証し、紐づくユーザーIDを返す。
// セッションが存在しない、または期限切れの場合はokがfalseになる。
func (m *Manager) Validate(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}

	session, err := m.repo.FindByID(ctx, token)
	if err != nil {
		return "", false, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return "", false, nil
	}

	if session.Expired(m.now()) {
		// ストアの時計とずれていた場合に備え、期限切れを見つけたら削除しておく
		if err := m.repo.DeleteByID(ctx, token); err != nil {
			slog.Warn("failed to delete expired session", slog.String("error", err.Error()))
		}
		return "", false, nil
	}

	return session.UserID, true, nil
}

// Destroy はセッションを削除する。
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("session token is required")
	}
	if err := m.repo.DeleteByID(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SetCookie はセッショントークンを署名してCookieに設定する。
func (m *Manager) SetCookie(w http.ResponseWriter, session *model.Session) error {
	value, err := m.codec.Encode(m.config.CookieName, session.ID)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(m.config.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie はセッションCookieをクライアント側で破棄させる。
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest はリクエストのCookieからセッショントークンを取り出す。
// Cookieがない、または署名が不正な場合はokがfalseになる。
func (m *Manager) TokenFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	var token string
	if err := m.codec.Decode(m.config.CookieName, cookie.Value, &token); err != nil {
		slog.Debug("rejected session cookie", slog.String("error", err.Error()))
		return "", false
	}
	if token == "" {
		return "", false
	}
	return token, true
}

// generateToken は暗号的に安全なセッショントークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
