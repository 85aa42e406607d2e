// Package auth はユーザー登録、ログイン、ログアウトとセッションによる認証判定を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/secretapp/internal/model"
	"github.com/hitoshi/secretapp/internal/repository"
)

// PasswordHasher はパスワードの一方向ハッシュ化と照合のインターフェース。
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (bool, error)
}

// SessionManager はセッションの発行、検証、破棄のインターフェース。
type SessionManager interface {
	Create(ctx context.Context, userID string) (*model.Session, error)
	Validate(ctx context.Context, token string) (string, bool, error)
	Destroy(ctx context.Context, token string) error
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	sessions SessionManager
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, hasher PasswordHasher, sessions SessionManager) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		sessions: sessions,
	}
}

// Register はユーザーを登録する。
// 入力が不正な場合は*model.ValidationError、メールアドレスが登録済みの場合はmodel.ErrEmailTakenを返す。
// 既存チェックと挿入の競合はストアの一意制約で検出し、同じくErrEmailTakenとして扱う。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	existing, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if existing != nil {
		return nil, model.ErrEmailTaken
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: digest,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// Login は認証情報を検証し、成功した場合はセッションを発行する。
// メールアドレスは登録時と同じ規則で整形してから照合する。
// ユーザーが存在しない場合とパスワードが一致しない場合は、どちらもmodel.ErrAuthFailureを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, model.ErrAuthFailure
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if user == nil {
		return nil, model.ErrAuthFailure
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password for user %s: %w", user.ID, err)
	}
	if !ok {
		return nil, model.ErrAuthFailure
	}

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("session token is required")
	}

	if err := s.sessions.Destroy(ctx, token); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// Identify はセッショントークンから認証状態を判定する。
// セッションが有効でも紐づくユーザーが存在しない場合は、セッションを破棄して未認証とする。
func (s *Service) Identify(ctx context.Context, token string) (Identity, error) {
	userID, ok, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return Anonymous(), fmt.Errorf("failed to validate session: %w", err)
	}
	if !ok {
		return Anonymous(), nil
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return Anonymous(), fmt.Errorf("failed to find session user: %w", err)
	}
	if user == nil {
		slog.Warn("session references missing user", slog.String("user_id", userID))
		if err := s.sessions.Destroy(ctx, token); err != nil {
			slog.Error("failed to destroy stale session", slog.String("error", err.Error()))
		}
		return Anonymous(), nil
	}

	return AuthenticatedAs(userID), nil
}

// CurrentUser は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}
