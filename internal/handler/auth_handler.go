// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/secretapp/internal/auth"
	"github.com/hitoshi/secretapp/internal/metrics"
	"github.com/hitoshi/secretapp/internal/middleware"
	"github.com/hitoshi/secretapp/internal/model"
)

const (
	loginPath  = "/login"
	secretPath = "/secret"

	invalidRegistrationMessage = "Please check the form and try again."
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.Session, error)
	Logout(ctx context.Context, token string) error
	Identify(ctx context.Context, token string) (auth.Identity, error)
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
}

// SessionCookies はセッションCookieの読み書きのインターフェース。
type SessionCookies interface {
	SetCookie(w http.ResponseWriter, session *model.Session) error
	ClearCookie(w http.ResponseWriter)
	TokenFromRequest(r *http.Request) (string, bool)
}

// AuthRecorder は認証イベントを記録するメトリクスのインターフェース。
type AuthRecorder interface {
	RecordRegistration(outcome string)
	RecordLogin(outcome string)
	RecordLogout()
}

// AuthHandler は登録、ログイン、ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	cookies  SessionCookies
	recorder AuthRecorder
	views    *renderer
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, cookies SessionCookies, recorder AuthRecorder) *AuthHandler {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &AuthHandler{
		service:  service,
		cookies:  cookies,
		recorder: recorder,
		views:    newRenderer(),
	}
}

// Register はユーザー登録フォームの送信を処理する。
// POST /register
//
// 成功時と登録済みメールアドレスの場合は、どちらも/loginへリダイレクトする。
// 入力が不正な場合はフォームを400で再表示する。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.recorder.RecordRegistration(metrics.RegistrationInvalid)
		h.views.render(w, http.StatusBadRequest, pageRegister, pageData{
			Title: "Register",
			Error: invalidRegistrationMessage,
		})
		return
	}

	in := auth.RegisterInput{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	_, err := h.service.Register(r.Context(), in)
	if err != nil {
		var verr *model.ValidationError
		switch {
		case errors.As(err, &verr):
			slog.Info("registration rejected",
				slog.String("field", verr.Field),
				slog.String("reason", verr.Reason),
			)
			h.recorder.RecordRegistration(metrics.RegistrationInvalid)
			h.views.render(w, http.StatusBadRequest, pageRegister, pageData{
				Title: "Register",
				Error: invalidRegistrationMessage,
				Name:  in.Name,
				Email: in.Email,
			})
			return
		case errors.Is(err, model.ErrEmailTaken):
			// 登録済みであることは利用者に示さない
			h.recorder.RecordRegistration(metrics.RegistrationDuplicate)
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		default:
			slog.Error("registration failed", slog.String("error", err.Error()))
			h.recorder.RecordRegistration(metrics.RegistrationError)
			middleware.WriteInternalServerError(w)
			return
		}
	}

	h.recorder.RecordRegistration(metrics.RegistrationCreated)
	http.Redirect(w, r, loginPath, http.StatusFound)
}

// Login はログインフォームの送信を処理する。
// POST /login
//
// 認証に失敗した場合は理由を区別せず/loginへリダイレクトする。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.recorder.RecordLogin(metrics.LoginFailure)
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}

	session, err := h.service.Login(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, model.ErrAuthFailure) {
			h.recorder.RecordLogin(metrics.LoginFailure)
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		slog.Error("login failed", slog.String("error", err.Error()))
		h.recorder.RecordLogin(metrics.LoginError)
		middleware.WriteInternalServerError(w)
		return
	}

	if err := h.cookies.SetCookie(w, session); err != nil {
		slog.Error("failed to set session cookie", slog.String("error", err.Error()))
		h.recorder.RecordLogin(metrics.LoginError)
		middleware.WriteInternalServerError(w)
		return
	}

	h.recorder.RecordLogin(metrics.LoginSuccess)
	http.Redirect(w, r, secretPath, http.StatusFound)
}

// Logout はセッションを破棄してCookieを削除する。
// GET /logout
//
// セッションはレスポンスを返す前に同期的に削除する。Cookieがない場合もそのまま/loginへリダイレクトする。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := h.cookies.TokenFromRequest(r)
	if ok {
		if err := h.service.Logout(r.Context(), token); err != nil {
			slog.Error("logout failed", slog.String("error", err.Error()))
			h.cookies.ClearCookie(w)
			middleware.WriteInternalServerError(w)
			return
		}
		h.recorder.RecordLogout()
	}

	h.cookies.ClearCookie(w)
	http.Redirect(w, r, loginPath, http.StatusFound)
}

type noopRecorder struct{}

func (noopRecorder) RecordRegistration(string) {}
func (noopRecorder) RecordLogin(string)        {}
func (noopRecorder) RecordLogout()             {}
