package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/secretapp/internal/middleware"
	"github.com/hitoshi/secretapp/internal/model"
)

const healthCheckTimeout = 2 * time.Second

// UserFinder は保護ページの表示に必要なユーザー取得のインターフェース。
type UserFinder interface {
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
}

// HealthChecker はデータストアの疎通確認のインターフェース。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// PageHandler は画面表示とヘルスチェックのHTTPハンドラー。
type PageHandler struct {
	users  UserFinder
	health HealthChecker
	views  *renderer
}

// NewPageHandler はPageHandlerを生成する。healthがnilの場合、ヘルスチェックは常に成功する。
func NewPageHandler(users UserFinder, health HealthChecker) *PageHandler {
	return &PageHandler{
		users:  users,
		health: health,
		views:  newRenderer(),
	}
}

// Home はトップページを表示する。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.views.render(w, http.StatusOK, pageHome, pageData{Title: "Home"})
}

// RegisterForm は登録フォームを表示する。
// GET /register
func (h *PageHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.views.render(w, http.StatusOK, pageRegister, pageData{Title: "Register"})
}

// LoginForm はログインフォームを表示する。
// GET /login
func (h *PageHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.views.render(w, http.StatusOK, pageLogin, pageData{Title: "Login"})
}

// Secret はログイン中のユーザーの名前とメールアドレスを表示する。
// GET /secret（Auth Gateの内側）
func (h *PageHandler) Secret(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}

	user, err := h.users.CurrentUser(r.Context(), userID)
	if err != nil {
		slog.Error("failed to load current user",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	if user == nil {
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}

	h.views.render(w, http.StatusOK, pageSecret, pageData{Title: "Secret", User: user})
}

// Health はデータストアへの疎通を確認する。
// GET /health
func (h *PageHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := h.health.PingContext(ctx); err != nil {
			slog.Warn("health check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unavailable"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// NotFound は未定義のパスに対する404ページを返す。
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteErrorResponse(w, http.StatusNotFound, "The page you requested does not exist.")
}
