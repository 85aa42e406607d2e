package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/secretapp/internal/metrics"
	"github.com/hitoshi/secretapp/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 認証
	AuthService AuthServiceInterface
	Sessions    SessionCookies

	// 運用
	Logger        *slog.Logger
	HealthChecker HealthChecker
	Metrics       metrics.MetricsCollector
	Gatherer      prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Metrics → Recovery → SecurityHeaders
//
// /secret のみAuth Gateの内側に配置し、キャッシュも無効にする。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())

	var recorder AuthRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}
	authHandler := NewAuthHandler(deps.AuthService, deps.Sessions, recorder)
	pageHandler := NewPageHandler(deps.AuthService, deps.HealthChecker)

	// --- 認証不要のルート ---
	r.Get("/", pageHandler.Home)
	r.Get("/register", pageHandler.RegisterForm)
	r.Post("/register", authHandler.Register)
	r.Get("/login", pageHandler.LoginForm)
	r.Post("/login", authHandler.Login)
	r.Get("/logout", authHandler.Logout)

	r.Get("/health", pageHandler.Health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewNoStoreMiddleware())
		r.Use(middleware.NewAuthGate(deps.Sessions, deps.AuthService, loginPath))
		r.Get(secretPath, pageHandler.Secret)
	})

	r.NotFound(pageHandler.NotFound)

	return r
}
