package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/secretapp/internal/auth"
	"github.com/hitoshi/secretapp/internal/config"
	"github.com/hitoshi/secretapp/internal/database"
	"github.com/hitoshi/secretapp/internal/handler"
	"github.com/hitoshi/secretapp/internal/logger"
	"github.com/hitoshi/secretapp/internal/metrics"
	"github.com/hitoshi/secretapp/internal/password"
	"github.com/hitoshi/secretapp/internal/repository"
	"github.com/hitoshi/secretapp/internal/session"
	"github.com/hitoshi/secretapp/internal/worker/cleanup"
)

const (
	pingTimeout     = 5 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// .env.localでLOG_LEVELが指定された場合に備えて再設定する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		return runHealthcheck(config.ServerPort())
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("session_store", cfg.SessionStore),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if err := database.Ping(ctx, db, pingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// newRedisClient はREDIS_URLからRedisクライアントを生成し、疎通を確認する。
func newRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis connection established")
	return client, nil
}

// newSessionRepository は設定に応じたセッションストアを返す。
// 返されるclose関数はRedisクライアントなど、ストアが保持する接続を閉じる。
func newSessionRepository(ctx context.Context, cfg *config.Config, db *sql.DB) (repository.SessionRepository, func(), error) {
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		client, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisSessionRepo(client), func() { client.Close() }, nil
	default:
		return repository.NewPostgresSessionRepo(db), func() {}, nil
	}
}

// newMetricsRegistry はアプリケーションのメトリクスとGo/プロセスの標準メトリクスを登録したレジストリを返す。
func newMetricsRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// newHTTPHandler は依存関係をワイヤリングしてルーターを構築する。
func newHTTPHandler(cfg *config.Config, db *sql.DB, sessionRepo repository.SessionRepository) http.Handler {
	userRepo := repository.NewPostgresUserRepo(db)

	sessions := session.NewManager(sessionRepo, session.Config{
		MaxAge: cfg.SessionMaxAgeDuration(),
		Secure: cfg.CookieSecure,
		Secret: []byte(cfg.SessionSecret),
	})
	authService := auth.NewService(userRepo, password.NewBcryptHasher(), sessions)

	reg, collector := newMetricsRegistry()

	return handler.NewRouter(&handler.RouterDeps{
		AuthService:   authService,
		Sessions:      sessions,
		Logger:        slog.Default(),
		HealthChecker: db,
		Metrics:       collector,
		Gatherer:      reg,
	})
}

// runServe はHTTPサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sessionRepo, closeSessions, err := newSessionRepository(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeSessions()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      newHTTPHandler(cfg, db, sessionRepo),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションのクリーンアップジョブを定期実行する。
// RedisセッションストアはTTLで失効するため、ジョブは不要として終了する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if cfg.SessionStore == config.SessionStoreRedis {
		slog.Info("redis sessions expire by TTL; no cleanup worker required")
		return nil
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reg, collector := newMetricsRegistry()
	job := cleanup.NewCleanupJob(repository.NewPostgresSessionRepo(db), slog.Default(), collector)
	job.Interval = cfg.SessionCleanupInterval

	// ワーカーは/metricsのみを公開する。同一ホストでserveと並べられるよう別ポートで待ち受ける
	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.SetupMetricsRoute(reg),
		ReadHeaderTimeout: 15 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", job.Interval),
		slog.String("metrics_addr", metricsServer.Addr),
	)

	job.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("schema_version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	return checkHealth(fmt.Sprintf("http://localhost:%s/health", port))
}

func checkHealth(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User == nil {
		return u.String()
	}
	// url.Userは"*"をパーセントエンコードするため、認証情報を外してからマスクを差し込む
	u.User = nil
	return strings.Replace(u.String(), "://", "://***@", 1)
}
