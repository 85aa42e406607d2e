package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/secretapp/internal/auth"
	"github.com/hitoshi/secretapp/internal/metrics"
	"github.com/hitoshi/secretapp/internal/model"
	"github.com/hitoshi/secretapp/internal/password"
	"github.com/hitoshi/secretapp/internal/repository"
	"github.com/hitoshi/secretapp/internal/session"
)

// --- 統合テスト用のインメモリユーザーストア ---

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

var _ repository.UserRepository = (*memoryUserRepo)(nil)

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*model.User)}
}

func (m *memoryUserRepo) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return model.ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			found := *u
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memoryUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	found := *u
	return &found, nil
}

func (m *memoryUserRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// --- 統合テスト用ルーター構築ヘルパー ---

type integrationEnv struct {
	server *httptest.Server
	client *http.Client
	users  *memoryUserRepo
	redis  *miniredis.Miniredis
	reg    *prometheus.Registry
}

// newIntegrationEnv は実際のbcrypt、セッションマネージャー、Redisセッションストア（miniredis）で
// ルーターを組み立て、テストサーバーを起動する。
func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	users := newMemoryUserRepo()
	sessions := session.NewManager(repository.NewRedisSessionRepo(rdb), session.Config{
		MaxAge: time.Hour,
		Secret: []byte("integration-test-secret-0123456789"),
	})
	authService := auth.NewService(users, password.NewBcryptHasher(), sessions)

	reg := prometheus.NewRegistry()
	router := NewRouter(&RouterDeps{
		AuthService:   authService,
		Sessions:      sessions,
		HealthChecker: &mockHealthChecker{},
		Metrics:       metrics.NewCollector(reg),
		Gatherer:      reg,
	})
	server := httptest.NewServer(router)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New failed: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	t.Cleanup(func() {
		server.Close()
		rdb.Close()
		mr.Close()
	})

	return &integrationEnv{server: server, client: client, users: users, redis: mr, reg: reg}
}

func (e *integrationEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (e *integrationEnv) post(t *testing.T, path string, values url.Values) *http.Response {
	t.Helper()
	resp, err := e.client.PostForm(e.server.URL+path, values)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp
}

func expectRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("%s %s status = %d, want %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, http.StatusFound)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Errorf("%s %s Location = %q, want %q", resp.Request.Method, resp.Request.URL.Path, got, location)
	}
}

var aliceForm = url.Values{
	"name":     {"Alice"},
	"email":    {"a@x.com"},
	"password": {"Secret1!"},
}

var aliceLogin = url.Values{
	"email":    {"a@x.com"},
	"password": {"Secret1!"},
}

// --- 統合テスト ---

// TestIntegration_AliceFlow は登録、ログイン、保護ページ閲覧、ログアウトの一連の流れを検証する。
func TestIntegration_AliceFlow(t *testing.T) {
	env := newIntegrationEnv(t)

	// 未ログインでは保護ページへ入れない
	resp, _ := env.get(t, "/secret")
	expectRedirect(t, resp, "/login")

	expectRedirect(t, env.post(t, "/register", aliceForm), "/login")
	expectRedirect(t, env.post(t, "/login", aliceLogin), "/secret")

	resp, body := env.get(t, "/secret")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /secret status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(body, "Alice") {
		t.Errorf("/secret should contain the user's name, got %s", body)
	}
	if !strings.Contains(body, "a@x.com") {
		t.Errorf("/secret should contain the user's email, got %s", body)
	}

	resp, _ = env.get(t, "/logout")
	expectRedirect(t, resp, "/login")

	resp, _ = env.get(t, "/secret")
	expectRedirect(t, resp, "/login")

	if keys := env.redis.Keys(); len(keys) != 0 {
		t.Errorf("session keys after logout = %v, want none", keys)
	}
}

// TestIntegration_WrongPassword はパスワード誤りでログインできないことを検証する。
func TestIntegration_WrongPassword(t *testing.T) {
	env := newIntegrationEnv(t)

	expectRedirect(t, env.post(t, "/register", aliceForm), "/login")
	expectRedirect(t, env.post(t, "/login", url.Values{
		"email":    {"a@x.com"},
		"password": {"wrong"},
	}), "/login")

	resp, _ := env.get(t, "/secret")
	expectRedirect(t, resp, "/login")
}

// TestIntegration_DuplicateRegistration は同じメールアドレスで2件目が作成されないことを検証する。
func TestIntegration_DuplicateRegistration(t *testing.T) {
	env := newIntegrationEnv(t)

	expectRedirect(t, env.post(t, "/register", aliceForm), "/login")
	expectRedirect(t, env.post(t, "/register", url.Values{
		"name":     {"Alice Again"},
		"email":    {"a@x.com"},
		"password": {"Other1!"},
	}), "/login")

	if n := env.users.count(); n != 1 {
		t.Errorf("user count = %d, want 1", n)
	}

	// 最初に登録したパスワードが有効なまま
	expectRedirect(t, env.post(t, "/login", aliceLogin), "/secret")
}

// TestIntegration_SessionExpiry は期限切れのセッションが未ログインとして扱われることを検証する。
func TestIntegration_SessionExpiry(t *testing.T) {
	env := newIntegrationEnv(t)

	expectRedirect(t, env.post(t, "/register", aliceForm), "/login")
	expectRedirect(t, env.post(t, "/login", aliceLogin), "/secret")

	env.redis.FastForward(time.Hour + time.Second)

	resp, _ := env.get(t, "/secret")
	expectRedirect(t, resp, "/login")
}

// TestIntegration_TamperedCookie は改ざんされたCookieが受け付けられないことを検証する。
func TestIntegration_TamperedCookie(t *testing.T) {
	env := newIntegrationEnv(t)

	expectRedirect(t, env.post(t, "/register", aliceForm), "/login")
	expectRedirect(t, env.post(t, "/login", aliceLogin), "/secret")

	u, _ := url.Parse(env.server.URL)
	cookies := env.client.Jar.Cookies(u)
	if len(cookies) == 0 {
		t.Fatal("expected session cookie in jar")
	}
	for _, c := range cookies {
		c.Value = c.Value[:len(c.Value)-2] + "xx"
	}
	env.client.Jar.SetCookies(u, cookies)

	resp, _ := env.get(t, "/secret")
	expectRedirect(t, resp, "/login")
}

// TestIntegration_InvalidRegistration は不正な入力でフォームが再表示されユーザーが作成されないことを検証する。
func TestIntegration_InvalidRegistration(t *testing.T) {
	env := newIntegrationEnv(t)

	resp := env.post(t, "/register", url.Values{
		"name":     {"Alice"},
		"email":    {"not-an-email"},
		"password": {"Secret1!"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if n := env.users.count(); n != 0 {
		t.Errorf("user count = %d, want 0", n)
	}
}

// TestIntegration_MetricsExposed は認証イベントが/metricsに現れることを検証する。
func TestIntegration_MetricsExposed(t *testing.T) {
	env := newIntegrationEnv(t)

	expectRedirect(t, env.post(t, "/register", aliceForm), "/login")
	expectRedirect(t, env.post(t, "/login", aliceLogin), "/secret")

	resp, body := env.get(t, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	for _, want := range []string{
		`secretapp_registrations_total{outcome="created"} 1`,
		`secretapp_logins_total{outcome="success"} 1`,
		`secretapp_http_status_total{status_code="302"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics should contain %q", want)
		}
	}
}

// TestIntegration_EmailWithTrailingSpace は登録とログインで同じ入力をすれば末尾の空白があってもログインできることを検証する。
func TestIntegration_EmailWithTrailingSpace(t *testing.T) {
	env := newIntegrationEnv(t)

	expectRedirect(t, env.post(t, "/register", url.Values{
		"name":     {"Bob"},
		"email":    {"b@x.com "},
		"password": {"Secret1!"},
	}), "/login")
	expectRedirect(t, env.post(t, "/login", url.Values{
		"email":    {"b@x.com "},
		"password": {"Secret1!"},
	}), "/secret")

	resp, body := env.get(t, "/secret")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /secret status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(body, "Bob") {
		t.Errorf("/secret should contain the user's name, got %s", body)
	}
}
