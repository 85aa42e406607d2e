// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/secretapp/internal/auth"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証結果を格納するためのキー。
var identityContextKey = contextKey("identity")

// TokenReader はリクエストからセッショントークンを取り出すインターフェース。
// session.Managerが実装する。
type TokenReader interface {
	TokenFromRequest(r *http.Request) (string, bool)
}

// Identifier はセッショントークンから認証状態を判定するインターフェース。
// auth.Serviceが実装する。
type Identifier interface {
	Identify(ctx context.Context, token string) (auth.Identity, error)
}

// NewAuthGate は保護されたルートの手前に置くミドルウェアを返す。
// 認証済みの場合はIdentityをコンテキストに注入して次のハンドラーへ渡す。
// 未認証の場合はloginPathへリダイレクトする。エラーステータスは返さない。
// ストアの障害で判定できない場合のみ500を返す。
func NewAuthGate(tokens TokenReader, identifier Identifier, loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := auth.Anonymous()

			if token, ok := tokens.TokenFromRequest(r); ok {
				var err error
				identity, err = identifier.Identify(r.Context(), token)
				if err != nil {
					slog.Error("failed to identify session",
						slog.String("error", err.Error()),
						slog.String("path", r.URL.Path),
					)
					WriteInternalServerError(w)
					return
				}
			}

			if !identity.IsAuthenticated() {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}

			setLoggedUserID(r.Context(), identity.UserID)
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証結果を取得する。
// 値がない場合は未認証のIdentityを返す。
func IdentityFromContext(ctx context.Context) auth.Identity {
	identity, ok := ctx.Value(identityContextKey).(auth.Identity)
	if !ok {
		return auth.Anonymous()
	}
	return identity
}

// ContextWithIdentity はコンテキストに認証結果を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// UserIDFromContext はリクエストコンテキストから認証済みユーザーIDを取得する。
// Auth Gateを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	identity := IdentityFromContext(ctx)
	if !identity.IsAuthenticated() {
		return "", fmt.Errorf("user ID not found in context")
	}
	return identity.UserID, nil
}
