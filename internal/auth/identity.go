package auth

// AuthState はリクエストの認証状態を表す。
type AuthState int

const (
	// Unauthenticated は有効なセッションがない状態。
	Unauthenticated AuthState = iota
	// Authenticated は有効なセッションにユーザーが紐づいている状態。
	Authenticated
)

// String はログ出力用の表現を返す。
func (s AuthState) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Identity はAuth Gateが判定した認証結果。
// State が Authenticated の場合のみ UserID が設定される。
type Identity struct {
	State  AuthState
	UserID string
}

// AuthenticatedAs はユーザーIDに紐づく認証済みIdentityを返す。
func AuthenticatedAs(userID string) Identity {
	return Identity{State: Authenticated, UserID: userID}
}

// Anonymous は未認証のIdentityを返す。
func Anonymous() Identity {
	return Identity{State: Unauthenticated}
}

// IsAuthenticated は認証済みかどうかを返す。
func (i Identity) IsAuthenticated() bool {
	return i.State == Authenticated && i.UserID != ""
}
