package auth

import (
	"html"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/secretapp/internal/model"
)

const (
	maxNameLength     = 100 // 文字数
	maxEmailBytes     = 254
	maxPasswordBytes  = 72 // bcryptが扱える上限
	minPasswordLength = 1
)

// RegisterInput はユーザー登録フォームの入力値。
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// namePolicy は表示名からHTMLタグを取り除くポリシー。
var namePolicy = bluemonday.StrictPolicy()

// normalize は登録入力を検証し、保存用に整形した値を返す。
// nameはHTMLを除去して前後の空白を取り除く。emailは前後の空白のみ取り除き、大文字小文字は保持する。
// パスワードは入力されたバイト列をそのまま扱う。
func (in RegisterInput) normalize() (RegisterInput, error) {
	// StrictPolicyは実体参照にエスケープするため、テンプレート側で二重にエスケープされないよう戻しておく
	name := strings.TrimSpace(html.UnescapeString(namePolicy.Sanitize(in.Name)))
	if name == "" {
		return RegisterInput{}, model.NewValidationError("name", "required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return RegisterInput{}, model.NewValidationError("name", "too long")
	}

	email := normalizeEmail(in.Email)
	if email == "" {
		return RegisterInput{}, model.NewValidationError("email", "required")
	}
	if len(email) > maxEmailBytes {
		return RegisterInput{}, model.NewValidationError("email", "too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return RegisterInput{}, model.NewValidationError("email", "malformed")
	}

	if len(in.Password) < minPasswordLength {
		return RegisterInput{}, model.NewValidationError("password", "required")
	}
	if len(in.Password) > maxPasswordBytes {
		return RegisterInput{}, model.NewValidationError("password", "too long")
	}

	return RegisterInput{Name: name, Email: email, Password: in.Password}, nil
}

// normalizeEmail は登録時とログイン時で共通のメールアドレス整形。
// 前後の空白のみ取り除き、大文字小文字は保持する。
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
