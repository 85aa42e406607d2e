package handler

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/secretapp/internal/middleware"
	"github.com/hitoshi/secretapp/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

// ページテンプレート名。
const (
	pageHome     = "home.html"
	pageRegister = "register.html"
	pageLogin    = "login.html"
	pageSecret   = "secret.html"
)

// pageData はテンプレートに渡す値。
type pageData struct {
	Title string
	Error string

	// 登録フォームの再表示用
	Name  string
	Email string

	User *model.User
}

// renderer はページごとにレイアウトと組み合わせたテンプレートを保持する。
type renderer struct {
	pages map[string]*template.Template
}

// newRenderer は埋め込みテンプレートを解析する。テンプレートが壊れている場合はpanicする。
func newRenderer() *renderer {
	pages := make(map[string]*template.Template)
	for _, page := range []string{pageHome, pageRegister, pageLogin, pageSecret} {
		tmpl := template.Must(template.ParseFS(templatesFS, "templates/layout.html", "templates/"+page))
		pages[page] = tmpl
	}
	return &renderer{pages: pages}
}

// render はページを描画して書き込む。
// 描画の途中で失敗した場合に不完全なHTMLを返さないよう、一度バッファに書き出す。
func (rd *renderer) render(w http.ResponseWriter, status int, page string, data pageData) {
	tmpl, ok := rd.pages[page]
	if !ok {
		slog.Error("unknown page template", slog.String("page", page))
		middleware.WriteInternalServerError(w)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("failed to render page",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
