package middleware

import (
	"fmt"
	"html"
	"net/http"
)

// errorPage はエラー時に返す最小限のHTML。詳細は含めない。
const errorPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>%[1]s</title></head>
<body><h1>%[1]s</h1><p>%[2]s</p><p><a href="/">Back to home</a></p></body>
</html>
`

// WriteErrorResponse は汎用のHTMLエラーページを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, errorPage, html.EscapeString(http.StatusText(statusCode)), html.EscapeString(message))
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}
