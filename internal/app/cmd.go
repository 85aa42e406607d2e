package app

import (
	"fmt"
	"sort"
	"strings"
)

// Command はsecretappのサブコマンド。
type Command string

const (
	CommandServe       Command = "serve"
	CommandWorker      Command = "worker"
	CommandMigrate     Command = "migrate"
	CommandHealthcheck Command = "healthcheck"
)

// commandDescriptions は使い方の表示に使う各サブコマンドの説明。
var commandDescriptions = map[Command]string{
	CommandServe:       "HTTPサーバーを起動する（既定）",
	CommandWorker:      "期限切れセッションを定期削除する",
	CommandMigrate:     "データベースマイグレーションを適用する",
	CommandHealthcheck: "localhostの/healthを確認する（Docker HEALTHCHECK用）",
}

// ParseCommand はos.Args[1:]の先頭からサブコマンドを取り出す。
// 引数がない場合はCommandServe。未知のサブコマンドはエラーになる。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}

	cmd := Command(args[0])
	if _, ok := commandDescriptions[cmd]; !ok {
		return "", fmt.Errorf("unknown command %q\n%s", args[0], Usage())
	}
	return cmd, nil
}

// Usage はサブコマンドの一覧を返す。
func Usage() string {
	names := make([]string, 0, len(commandDescriptions))
	for cmd := range commandDescriptions {
		names = append(names, string(cmd))
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("usage: secretapp [command]\n\ncommands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-12s %s\n", name, commandDescriptions[Command(name)])
	}
	return b.String()
}
