package svg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Converter は外部SVG変換エンジンを抽象化します。
// srcDir 内の各SVGファイルに対して outDir へ0個または1個の変換結果を書き出す契約で、
// 内部のアルゴリズムには関知しません。実行自体の失敗はエラーとして返しますが、
// 出力が1件も生成されないケースの判定は呼び出し側が出力一覧で行います。
type Converter interface {
	Convert(ctx context.Context, srcDir, outDir string) error
}

// execConverter は設定されたコマンドを子プロセスとして起動する実装です。
type execConverter struct {
	command string
}

func newExecConverter(command string) *execConverter {
	return &execConverter{command: command}
}

// Convert は変換コマンドを実行します。svgo互換の -f/-o 引数を渡します。
func (c *execConverter) Convert(ctx context.Context, srcDir, outDir string) error {
	cmd := exec.CommandContext(ctx, c.command, "-f", srcDir, "-o", outDir)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return newError(CodeConvertFailed,
			fmt.Sprintf("SVG変換コマンドの実行に失敗しました: %s", strings.TrimSpace(output.String())), err)
	}
	return nil
}
