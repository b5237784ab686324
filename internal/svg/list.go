package svg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// listOutputs は dir 直下の .svg ファイル（拡張子は大文字小文字を区別しない）を
// 照合順序でソートして返します。クライアントへ返す一覧の順序を決定的にするため、
// バイト順ではなくコレーターによる辞書順を使います。
func listOutputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("出力ディレクトリの読み込みに失敗しました: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), svgExt) {
			continue
		}
		names = append(names, entry.Name())
	}

	// collate.Collator は並行利用できないため呼び出しごとに生成する
	collate.New(language.Und).SortStrings(names)
	return names, nil
}
