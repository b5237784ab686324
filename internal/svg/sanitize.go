package svg

import (
	"path/filepath"
	"regexp"
	"strings"
)

const (
	defaultFilename   = "file.svg"
	maxFilenameLength = 64
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	placeholderRuns     = regexp.MustCompile(`_+`)
)

// sanitizeFilename は信頼できないファイル名を安全な形へ正規化します。
// 許可する文字は [A-Za-z0-9._-] のみで、連続した置換文字は1つにまとめ、
// 最大長を超える場合は切り詰めます。空の入力には既定のファイル名を返します。
// 同じ入力に対して常に同じ結果を返し、再適用しても結果は変わりません。
func sanitizeFilename(raw string) string {
	// パス区切りを含む入力はベース名のみを対象にする
	name := filepath.Base(strings.TrimSpace(strings.ReplaceAll(raw, "\\", "/")))
	if name == "." || name == "/" {
		name = ""
	}

	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = placeholderRuns.ReplaceAllString(name, "_")

	if name == "" {
		return defaultFilename
	}

	if runes := []rune(name); len(runes) > maxFilenameLength {
		name = string(runes[:maxFilenameLength])
	}

	return name
}
