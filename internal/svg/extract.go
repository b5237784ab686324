package svg

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const svgExt = ".svg"

// extractZip はZIPアーカイブから .svg エントリのみを destDir へ展開し、
// 書き出したファイル数を返します。
// ディレクトリエントリと .svg 以外のエントリは読み飛ばします。
// エントリ名は sanitizeFilename を通した上で destDir の内側に解決されることを
// 確認し、外側へ解決されるエントリは展開せずスキップします（Zip-Slip対策）。
// 受理したエントリの書き出しに失敗した場合は展開全体を失敗させます。
func extractZip(data []byte, destDir string) (int, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, newError(CodeInvalidInput, "ZIPアーカイブを読み込めませんでした。ファイルが破損していないか確認してください。", err)
	}

	destAbs, err := filepath.Abs(destDir)
	if err != nil {
		return 0, fmt.Errorf("展開先ディレクトリの解決に失敗しました: %w", err)
	}

	count := 0
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		base := path.Base(entry.Name)
		if !strings.EqualFold(path.Ext(base), svgExt) {
			continue
		}

		target := filepath.Join(destAbs, sanitizeFilename(base))
		if !insideDir(destAbs, target) {
			continue
		}

		if err := writeZipEntry(entry, target); err != nil {
			return count, fmt.Errorf("ZIPエントリ %q の展開に失敗しました: %w", entry.Name, err)
		}
		count++
	}

	return count, nil
}

func writeZipEntry(entry *zip.File, target string) error {
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// insideDir は target が dir の真の内側に解決されるかを判定します。
// dir 自身を指す場合も false を返します。
func insideDir(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || filepath.IsAbs(rel) {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
