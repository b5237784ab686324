package svg

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// writeZipArchive は dir 直下のファイルをZIPとして w へ逐次書き込みます。
// アーカイブ全体をメモリへ構築せず、エントリごとにストリームします。
// エントリ名はベース名のみを使い、昇順で追加します。
// 書き込みに失敗した場合は即座に中断してエラーを返します。途中まで w へ
// 書き出された内容は取り消せないため、呼び出し側はヘッダー送信済みとして扱います。
func writeZipArchive(dir string, w io.Writer) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("出力ディレクトリの読み込みに失敗しました: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	zipWriter := zip.NewWriter(w)

	for _, name := range names {
		if err := appendZipEntry(zipWriter, filepath.Join(dir, name)); err != nil {
			zipWriter.Close()
			return err
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("zipストリームのクローズに失敗しました: %w", err)
	}
	return nil
}

func appendZipEntry(zipWriter *zip.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("zip入力ファイルのオープンに失敗しました: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("zip入力ファイルの情報取得に失敗しました: %w", err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zipヘッダーの生成に失敗しました: %w", err)
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("zipヘッダーの書き込みに失敗しました: %w", err)
	}

	if _, err := io.Copy(writer, file); err != nil {
		return fmt.Errorf("zipへの書き込みに失敗しました: %w", err)
	}
	return nil
}
