package svg

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// OutputFile は単一出力ファイルのダウンロード情報です。
type OutputFile struct {
	ResultID string
	Filename string
	Size     int64
}

// LookupResult は結果IDに対応するエントリを返します。
// 未登録またはスイープ済みのIDは RESULT_NOT_FOUND として返します
// （システム障害ではなく通常の結果であり、エラーログの対象にはしません）。
func (s *Service) LookupResult(id string) (*ResultEntry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, newError(CodeResultNotFound, "指定された結果は存在しないか、期限切れです。", nil)
	}
	entry, ok := s.registry.Lookup(id)
	if !ok {
		return nil, newError(CodeResultNotFound, "指定された結果は存在しないか、期限切れです。", nil)
	}
	return entry, nil
}

// OpenOutputFile は結果IDと出力ファイル名からファイルを開いて返します。
// ファイル名は sanitizeFilename で正規化した上で、解決後のパスが
// 出力ディレクトリの内側に収まることを確認します。
func (s *Service) OpenOutputFile(id, rawName string) (*OutputFile, *os.File, error) {
	entry, err := s.LookupResult(id)
	if err != nil {
		return nil, nil, err
	}

	outAbs, err := filepath.Abs(entry.OutputDir)
	if err != nil {
		return nil, nil, fmt.Errorf("出力ディレクトリの解決に失敗しました: %w", err)
	}

	name := sanitizeFilename(rawName)
	target := filepath.Join(outAbs, name)
	if !insideDir(outAbs, target) {
		return nil, nil, newError(CodeInvalidInput, "不正なファイル名です。", nil)
	}

	file, err := os.Open(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, newError(CodeFileNotFound, "指定されたファイルは存在しません。", nil)
		}
		return nil, nil, fmt.Errorf("出力ファイルのオープンに失敗しました: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("出力ファイルの情報取得に失敗しました: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, nil, newError(CodeFileNotFound, "指定されたファイルは存在しません。", nil)
	}

	return &OutputFile{
		ResultID: entry.ID,
		Filename: name,
		Size:     info.Size(),
	}, file, nil
}

// StreamOutputs は結果IDの全出力ファイルをZIPとして w へストリームします。
func (s *Service) StreamOutputs(id string, w io.Writer) error {
	entry, err := s.LookupResult(id)
	if err != nil {
		return err
	}
	return writeZipArchive(entry.OutputDir, w)
}
