// Package svg はSVG変換サービスのコア機能を提供します。
// アップロードの受け入れ、ワークスペースの割り当て、外部コンバーターの起動、
// 変換結果のTTL付き管理とダウンロード提供までを担います。
package svg

import (
	"context"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/yourusername/icon-forge/internal/config"
)

const zipExt = ".zip"

// Service はSVG変換のユースケースをまとめたサービスです。
type Service struct {
	cfg       *config.Config
	registry  *Registry
	converter Converter
	workDir   string
	now       func() time.Time
}

// NewService は Service を作成します。converter が nil の場合は設定された
// 外部コマンドを起動する実装を使います。
func NewService(cfg *config.Config, registry *Registry, converter Converter) *Service {
	if converter == nil {
		converter = newExecConverter(cfg.ConverterCmd)
	}
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	if abs, err := filepath.Abs(workDir); err == nil {
		workDir = abs
	}
	return &Service{
		cfg:       cfg,
		registry:  registry,
		converter: converter,
		workDir:   workDir,
		now:       time.Now,
	}
}

// ConvertResult は変換リクエストの応答内容です。
type ConvertResult struct {
	ID         string   `json:"id"`
	Files      []string `json:"files"`
	BaseURL    string   `json:"baseUrl"`
	TTLMinutes int      `json:"ttlMinutes"`
}

// ConvertMultipart はアップロードされた .svg または .zip を同期変換し、
// 結果をレジストリへ登録して返します。
// サイズ上限・拡張子・内容の検査はワークスペース作成より前に行い、
// 登録に至らなかったワークスペースは応答前に必ず削除します。
func (s *Service) ConvertMultipart(ctx context.Context, file *multipart.FileHeader) (*ConvertResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if file == nil {
		return nil, newError(CodeInvalidInput, "SVGまたはZIPファイルを選択してください。", nil)
	}

	data, kind, err := s.readUpload(file)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ws, err := s.createWorkspace()
	if err != nil {
		return nil, err
	}

	if _, err := s.populateSource(ws, file.Filename, kind, data); err != nil {
		_ = removeDir(ws.dir)
		return nil, err
	}

	result, err := s.runConversion(ctx, ws)
	if err != nil {
		_ = removeDir(ws.dir)
		return nil, err
	}
	return result, nil
}

// readUpload はアップロード内容を検査して読み込みます。
// ワークスペースを作る前に拒否できるものはここですべて拒否します。
func (s *Service) readUpload(file *multipart.FileHeader) ([]byte, UploadKind, error) {
	limit := s.cfg.MaxUploadBytes()
	if file.Size > limit {
		return nil, "", newError(CodeLimitExceeded,
			fmt.Sprintf("アップロードサイズが上限(%dMB)を超えています。", s.cfg.MaxUploadMB), nil)
	}

	var kind UploadKind
	switch strings.ToLower(filepath.Ext(file.Filename)) {
	case svgExt:
		kind = UploadKindSVG
	case zipExt:
		kind = UploadKindZIP
	default:
		return nil, "", newError(CodeInvalidInput, ".svg または .zip のファイルのみ対応しています。", nil)
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("アップロードファイルのオープンに失敗しました: %w", err)
	}
	defer src.Close()

	// ヘッダー申告サイズは信用しない
	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("アップロードファイルの読み込みに失敗しました: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, "", newError(CodeLimitExceeded,
			fmt.Sprintf("アップロードサイズが上限(%dMB)を超えています。", s.cfg.MaxUploadMB), nil)
	}
	if len(data) == 0 {
		return nil, "", newError(CodeInvalidInput, "空のファイルはアップロードできません。", nil)
	}

	mime := mimetype.Detect(data)
	switch kind {
	case UploadKindZIP:
		if !mime.Is("application/zip") {
			return nil, "", newError(CodeInvalidInput, "ZIPファイルとして認識できません。", nil)
		}
	case UploadKindSVG:
		if !mime.Is("image/svg+xml") {
			return nil, "", newError(CodeInvalidInput, "SVGファイルとして認識できません。", nil)
		}
	}

	return data, kind, nil
}

// populateSource は入力ファイルをワークスペースの in/ へ配置し、件数を返します。
func (s *Service) populateSource(ws workspace, originalName string, kind UploadKind, data []byte) (int, error) {
	switch kind {
	case UploadKindZIP:
		count, err := extractZip(data, ws.srcDir)
		if err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, newError(CodeInvalidInput, "ZIP内に変換対象のSVGファイルが見つかりません。", nil)
		}
		return count, nil
	case UploadKindSVG:
		name := sanitizeFilename(originalName)
		if err := os.WriteFile(filepath.Join(ws.srcDir, name), data, 0o640); err != nil {
			return 0, fmt.Errorf("アップロードファイルの保存に失敗しました: %w", err)
		}
		return 1, nil
	default:
		return 0, fmt.Errorf("unsupported upload kind: %s", kind)
	}
}

// runConversion は変換を実行し、出力を確認できた場合のみ結果を登録します。
// 登録後のワークスペースはレジストリが所有し、スイープのみが削除します。
func (s *Service) runConversion(ctx context.Context, ws workspace) (*ConvertResult, error) {
	if err := s.converter.Convert(ctx, ws.srcDir, ws.outDir); err != nil {
		return nil, err
	}

	files, err := listOutputs(ws.outDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, newError(CodeEmptyResult, "変換結果が1件も生成されませんでした。", nil)
	}

	id, err := newResultID()
	if err != nil {
		return nil, err
	}

	s.registry.Register(&ResultEntry{
		ID:           id,
		WorkspaceDir: ws.dir,
		OutputDir:    ws.outDir,
		CreatedAt:    s.now().UTC(),
	})

	return &ConvertResult{
		ID:         id,
		Files:      files,
		BaseURL:    "/r/" + id,
		TTLMinutes: int(math.Round(s.registry.TTL().Minutes())),
	}, nil
}
