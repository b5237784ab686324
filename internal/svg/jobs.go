package svg

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
)

// PrepareConvertJob は非同期実行のために入力を検査してワークスペースへ保存し、
// マニフェストを書き出します。変換自体は行いません。
func (s *Service) PrepareConvertJob(ctx context.Context, file *multipart.FileHeader) (*JobManifest, error) {
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

	count, err := s.populateSource(ws, file.Filename, kind, data)
	if err != nil {
		_ = removeDir(ws.dir)
		return nil, err
	}

	manifest := &JobManifest{
		JobID:        ws.id,
		OriginalName: filepath.Base(file.Filename),
		Kind:         kind,
		Size:         file.Size,
		InputCount:   count,
		CreatedAt:    s.now().UTC(),
	}
	if err := writeManifest(ws.dir, manifest); err != nil {
		_ = removeDir(ws.dir)
		return nil, fmt.Errorf("ジョブマニフェストの保存に失敗しました: %w", err)
	}

	return manifest, nil
}

// RunJob はジョブIDに対応する変換を実行し、結果をレジストリへ登録します。
// 失敗した場合はワークスペースを削除します。
func (s *Service) RunJob(ctx context.Context, jobID string, reporter ProgressReporter) (*ConvertResult, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ws := s.workspaceFor(jobID)
	if _, err := loadManifest(ws.dir); err != nil {
		_ = removeDir(ws.dir)
		return nil, err
	}

	reportProgress(reporter, "convert", 20)

	result, err := s.runConversion(ctx, ws)
	if err != nil {
		_ = removeDir(ws.dir)
		return nil, err
	}

	reportProgress(reporter, "completed", 100)
	return result, nil
}

// DiscardJob は実行されなかったジョブのワークスペースを破棄します。
func (s *Service) DiscardJob(jobID string) error {
	if jobID == "" {
		return nil
	}
	return removeDir(s.workspaceFor(jobID).dir)
}
