package svg

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const workspacePrefix = "iconforge-"

// workspace はリクエストごとに割り当てる一時ディレクトリ一式です。
// dir の配下に入力用の in/ と出力用の out/ を持ち、dir 全体を単位として破棄します。
type workspace struct {
	id     string
	dir    string
	srcDir string
	outDir string
}

func (s *Service) workspaceFor(id string) workspace {
	dir := filepath.Join(s.workDir, workspacePrefix+id)
	return workspace{
		id:     id,
		dir:    dir,
		srcDir: filepath.Join(dir, "in"),
		outDir: filepath.Join(dir, "out"),
	}
}

// createWorkspace は衝突しない一意な名前でワークスペースを作成します。
func (s *Service) createWorkspace() (workspace, error) {
	ws := s.workspaceFor(uuid.NewString())
	for _, dir := range []string{ws.dir, ws.srcDir, ws.outDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			_ = removeDir(ws.dir)
			return workspace{}, fmt.Errorf("ワークスペースの作成に失敗しました: %w", err)
		}
	}
	return ws, nil
}

// removeDir はディレクトリツリーを再帰的に削除します。
// 既に存在しない場合や一部が欠けている場合もエラーにしません。
func removeDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}
