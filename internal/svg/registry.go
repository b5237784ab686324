package svg

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"
)

// ResultEntry は登録済みの変換結果1件を表します。
// WorkspaceDir はこのエントリが排他的に所有する一時ディレクトリで、
// OutputDir はその内側にある変換結果の置き場所です。
type ResultEntry struct {
	ID           string
	WorkspaceDir string
	OutputDir    string
	CreatedAt    time.Time
}

// Registry は結果IDと対応するワークスペースをメモリ上で管理します。
// リクエスト間で共有される唯一の可変状態であり、構造の変更はミューテックスで
// 直列化します。エントリの削除は定期スイープのみが行います。
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*ResultEntry
	ttl     time.Duration
}

// NewRegistry は指定されたTTLでレジストリを作成します。
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		entries: make(map[string]*ResultEntry),
		ttl:     ttl,
	}
}

// TTL は結果の保持期間を返します。
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// Register はエントリを登録します。変換が成功して出力が確認できた後に
// IDごとに一度だけ呼ばれます。
func (r *Registry) Register(entry *ResultEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = entry
}

// Lookup はIDに対応するエントリを返します。
// TTLの再判定は行いません。期限切れ後でもスイープ前であれば成功します
// （参照時の遅延を避けるための意図的なトレードオフ）。
func (r *Registry) Lookup(id string) (*ResultEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	return entry, ok
}

// Len は登録中のエントリ数を返します。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep は now 時点で期限切れのエントリを取り除き、削除した件数を返します。
// ワークスペースの削除はロック解放後に行うため、ディスクI/Oの遅延が
// 並行する Lookup / Register を塞ぐことはありません。
// 個々の削除失敗は残りの処理を中断しません。
func (r *Registry) Sweep(now time.Time) int {
	var expired []*ResultEntry

	r.mu.Lock()
	for id, entry := range r.entries {
		if now.Sub(entry.CreatedAt) > r.ttl {
			expired = append(expired, entry)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, entry := range expired {
		_ = removeDir(entry.WorkspaceDir)
	}

	return len(expired)
}

// StartSweeper は一定間隔のスイープをバックグラウンドで開始し、
// 停止用の関数を返します。停止関数は複数回呼んでも安全です。
func (r *Registry) StartSweeper(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				if removed := r.Sweep(now); removed > 0 {
					log.Printf("sweep: removed %d expired result(s)", removed)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// newResultID は推測不能な結果IDを生成します（128ビットの乱数を16進表記）。
// 衝突の可能性は無視できるほど小さいため重複チェックは行いません。
func newResultID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("結果IDの生成に失敗しました: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
