// Package jobs は大きなアップロードを非同期で変換するためのジョブ管理機能を提供します。
// ジョブの進捗は Redis に保存しますが、変換結果そのものの所在は
// svg パッケージのレジストリのみが管理します。
package jobs

import "time"

// Status はジョブの実行状態を表します。
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "done"
	StatusFailed    Status = "error"
)

// ProgressInfo は進捗の補足情報を表します。
type ProgressInfo struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorInfo はジョブ失敗時のエラー情報を保持します。
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Record はジョブの現在状態を表します。
type Record struct {
	JobID       string       `json:"jobId"`
	Status      Status       `json:"status"`
	Progress    ProgressInfo `json:"progress"`
	ResultID    string       `json:"resultId,omitempty"`
	Files       []string     `json:"files,omitempty"`
	DownloadURL string       `json:"downloadUrl,omitempty"`
	Error       *ErrorInfo   `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	ExpiresAt   time.Time    `json:"expiresAt"`
}
