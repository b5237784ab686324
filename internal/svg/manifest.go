package svg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const manifestFilename = "manifest.json"

// UploadKind はアップロードされた入力の種類を表します。
type UploadKind string

const (
	UploadKindSVG UploadKind = "svg"
	UploadKindZIP UploadKind = "zip"
)

// JobManifest は非同期ジョブの実行に必要な情報を保持します。
// 入力ファイルはワークスペースの in/ に保存済みであることを前提とします。
type JobManifest struct {
	JobID        string     `json:"jobId"`
	OriginalName string     `json:"originalName"`
	Kind         UploadKind `json:"kind"`
	Size         int64      `json:"size"`
	InputCount   int        `json:"inputCount"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func writeManifest(jobDir string, manifest *JobManifest) error {
	if manifest == nil {
		return fmt.Errorf("manifest is nil")
	}
	path := filepath.Join(jobDir, manifestFilename)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(manifest)
}

func loadManifest(jobDir string) (*JobManifest, error) {
	path := filepath.Join(jobDir, manifestFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var manifest JobManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &manifest, nil
}
