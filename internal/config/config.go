// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// アップロード/結果管理
	MaxUploadMB         int64  // アップロードの最大サイズ（MB）
	ResultTTLMillis     int64  // 変換結果の保持期間（ミリ秒）
	SweepIntervalMillis int64  // 期限切れ結果の回収間隔（ミリ秒）
	WorkDir             string // ワークスペースの作成先（空の場合はOSの一時ディレクトリ）

	// 変換エンジン設定
	ConverterCmd string // 外部SVG変換コマンドのパス

	// ジョブ/キュー設定
	QueueRedisURL       string // Asynq用Redis接続URL（空の場合は非同期処理を無効化）
	AsyncThresholdBytes int64  // 同期処理から非同期へ切り替えるサイズ閾値
	JobResultBaseURL    string // 結果ファイル取得用のベースURL（外部公開URLを生成する場合に使用）
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// アップロード/結果管理
		MaxUploadMB:         getEnvAsInt64("MAX_UPLOAD_MB", 20),
		ResultTTLMillis:     getEnvAsInt64("RESULT_TTL_MS", 30*60*1000), // 30分
		SweepIntervalMillis: getEnvAsInt64("SWEEP_INTERVAL_MS", 60*1000),
		WorkDir:             getEnv("WORK_DIR", ""),

		// 変換エンジン設定
		ConverterCmd: getEnv("CONVERTER_CMD", "svgo"),

		// ジョブ/キュー設定
		QueueRedisURL:       getEnv("QUEUE_REDIS_URL", ""),
		AsyncThresholdBytes: getEnvAsInt64("ASYNC_THRESHOLD_BYTES", 8*1024*1024), // 8MB
		JobResultBaseURL:    getEnv("JOB_RESULT_BASE_URL", ""),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if c.ResultTTLMillis <= 0 {
		return fmt.Errorf("RESULT_TTL_MS must be positive")
	}
	if c.SweepIntervalMillis <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_MS must be positive")
	}

	// ローカル開発では変換コマンドは任意（テスト時はモックに差し替え可能）
	// 本番環境では厳格にチェックする想定
	if c.GinMode == "release" {
		if c.ConverterCmd == "" {
			return fmt.Errorf("CONVERTER_CMD is required in release mode")
		}
	}

	return nil
}

// MaxUploadBytes はアップロード上限をバイト単位で返します。
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB * 1024 * 1024
}

// ResultTTL は変換結果の保持期間を返します。
func (c *Config) ResultTTL() time.Duration {
	return time.Duration(c.ResultTTLMillis) * time.Millisecond
}

// SweepInterval は期限切れ結果の回収間隔を返します。
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMillis) * time.Millisecond
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt64 は環境変数を64ビット整数として取得します。
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
