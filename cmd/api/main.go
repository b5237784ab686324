// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/icon-forge/internal/config"
	"github.com/yourusername/icon-forge/internal/jobs"
	"github.com/yourusername/icon-forge/internal/svg"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	router.Use(cors.New(corsConfig))

	// 結果レジストリと変換サービスの初期化
	registry := svg.NewRegistry(cfg.ResultTTL())
	svgService := svg.NewService(cfg, registry, nil)

	// 期限切れ結果の定期スイープを開始（停止関数はシャットダウン時に呼ぶ）
	stopSweeper := registry.StartSweeper(cfg.SweepInterval())

	// 非同期ジョブキューの初期化（Redis未設定の場合は同期処理のみ）
	var jobManager *jobs.Manager
	handlerOpts := svg.HandlerOptions{}
	if cfg.QueueRedisURL != "" {
		jobManager, err = setupJobs(cfg, svgService)
		if err != nil {
			log.Fatalf("Failed to setup job queue: %v", err)
		}
		jobManager.StartWorkers()
		handlerOpts = svg.HandlerOptions{
			Scheduler:           &convertJobScheduler{manager: jobManager},
			AsyncThresholdBytes: cfg.AsyncThresholdBytes,
		}
	}

	// ルーティングの設定
	setupRoutes(router, svgService, jobManager, handlerOpts)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// シグナル受信でグレースフルシャットダウン
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		stopSweeper()
		if jobManager != nil {
			if err := jobManager.Shutdown(shutdownCtx); err != nil {
				log.Printf("Job manager shutdown error: %v", err)
			}
		}
	}()

	log.Printf("Starting API server on :%s (mode: %s)", cfg.Port, cfg.GinMode)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "icon-forge-api",
		"version": "0.1.0",
	})
}

// setupRoutes は API とダウンロード周りの配線を行います。
func setupRoutes(router *gin.Engine, svgService *svg.Service, jobManager *jobs.Manager, opts svg.HandlerOptions) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/healthz", handleHealth)

	api := router.Group("/api")
	{
		api.POST("/convert", svg.ConvertHandler(svgService, opts))
		if jobManager != nil {
			api.GET("/jobs/:id", jobStatusHandler(jobManager))
		}
	}

	results := router.Group("/r")
	{
		results.GET("/:id/file/:name", svg.FileHandler(svgService))
		results.GET("/:id/zip", svg.ZipHandler(svgService))
	}
}
