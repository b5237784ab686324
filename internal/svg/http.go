package svg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"

	"github.com/gin-gonic/gin"
)

const (
	svgContentType = "image/svg+xml"
	bundleFilename = "icons.zip"
)

// ConvertService は変換リクエストの準備と実行を提供します。
type ConvertService interface {
	ConvertMultipart(ctx context.Context, file *multipart.FileHeader) (*ConvertResult, error)
	PrepareConvertJob(ctx context.Context, file *multipart.FileHeader) (*JobManifest, error)
	DiscardJob(jobID string) error
}

// ResultService は登録済み結果の参照とダウンロードを提供します。
type ResultService interface {
	LookupResult(id string) (*ResultEntry, error)
	OpenOutputFile(id, name string) (*OutputFile, *os.File, error)
	StreamOutputs(id string, w io.Writer) error
}

// JobScheduler はジョブを非同期キューに投入するためのインターフェースです。
type JobScheduler interface {
	Schedule(ctx context.Context, jobID string) error
}

// HandlerOptions は同期/非同期切り替えのための設定です。
type HandlerOptions struct {
	Scheduler           JobScheduler
	AsyncThresholdBytes int64
}

// ConvertHandler は POST /api/convert のハンドラーを返します。
func ConvertHandler(svc ConvertService, opts HandlerOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    CodeInvalidInput,
				"message": "multipart/form-data でファイルを送信してください。",
			})
			return
		}
		defer form.RemoveAll()

		file, err := extractSingleFile(form)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    CodeInvalidInput,
				"message": err.Error(),
			})
			return
		}

		if shouldProcessAsync(file, opts) {
			manifest, err := svc.PrepareConvertJob(c.Request.Context(), file)
			if err != nil {
				respondWithError(c, err)
				return
			}
			if err := opts.Scheduler.Schedule(c.Request.Context(), manifest.JobID); err != nil {
				if cleanupErr := svc.DiscardJob(manifest.JobID); cleanupErr != nil {
					err = fmt.Errorf("%w (cleanup failed: %v)", err, cleanupErr)
				}
				respondWithError(c, err)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"jobId": manifest.JobID})
			return
		}

		result, err := svc.ConvertMultipart(c.Request.Context(), file)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// FileHandler は GET /r/:id/file/:name のハンドラーを返します。
func FileHandler(svc ResultService) gin.HandlerFunc {
	return func(c *gin.Context) {
		output, file, err := svc.OpenOutputFile(c.Param("id"), c.Param("name"))
		if err != nil {
			respondWithError(c, err)
			return
		}
		defer file.Close()

		encodedName := url.PathEscape(output.Filename)
		c.Header("Content-Type", svgContentType)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", output.Filename, encodedName))
		c.Header("Cache-Control", "no-store")
		c.Header("X-Result-Id", output.ResultID)
		c.DataFromReader(http.StatusOK, output.Size, svgContentType, file, nil)
	}
}

// ZipHandler は GET /r/:id/zip のハンドラーを返します。
// ヘッダー送信後のストリーム失敗はエラー応答へ変換できないため、
// サーバー側のログにのみ残します。
func ZipHandler(svc ResultService) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := svc.LookupResult(c.Param("id"))
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.Header("Content-Type", "application/zip")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", bundleFilename))
		c.Header("Cache-Control", "no-store")
		c.Header("X-Result-Id", entry.ID)
		c.Status(http.StatusOK)

		if err := svc.StreamOutputs(entry.ID, c.Writer); err != nil {
			log.Printf("zip stream failed result=%s: %v", entry.ID, err)
		}
	}
}

func shouldProcessAsync(file *multipart.FileHeader, opts HandlerOptions) bool {
	if file == nil || opts.Scheduler == nil || opts.AsyncThresholdBytes <= 0 {
		return false
	}
	return file.Size > opts.AsyncThresholdBytes
}

func respondWithError(c *gin.Context, err error) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		status := http.StatusBadRequest
		switch apiErr.Code {
		case CodeLimitExceeded:
			status = http.StatusRequestEntityTooLarge
		case CodeResultNotFound, CodeFileNotFound:
			status = http.StatusNotFound
		case CodeConvertFailed, CodeEmptyResult:
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{
			"code":    "REQUEST_CANCELED",
			"message": "リクエストがキャンセルされました。",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "サーバー内部でエラーが発生しました。",
		})
	}
}

func extractSingleFile(form *multipart.Form) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, errors.New("SVGまたはZIPファイルを選択してください。")
	}
	if file := form.File["file"]; len(file) > 0 {
		return file[0], nil
	}
	if file := form.File["file[]"]; len(file) > 0 {
		return file[0], nil
	}
	if files := form.File["files"]; len(files) > 0 {
		return files[0], nil
	}
	if alt := form.File["files[]"]; len(alt) > 0 {
		return alt[0], nil
	}
	return nil, errors.New("SVGまたはZIPファイルを選択してください。")
}
