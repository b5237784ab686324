package svg

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type stubConvertService struct {
	result    *ConvertResult
	manifest  *JobManifest
	err       error
	discarded []string
}

func (s *stubConvertService) ConvertMultipart(ctx context.Context, file *multipart.FileHeader) (*ConvertResult, error) {
	return s.result, s.err
}

func (s *stubConvertService) PrepareConvertJob(ctx context.Context, file *multipart.FileHeader) (*JobManifest, error) {
	return s.manifest, s.err
}

func (s *stubConvertService) DiscardJob(jobID string) error {
	s.discarded = append(s.discarded, jobID)
	return nil
}

type stubResultService struct {
	outputDir string
	err       error
}

func (s *stubResultService) LookupResult(id string) (*ResultEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ResultEntry{
		ID:           id,
		WorkspaceDir: filepath.Dir(s.outputDir),
		OutputDir:    s.outputDir,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (s *stubResultService) OpenOutputFile(id, name string) (*OutputFile, *os.File, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	file, err := os.Open(filepath.Join(s.outputDir, name))
	if err != nil {
		return nil, nil, newError(CodeFileNotFound, "指定されたファイルは存在しません。", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	return &OutputFile{ResultID: id, Filename: name, Size: info.Size()}, file, nil
}

func (s *stubResultService) StreamOutputs(id string, w io.Writer) error {
	if s.err != nil {
		return s.err
	}
	return writeZipArchive(s.outputDir, w)
}

type stubScheduler struct {
	scheduled []string
	err       error
}

func (s *stubScheduler) Schedule(ctx context.Context, jobID string) error {
	if s.err != nil {
		return s.err
	}
	s.scheduled = append(s.scheduled, jobID)
	return s.err
}

func newConvertRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := io.Copy(fw, bytes.NewReader(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/convert", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestConvertHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &stubConvertService{
		result: &ConvertResult{
			ID:         "abc123",
			Files:      []string{"a.svg", "b.svg"},
			BaseURL:    "/r/abc123",
			TTLMinutes: 30,
		},
	}

	rec := httptest.NewRecorder()
	router := gin.New()
	router.POST("/api/convert", ConvertHandler(service, HandlerOptions{}))
	router.ServeHTTP(rec, newConvertRequest(t, "icons.zip", []byte("dummy")))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}

	var payload struct {
		ID         string   `json:"id"`
		Files      []string `json:"files"`
		BaseURL    string   `json:"baseUrl"`
		TTLMinutes int      `json:"ttlMinutes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload.ID != "abc123" || payload.BaseURL != "/r/abc123" || payload.TTLMinutes != 30 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if len(payload.Files) != 2 {
		t.Fatalf("unexpected files: %#v", payload.Files)
	}
}

func TestConvertHandlerMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &stubConvertService{}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("name", "value"); err != nil {
		t.Fatalf("failed to write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/convert", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	router := gin.New()
	router.POST("/api/convert", ConvertHandler(service, HandlerOptions{}))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestConvertHandlerLimitExceeded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &stubConvertService{
		err: &Error{Code: CodeLimitExceeded, Message: "サイズ上限を超えています"},
	}

	rec := httptest.NewRecorder()
	router := gin.New()
	router.POST("/api/convert", ConvertHandler(service, HandlerOptions{}))
	router.ServeHTTP(rec, newConvertRequest(t, "big.zip", []byte("dummy")))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload["code"] != CodeLimitExceeded {
		t.Fatalf("unexpected code: %s", payload["code"])
	}
}

func TestConvertHandlerConvertFailed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &stubConvertService{
		err: &Error{Code: CodeConvertFailed, Message: "変換に失敗しました"},
	}

	rec := httptest.NewRecorder()
	router := gin.New()
	router.POST("/api/convert", ConvertHandler(service, HandlerOptions{}))
	router.ServeHTTP(rec, newConvertRequest(t, "icon.svg", []byte("dummy")))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestConvertHandlerAsync(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &stubConvertService{
		manifest: &JobManifest{JobID: "job-1", Kind: UploadKindZIP},
	}
	scheduler := &stubScheduler{}

	rec := httptest.NewRecorder()
	router := gin.New()
	router.POST("/api/convert", ConvertHandler(service, HandlerOptions{
		Scheduler:           scheduler,
		AsyncThresholdBytes: 1,
	}))
	router.ServeHTTP(rec, newConvertRequest(t, "icons.zip", []byte("more than one byte")))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if len(scheduler.scheduled) != 1 || scheduler.scheduled[0] != "job-1" {
		t.Fatalf("unexpected scheduled jobs: %#v", scheduler.scheduled)
	}
}

func TestConvertHandlerAsyncScheduleFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &stubConvertService{
		manifest: &JobManifest{JobID: "job-1", Kind: UploadKindZIP},
	}
	scheduler := &stubScheduler{err: io.ErrClosedPipe}

	rec := httptest.NewRecorder()
	router := gin.New()
	router.POST("/api/convert", ConvertHandler(service, HandlerOptions{
		Scheduler:           scheduler,
		AsyncThresholdBytes: 1,
	}))
	router.ServeHTTP(rec, newConvertRequest(t, "icons.zip", []byte("more than one byte")))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if len(service.discarded) != 1 || service.discarded[0] != "job-1" {
		t.Fatalf("expected workspace discard, got %#v", service.discarded)
	}
}

func TestFileHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	outputDir := t.TempDir()
	writeTestFile(t, outputDir, "icon.svg", testSVG)
	service := &stubResultService{outputDir: outputDir}

	req := httptest.NewRequest(http.MethodGet, "/r/abc123/file/icon.svg", nil)
	rec := httptest.NewRecorder()

	router := gin.New()
	router.GET("/r/:id/file/:name", FileHandler(service))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != svgContentType {
		t.Fatalf("unexpected content-type: %s", ct)
	}
	if rec.Header().Get("X-Result-Id") != "abc123" {
		t.Fatalf("unexpected X-Result-Id: %s", rec.Header().Get("X-Result-Id"))
	}
	if rec.Body.String() != testSVG {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestFileHandlerNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &stubResultService{
		err: &Error{Code: CodeResultNotFound, Message: "指定された結果は存在しないか、期限切れです。"},
	}

	req := httptest.NewRequest(http.MethodGet, "/r/gone/file/icon.svg", nil)
	rec := httptest.NewRecorder()

	router := gin.New()
	router.GET("/r/:id/file/:name", FileHandler(service))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestZipHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	outputDir := t.TempDir()
	writeTestFile(t, outputDir, "a.svg", "content-a")
	writeTestFile(t, outputDir, "b.svg", "content-b")
	service := &stubResultService{outputDir: outputDir}

	req := httptest.NewRequest(http.MethodGet, "/r/abc123/zip", nil)
	rec := httptest.NewRecorder()

	router := gin.New()
	router.GET("/r/:id/zip", ZipHandler(service))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("unexpected content-type: %s", ct)
	}

	reader, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("failed to read streamed zip: %v", err)
	}
	if len(reader.File) != 2 {
		t.Fatalf("unexpected entry count: %d", len(reader.File))
	}
}

func TestZipHandlerNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &stubResultService{
		err: &Error{Code: CodeResultNotFound, Message: "指定された結果は存在しないか、期限切れです。"},
	}

	req := httptest.NewRequest(http.MethodGet, "/r/gone/zip", nil)
	rec := httptest.NewRecorder()

	router := gin.New()
	router.GET("/r/:id/zip", ZipHandler(service))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestConvertHandlerNotMultipart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &stubConvertService{}

	req := httptest.NewRequest(http.MethodPost, "/api/convert", bytes.NewBufferString(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router := gin.New()
	router.POST("/api/convert", ConvertHandler(service, HandlerOptions{}))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}
