package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vish4lsharma/extractor/internal/core/extraction_engine"
	"github.com/vish4lsharma/extractor/internal/core/extractors"
	"github.com/vish4lsharma/extractor/internal/core/taskstore"
	"github.com/vish4lsharma/extractor/internal/models"
	"github.com/vish4lsharma/extractor/internal/services"
)

type harness struct {
	router http.Handler
	engine *extraction_engine.Engine
	dir    string
}

func newHarness(t *testing.T, maxUploadMB int) *harness {
	t.Helper()
	log := zerolog.Nop()
	store := taskstore.New()
	registry := extractors.NewRegistry(extractors.NewPDFExtractor(log), extractors.NewImageExtractor(nil), extractors.NewSpreadsheetExtractor())
	engine := extraction_engine.NewEngine(store, registry, extraction_engine.EngineConfig{ExtractTimeout: 5 * time.Second}, log)
	dir := filepath.Join(t.TempDir(), "uploads")
	svc := services.NewDocumentService(engine, store, registry, dir, log)
	t.Cleanup(func() {
		_ = engine.Close()
		svc.Close()
	})

	h := NewDocumentHandler(svc, maxUploadMB, log)
	r := chi.NewRouter()
	r.Get("/", h.Health)
	r.Get("/formats", h.Formats)
	r.Post("/upload", h.UploadDocument)
	r.Get("/status/{id}", h.GetStatus)
	r.Get("/tasks", h.ListTasks)
	r.Delete("/tasks/{id}", h.DeleteTask)
	r.Get("/tasks/{id}/pages/{page}", h.GetPage)
	r.Get("/tasks/{id}/sheets/{name}", h.GetSheet)
	r.Get("/tasks/{id}/chunks", h.GetChunks)
	return &harness{router: r, engine: engine, dir: dir}
}

func (h *harness) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) upload(t *testing.T, filename, content, query string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload"+query, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return h.do(t, req)
}

func (h *harness) awaitDone(t *testing.T, id string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := h.engine.Await(ctx, id, 5*time.Millisecond)
	require.NoError(t, err)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndFormats(t *testing.T) {
	h := newHarness(t, 10)

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/formats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	formats := decode[map[string][]string](t, rec)
	assert.Contains(t, formats["spreadsheet"], ".csv")
	assert.Contains(t, formats["pdf"], ".pdf")
}

func TestUploadAndStatus(t *testing.T) {
	h := newHarness(t, 10)
	h.engine.Start(context.Background(), 1)

	rec := h.upload(t, "data.csv", "a,b\n1,x\n", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	up := decode[models.UploadResponse](t, rec)
	assert.Equal(t, models.StatusPending, up.Status)
	assert.Equal(t, "Document uploaded and queued for processing", up.Message)
	require.NotEmpty(t, up.TaskID)

	h.awaitDone(t, up.TaskID)

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/status/"+up.TaskID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[models.ExtractionResponse](t, rec)
	assert.Equal(t, models.StatusCompleted, status.Status)
	require.NotNil(t, status.Document)
	assert.Contains(t, status.Document.Content, "Sheet: Sheet1")

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.TaskSummary](t, rec), 1)
}

func TestUploadErrors(t *testing.T) {
	h := newHarness(t, 10)

	rec := h.upload(t, "letter.docx", "PK", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Detail, "unsupported file format")

	rec = h.upload(t, "data.csv", "a\n", "?layout=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	rec = h.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	h := newHarness(t, 1)

	rec := h.upload(t, "big.csv", string(bytes.Repeat([]byte("a,b\n"), 1<<19)), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestStatusAndDeleteNotFound(t *testing.T) {
	h := newHarness(t, 10)

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/status/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task not found", decode[models.ErrorResponse](t, rec).Detail)

	rec = h.do(t, httptest.NewRequest(http.MethodDelete, "/tasks/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTask(t *testing.T) {
	h := newHarness(t, 10)
	up := decode[models.UploadResponse](t, h.upload(t, "data.csv", "a\n1\n", ""))

	rec := h.do(t, httptest.NewRequest(http.MethodDelete, "/tasks/"+up.TaskID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Task "+up.TaskID+" and associated files deleted", decode[models.MessageResponse](t, rec).Message)

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/status/"+up.TaskID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSheetPageAndChunks(t *testing.T) {
	h := newHarness(t, 10)
	up := decode[models.UploadResponse](t, h.upload(t, "data.csv", "a,b\n1,2\n", ""))

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/tasks/"+up.TaskID+"/sheets/Sheet1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a", "b"}, decode[models.SheetData](t, rec).Columns)

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/tasks/"+up.TaskID+"/sheets/Other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/tasks/"+up.TaskID+"/pages/1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/tasks/"+up.TaskID+"/pages/one", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/tasks/"+up.TaskID+"/chunks", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	h.engine.Start(context.Background(), 1)
	h.awaitDone(t, up.TaskID)

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/tasks/"+up.TaskID+"/chunks?target_tokens=20&overlap_tokens=0", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]models.Chunk](t, rec))

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/tasks/"+up.TaskID+"/chunks?target_tokens=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusWithNonFiniteCells(t *testing.T) {
	h := newHarness(t, 10)
	h.engine.Start(context.Background(), 1)

	up := decode[models.UploadResponse](t, h.upload(t, "scores.csv", "name,score\nalice,NaN\nbob,inf\n", ""))
	h.awaitDone(t, up.TaskID)

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/status/"+up.TaskID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[models.ExtractionResponse](t, rec)
	require.Equal(t, models.StatusCompleted, status.Status)
	assert.Equal(t, "NaN", status.Document.StructuredData.Sheets[0].Data[0]["score"])

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/tasks/"+up.TaskID+"/sheets/Sheet1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inf", decode[models.SheetData](t, rec).Data[1]["score"])
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]any{"score": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to encode response", decode[models.ErrorResponse](t, rec).Detail)
}

func TestUploadLongFilename(t *testing.T) {
	h := newHarness(t, 10)

	rec := h.upload(t, strings.Repeat("r", 230)+".csv", "a\n1\n", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestInternalErrorsHideDetail(t *testing.T) {
	h := newHarness(t, 10)
	// A file where the upload directory should be makes every save fail.
	require.NoError(t, os.WriteFile(h.dir, []byte("x"), 0o644))

	rec := h.upload(t, "data.csv", "a\n1\n", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	detail := decode[models.ErrorResponse](t, rec).Detail
	assert.Equal(t, "Internal Server Error", detail)
	assert.NotContains(t, detail, h.dir)
}
