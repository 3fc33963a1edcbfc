package app

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vish4lsharma/extractor/internal/config"
	"github.com/vish4lsharma/extractor/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Port:           "0",
		UploadDir:      t.TempDir(),
		Workers:        2,
		QueueSize:      4,
		ExtractTimeout: 5 * time.Second,
		MaxUploadMB:    5,
		OCRLanguages:   []string{"eng"},
		CorsOrigins:    []string{"http://localhost:5173"},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := NewApp(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestRoutesEndToEnd(t *testing.T) {
	a := newTestApp(t)
	h := a.Server.httpServer.Handler

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "people.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("name,age\nada,36\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var up models.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	task, err := a.Engine.Await(ctx, up.TaskID, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, task.Status)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.TaskSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, models.KindSpreadsheet, list[0].Kind)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/"+up.TaskID+"/sheets/Sheet1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/tasks/"+up.TaskID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/"+up.TaskID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	a.Server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCloseIsIdempotentForEngine(t *testing.T) {
	a, err := NewApp(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, a.Close(context.Background()))
	assert.NoError(t, a.Engine.Close())
}

func TestCORSWildcardWithoutCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.CorsOrigins = []string{"*"}
	a, err := NewApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	a.Server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}
