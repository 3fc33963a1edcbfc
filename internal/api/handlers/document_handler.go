package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vish4lsharma/extractor/internal/core"
	"github.com/vish4lsharma/extractor/internal/core/extraction_engine"
	"github.com/vish4lsharma/extractor/internal/models"
	"github.com/vish4lsharma/extractor/internal/services"
)

type DocumentHandler struct {
	svc            *services.DocumentService
	maxUploadBytes int64
	log            zerolog.Logger
}

func NewDocumentHandler(svc *services.DocumentService, maxUploadMB int, log zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{
		svc:            svc,
		maxUploadBytes: int64(maxUploadMB) << 20,
		log:            log.With().Str("component", "document_handler").Logger(),
	}
}

// Health answers the root liveness check.
func (h *DocumentHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Document Extraction API is running",
		"status":  "healthy",
	})
}

func (h *DocumentHandler) Formats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.SupportedFormats())
}

// UploadDocument accepts a multipart "file" field and queues it for
// extraction. ?layout=true asks for block-preserving OCR on images.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeDetail(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeDetail(w, http.StatusBadRequest, "No file provided")
		return
	}

	layout := false
	if v := r.URL.Query().Get("layout"); v != "" {
		if layout, err = strconv.ParseBool(v); err != nil {
			writeDetail(w, http.StatusBadRequest, "layout must be a boolean")
			return
		}
	}

	id, err := h.svc.SubmitDocument(r.Context(), file, header.Filename, layout)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.log.Info().Str("task_id", id).Str("filename", header.Filename).Int64("size", header.Size).Msg("document queued")
	writeJSON(w, http.StatusOK, models.UploadResponse{
		TaskID:  id,
		Status:  models.StatusPending,
		Message: "Document uploaded and queued for processing",
	})
}

func (h *DocumentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, core.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DocumentHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListTasks(r.Context()))
}

func (h *DocumentHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.svc.DeleteTask(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{
		Message: fmt.Sprintf("Task %s and associated files deleted", id),
	})
}

// GetPage returns the text of one page of a PDF task.
func (h *DocumentHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "page must be an integer")
		return
	}
	id := chi.URLParam(r, "id")
	text, err := h.svc.PageText(r.Context(), id, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"task_id": id,
		"page":    page,
		"content": text,
	})
}

func (h *DocumentHandler) GetSheet(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.svc.Sheet(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

// GetChunks splits completed content; target_tokens and overlap_tokens
// override the defaults.
func (h *DocumentHandler) GetChunks(w http.ResponseWriter, r *http.Request) {
	cfg := extraction_engine.DefaultChunkConfig()
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"target_tokens", &cfg.TargetTokens},
		{"overlap_tokens", &cfg.OverlapTokens},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeDetail(w, http.StatusBadRequest, p.name+" must be a non-negative integer")
			return
		}
		*p.dst = n
	}

	chunks, err := h.svc.Chunks(r.Context(), chi.URLParam(r, "id"), cfg)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chunks)
}

func (h *DocumentHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		// Internal error text stays in the log.
		writeDetail(w, status, http.StatusText(status))
		return
	}
	writeDetail(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInfected), errors.Is(err, core.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTaskNotReady):
		return http.StatusConflict
	case errors.Is(err, extraction_engine.ErrEngineClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, models.ErrorResponse{Detail: detail})
}

// writeJSON encodes v before touching the response so an encoding failure
// still produces a well-formed 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		json.NewEncoder(&buf).Encode(models.ErrorResponse{Detail: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
