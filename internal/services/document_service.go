package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"code.sajari.com/docconv"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vish4lsharma/extractor/internal/core"
	"github.com/vish4lsharma/extractor/internal/core/extraction_engine"
	"github.com/vish4lsharma/extractor/internal/core/extractors"
	"github.com/vish4lsharma/extractor/internal/models"
)

// DocumentService implements the public operations on extraction tasks.
type DocumentService struct {
	engine    *extraction_engine.Engine
	store     core.TaskStore
	registry  *extractors.Registry
	uploadDir string
	storage   core.ObjectClient
	scanner   core.Scanner
	log       zerolog.Logger
}

type ServiceOption func(*DocumentService)

// WithObjectStorage mirrors every accepted upload to object storage.
func WithObjectStorage(storage core.ObjectClient) ServiceOption {
	return func(s *DocumentService) { s.storage = storage }
}

// WithScanner rejects uploads the scanner flags.
func WithScanner(scanner core.Scanner) ServiceOption {
	return func(s *DocumentService) { s.scanner = scanner }
}

func NewDocumentService(engine *extraction_engine.Engine, store core.TaskStore, registry *extractors.Registry, uploadDir string, log zerolog.Logger, opts ...ServiceOption) *DocumentService {
	s := &DocumentService{
		engine:    engine,
		store:     store,
		registry:  registry,
		uploadDir: uploadDir,
		log:       log.With().Str("component", "document_service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitDocument stores the upload as {uploadDir}/{taskID}_{filename} and
// queues it. Unsupported formats are rejected before anything is written;
// any later failure removes what was written.
func (s *DocumentService) SubmitDocument(ctx context.Context, r io.Reader, filename string, layout bool) (taskID string, err error) {
	name := SanitizeFilename(filepath.Base(filename))
	if _, err := extractors.Classify(name); err != nil {
		return "", err
	}

	taskID = uuid.NewString()
	stored := taskID + "_" + truncateFilename(name, maxFilenameLen-len(taskID)-1)
	dst := filepath.Join(s.uploadDir, stored)

	hash, err := s.save(r, dst)
	if err != nil {
		return "", err
	}

	var objectKey string
	defer func() {
		if err == nil {
			return
		}
		s.removeFile(dst)
		if objectKey != "" {
			s.removeObject(context.WithoutCancel(ctx), objectKey)
		}
	}()

	if s.scanner != nil {
		if err := s.scanner.ScanFile(ctx, dst); err != nil {
			return "", fmt.Errorf("scan %s: %w", name, err)
		}
	}

	contentType := docconv.MimeTypeByExtension(name)
	if s.storage != nil {
		objectKey = s.mirror(ctx, dst, path.Join("uploads", stored), contentType)
	}

	id, err := s.engine.Submit(ctx, dst, name,
		extraction_engine.WithTaskID(taskID),
		extraction_engine.WithLayout(layout),
		extraction_engine.WithFileHash(hash),
		extraction_engine.WithContentType(contentType),
		extraction_engine.WithObjectKey(objectKey),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// save writes r to dst and returns the hex sha256 of the content.
func (s *DocumentService) save(r io.Reader, dst string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(f, h), r); err != nil {
		f.Close()
		s.removeFile(dst)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		s.removeFile(dst)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// mirror copies the stored file to object storage. Mirroring is best effort:
// a failure is logged and the task proceeds without an object key.
func (s *DocumentService) mirror(ctx context.Context, src, key, contentType string) string {
	f, err := os.Open(src)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("mirror: open upload")
		return ""
	}
	defer f.Close()

	url, err := s.storage.UploadFile(ctx, key, f, contentType)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("mirror: upload failed")
		return ""
	}
	s.log.Debug().Str("url", url).Msg("upload mirrored")
	return key
}

// GetStatus reports the current state of a task; the document is included
// only once extraction has completed.
func (s *DocumentService) GetStatus(ctx context.Context, id string) (*models.ExtractionResponse, error) {
	task, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	resp := &models.ExtractionResponse{
		TaskID:  task.ID,
		Status:  task.Status,
		Message: fmt.Sprintf("Document extraction %s", task.Status),
	}
	switch task.Status {
	case models.StatusFailed:
		resp.Message = fmt.Sprintf("Processing failed: %s", task.Error)
	case models.StatusCompleted:
		res := task.Result
		resp.Document = &models.DocumentInfo{
			Filename:       task.OriginalFilename,
			ContentType:    task.ContentType,
			FileHash:       task.FileHash,
			Content:        res.Content,
			PageCount:      res.PageCount,
			Metadata:       res.Metadata,
			StructuredData: res.StructuredData,
			Stats:          ComputeTextStats(res.Content),
		}
	}
	return resp, nil
}

// DeleteTask removes the task, its backing file and its mirrored object.
// A task still being processed is removed too; its result is discarded.
func (s *DocumentService) DeleteTask(ctx context.Context, id string) error {
	task, err := s.store.Delete(id)
	if err != nil {
		return err
	}
	s.removeFile(task.SourcePath)
	if task.ObjectKey != "" && s.storage != nil {
		s.removeObject(ctx, task.ObjectKey)
	}
	s.log.Info().Str("task_id", id).Msg("task deleted")
	return nil
}

// ListTasks returns a summary of every known task, oldest first.
func (s *DocumentService) ListTasks(ctx context.Context) []models.TaskSummary {
	tasks := s.store.List()
	out := make([]models.TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, models.TaskSummary{
			TaskID:    t.ID,
			Filename:  t.OriginalFilename,
			Kind:      t.Kind,
			Status:    t.Status,
			CreatedAt: t.CreatedAt,
		})
	}
	return out
}

// PageText extracts a single page of a PDF task on demand.
func (s *DocumentService) PageText(ctx context.Context, id string, page int) (string, error) {
	task, err := s.taskOfKind(id, models.KindPDF)
	if err != nil {
		return "", err
	}
	ex, err := s.registry.For(models.KindPDF)
	if err != nil {
		return "", err
	}
	pe, ok := ex.(core.PageExtractor)
	if !ok {
		return "", fmt.Errorf("page extraction: %w", core.ErrUnsupportedFormat)
	}
	return pe.ExtractPage(ctx, task.SourcePath, page)
}

// Sheet extracts a single worksheet of a spreadsheet task on demand.
func (s *DocumentService) Sheet(ctx context.Context, id, name string) (*models.SheetData, error) {
	task, err := s.taskOfKind(id, models.KindSpreadsheet)
	if err != nil {
		return nil, err
	}
	ex, err := s.registry.For(models.KindSpreadsheet)
	if err != nil {
		return nil, err
	}
	se, ok := ex.(core.SheetExtractor)
	if !ok {
		return nil, fmt.Errorf("sheet extraction: %w", core.ErrUnsupportedFormat)
	}
	return se.ExtractSheet(ctx, task.SourcePath, name)
}

// Chunks splits the completed content of a task into token-bounded chunks.
func (s *DocumentService) Chunks(ctx context.Context, id string, cfg extraction_engine.ChunkConfig) ([]models.Chunk, error) {
	task, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if task.Status != models.StatusCompleted {
		return nil, fmt.Errorf("task %s is %s: %w", id, task.Status, core.ErrTaskNotReady)
	}
	return extraction_engine.Chunk(ctx, task.Result.Content, cfg)
}

// SupportedFormats lists accepted extensions per extractor kind.
func (s *DocumentService) SupportedFormats() map[models.ExtractorKind][]string {
	return extractors.SupportedFormats()
}

// Close drops every remaining task and removes its backing file.
func (s *DocumentService) Close() {
	for _, t := range s.store.Drain() {
		s.removeFile(t.SourcePath)
	}
}

func (s *DocumentService) taskOfKind(id string, kind models.ExtractorKind) (*models.Task, error) {
	task, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if task.Kind != kind {
		return nil, fmt.Errorf("task %s holds a %s document, not %s: %w", id, task.Kind, kind, core.ErrUnsupportedFormat)
	}
	return task, nil
}

func (s *DocumentService) removeFile(p string) {
	if p == "" {
		return
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn().Err(err).Str("path", p).Msg("failed to remove backing file")
	}
}

func (s *DocumentService) removeObject(ctx context.Context, key string) {
	if err := s.storage.DeleteFile(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to remove mirrored object")
	}
}
