package extraction_engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"code.sajari.com/docconv"

	"github.com/vish4lsharma/extractor/internal/core"
	"github.com/vish4lsharma/extractor/internal/core/extractors"
	"github.com/vish4lsharma/extractor/internal/models"
)

type submitOptions struct {
	taskID      string
	layout      bool
	fileHash    string
	contentType string
	objectKey   string
}

// SubmitOption customises a submission.
type SubmitOption func(*submitOptions)

// WithTaskID uses a caller generated ID, e.g. one already embedded in the
// backing file name.
func WithTaskID(id string) SubmitOption {
	return func(o *submitOptions) { o.taskID = id }
}

// WithLayout requests block-preserving OCR for images.
func WithLayout(layout bool) SubmitOption {
	return func(o *submitOptions) { o.layout = layout }
}

func WithFileHash(hash string) SubmitOption {
	return func(o *submitOptions) { o.fileHash = hash }
}

func WithContentType(ct string) SubmitOption {
	return func(o *submitOptions) { o.contentType = ct }
}

// WithObjectKey records where the upload was mirrored in object storage.
func WithObjectKey(key string) SubmitOption {
	return func(o *submitOptions) { o.objectKey = key }
}

// Submit registers a Pending task for the file at path and schedules it.
// Unsupported extensions and missing files are rejected before any task
// exists. Submit never waits for the extraction.
func (e *Engine) Submit(ctx context.Context, path, filename string, opts ...SubmitOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var o submitOptions
	for _, opt := range opts {
		opt(&o)
	}

	kind, err := extractors.Classify(filename)
	if err != nil {
		return "", err
	}
	if _, err := e.registry.For(kind); err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", core.NotFoundf("source file %s", path)
		}
		return "", fmt.Errorf("stat source: %w", err)
	}

	if o.contentType == "" {
		o.contentType = docconv.MimeTypeByExtension(filename)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return "", ErrEngineClosed
	}

	id, err := e.store.Create(&models.Task{
		ID:               o.taskID,
		SourcePath:       path,
		OriginalFilename: filename,
		Kind:             kind,
		ContentType:      o.contentType,
		FileHash:         o.fileHash,
		Layout:           o.layout,
		ObjectKey:        o.objectKey,
	})
	if err != nil {
		return "", fmt.Errorf("register task: %w", err)
	}
	e.enqueue(id)

	e.log.Info().Str("task_id", id).Str("filename", filename).Str("kind", string(kind)).Msg("task queued")
	return id, nil
}

// Run processes one task. It is a no-op unless the task is Pending, so
// running the same ID twice is safe. Extraction errors and panics end up on
// the task as a failure; only unexpected store errors are returned.
func (e *Engine) Run(ctx context.Context, id string) error {
	task, err := e.store.BeginProcessing(id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrInvalidTransition) {
			e.log.Debug().Err(err).Str("task_id", id).Msg("skipping task")
			return nil
		}
		return err
	}

	log := e.log.With().Str("task_id", id).Str("kind", string(task.Kind)).Logger()
	start := time.Now()

	res, err := e.extract(ctx, task)
	if err != nil {
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("extraction failed")
		return e.settle(id, e.store.Fail(id, err.Error()))
	}

	log.Info().Int("page_count", res.PageCount).Dur("elapsed", time.Since(start)).Msg("extraction completed")
	return e.settle(id, e.store.Complete(id, res))
}

// settle treats a write-back to a task deleted mid-flight as a discard.
func (e *Engine) settle(id string, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		e.log.Info().Str("task_id", id).Msg("task deleted during extraction, result discarded")
		return nil
	}
	return err
}

type outcome struct {
	res *models.ExtractionResult
	err error
}

// extract runs the extractor off the caller's goroutine so the timeout holds
// even when a parser ignores its context.
func (e *Engine) extract(ctx context.Context, task *models.Task) (*models.ExtractionResult, error) {
	ex, err := e.registry.For(task.Kind)
	if err != nil {
		return nil, err
	}

	// Deleting or shutting down never cancels a running extraction.
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if e.cfg.ExtractTimeout > 0 {
		runCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), e.cfg.ExtractTimeout)
	} else {
		runCtx, cancel = context.WithCancel(context.WithoutCancel(ctx))
	}
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: core.NewExtractionError(task.Kind, "panic", fmt.Errorf("%v", r))}
			}
		}()
		var o outcome
		if le, ok := ex.(core.LayoutExtractor); ok && task.Layout {
			o.res, o.err = le.ExtractLayout(runCtx, task.SourcePath)
		} else {
			o.res, o.err = ex.Extract(runCtx, task.SourcePath)
		}
		if o.err == nil && o.res == nil {
			o.err = core.NewExtractionError(task.Kind, "extract", errors.New("extractor returned no result"))
		}
		done <- o
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-runCtx.Done():
		return nil, core.NewExtractionError(task.Kind, "timeout", runCtx.Err())
	}
}

// Await polls until the task reaches a terminal state or ctx ends.
func (e *Engine) Await(ctx context.Context, id string, interval time.Duration) (*models.Task, error) {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		task, err := e.store.Get(id)
		if err != nil {
			return nil, err
		}
		if task.Status.Terminal() {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return task, ctx.Err()
		case <-ticker.C:
		}
	}
}
