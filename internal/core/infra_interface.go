package core

import (
	"context"
	"io"

	"github.com/vish4lsharma/extractor/internal/models"
)

// TaskStore holds task state keyed by id.
// Transitions on one task are linearizable; Get returns snapshots.
type TaskStore interface {
	Create(task *models.Task) (string, error)
	Get(id string) (*models.Task, error)
	BeginProcessing(id string) (*models.Task, error)
	Complete(id string, result *models.ExtractionResult) error
	Fail(id string, cause string) error
	Delete(id string) (*models.Task, error)
	List() []*models.Task
	Len() int
	Drain() []*models.Task
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, key string) error
}

// Scanner checks uploaded content for malware.
type Scanner interface {
	ScanFile(ctx context.Context, path string) error
}
