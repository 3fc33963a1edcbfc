package models

import (
	"time"
)

// ProcessingStatus is the lifecycle state of an extraction task.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ExtractorKind selects the extractor variant for a document.
type ExtractorKind string

const (
	KindPDF         ExtractorKind = "pdf"
	KindImage       ExtractorKind = "image"
	KindSpreadsheet ExtractorKind = "spreadsheet"
)

// Task tracks one extraction request from submission to a terminal state.
type Task struct {
	ID               string            `json:"task_id"`
	Status           ProcessingStatus  `json:"status"`
	SourcePath       string            `json:"-"`
	OriginalFilename string            `json:"filename"`
	Kind             ExtractorKind     `json:"extractor_kind"`
	ContentType      string            `json:"content_type,omitempty"`
	FileHash         string            `json:"file_hash,omitempty"`
	Layout           bool              `json:"layout,omitempty"`
	ObjectKey        string            `json:"-"` // S3 mirror key, empty when not mirrored
	Result           *ExtractionResult `json:"result,omitempty"`
	Error            string            `json:"error,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ExtractionResult is the output of a successful extraction.
type ExtractionResult struct {
	Content        string          `json:"content"`
	PageCount      int             `json:"page_count"`
	Metadata       map[string]any  `json:"metadata"`
	StructuredData *StructuredData `json:"structured_data,omitempty"`
}

// StructuredData carries format specific structure next to the flat text.
type StructuredData struct {
	Sheets []SheetData   `json:"sheets,omitempty"`
	Blocks []LayoutBlock `json:"blocks,omitempty"`
}

// SheetData is one worksheet as header-keyed records.
type SheetData struct {
	Name    string           `json:"name"`
	Columns []string         `json:"columns"`
	Data    []map[string]any `json:"data"`
}

// LayoutBlock is a run of OCR words sharing a block number.
type LayoutBlock struct {
	BlockNum int    `json:"block_num"`
	Text     string `json:"text"`
}

// TextStats summarises extracted content.
type TextStats struct {
	WordCount int `json:"word_count"`
	LineCount int `json:"line_count"`
	CharCount int `json:"char_count"`
}

// DocumentInfo is the completed document returned by status queries.
type DocumentInfo struct {
	Filename       string          `json:"filename"`
	ContentType    string          `json:"content_type,omitempty"`
	FileHash       string          `json:"file_hash,omitempty"`
	Content        string          `json:"content"`
	PageCount      int             `json:"page_count"`
	Metadata       map[string]any  `json:"metadata"`
	StructuredData *StructuredData `json:"structured_data,omitempty"`
	Stats          TextStats       `json:"stats"`
}

// ExtractionResponse is the status view of a task.
type ExtractionResponse struct {
	TaskID   string           `json:"task_id"`
	Status   ProcessingStatus `json:"status"`
	Message  string           `json:"message"`
	Document *DocumentInfo    `json:"document,omitempty"`
}

// TaskSummary is a compact listing entry.
type TaskSummary struct {
	TaskID    string           `json:"task_id"`
	Filename  string           `json:"filename"`
	Kind      ExtractorKind    `json:"extractor_kind"`
	Status    ProcessingStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// Chunk is one token-bounded slice of extracted content.
type Chunk struct {
	Position   int    `json:"position"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// Clone returns a deep enough copy for handing out of the store.
// Result is shared; results are never mutated after completion.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// UploadResponse acknowledges an accepted upload.
type UploadResponse struct {
	TaskID  string           `json:"task_id"`
	Status  ProcessingStatus `json:"status"`
	Message string           `json:"message"`
}

// MessageResponse carries a plain confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
