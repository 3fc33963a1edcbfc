package extraction_engine

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vish4lsharma/extractor/internal/core"
	"github.com/vish4lsharma/extractor/internal/core/extractors"
)

var ErrEngineClosed = errors.New("extraction engine closed")

// EngineConfig tunes the background pipeline.
//
// QueueSize:      capacity of the in-memory job channel; overflow never blocks submitters.
// ExtractTimeout: upper bound for a single extraction, zero disables it.
type EngineConfig struct {
	QueueSize      int
	ExtractTimeout time.Duration
}

// Engine moves tasks from Pending to a terminal state:
//
// store:    task registry, the single source of truth for status.
// registry: extractor per kind.
// jobs:     task IDs waiting for a worker.
// stop:     closed by Close; releases workers and parked submissions.
type Engine struct {
	store    core.TaskStore
	registry *extractors.Registry
	cfg      EngineConfig
	log      zerolog.Logger

	jobs     chan string
	stop     chan struct{}
	parked   sync.WaitGroup
	workers  errgroup.Group
	mu       sync.Mutex
	started  bool
	closed   bool
	stopOnce sync.Once
}

// NewEngine constructs the engine with a bounded job queue.
func NewEngine(store core.TaskStore, registry *extractors.Registry, cfg EngineConfig, log zerolog.Logger) *Engine {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 64
	}
	return &Engine{
		store:    store,
		registry: registry,
		cfg:      cfg,
		log:      log.With().Str("component", "extraction_engine").Logger(),
		jobs:     make(chan string, cfg.QueueSize),
		stop:     make(chan struct{}),
	}
}
