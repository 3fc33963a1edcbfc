// Package taskstore is the in-memory registry of extraction tasks.
package taskstore

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vish4lsharma/extractor/internal/core"
	"github.com/vish4lsharma/extractor/internal/models"
)

var _ core.TaskStore = (*MemoryStore)(nil)

// entry guards a single task. The store lock only protects the map.
type entry struct {
	mu   sync.Mutex
	task models.Task
}

// MemoryStore keeps tasks in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*entry
	now   func() time.Time
}

func New() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*entry), now: time.Now}
}

// Create inserts a Pending task. An empty ID is replaced by a fresh uuid;
// a caller supplied ID that is already registered is rejected.
func (s *MemoryStore) Create(task *models.Task) (string, error) {
	if task == nil {
		return "", fmt.Errorf("create task: nil task")
	}
	t := *task
	t.Status = models.StatusPending
	t.Result = nil
	t.Error = ""
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		for {
			t.ID = uuid.NewString()
			if _, taken := s.tasks[t.ID]; !taken {
				break
			}
		}
	} else if _, taken := s.tasks[t.ID]; taken {
		return "", fmt.Errorf("create task %s: id already registered", t.ID)
	}

	s.tasks[t.ID] = &entry{task: t}
	return t.ID, nil
}

func (s *MemoryStore) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.tasks[id]
	s.mu.RUnlock()
	if !ok {
		return nil, core.NotFoundf("task %s", id)
	}
	return e, nil
}

// Get returns a snapshot of the task.
func (s *MemoryStore) Get(id string) (*models.Task, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task.Clone(), nil
}

// BeginProcessing moves a Pending task to Processing and returns the snapshot
// the worker should act on. Any other state yields ErrInvalidTransition.
func (s *MemoryStore) BeginProcessing(id string) (*models.Task, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.task.Status != models.StatusPending {
		return nil, fmt.Errorf("task %s: %s -> %s: %w", id, e.task.Status, models.StatusProcessing, core.ErrInvalidTransition)
	}
	e.task.Status = models.StatusProcessing
	e.task.UpdatedAt = s.now()
	return e.task.Clone(), nil
}

// Complete records a result on a Processing task.
func (s *MemoryStore) Complete(id string, result *models.ExtractionResult) error {
	if result == nil {
		return fmt.Errorf("complete task %s: nil result", id)
	}
	return s.finish(id, func(t *models.Task) {
		t.Status = models.StatusCompleted
		t.Result = result
	})
}

// Fail records a failure cause on a Processing task.
func (s *MemoryStore) Fail(id string, cause string) error {
	if cause == "" {
		cause = "unknown error"
	}
	return s.finish(id, func(t *models.Task) {
		t.Status = models.StatusFailed
		t.Error = cause
	})
}

func (s *MemoryStore) finish(id string, apply func(t *models.Task)) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.task.Status != models.StatusProcessing {
		return fmt.Errorf("task %s: finish from %s: %w", id, e.task.Status, core.ErrInvalidTransition)
	}
	apply(&e.task)
	e.task.UpdatedAt = s.now()
	return nil
}

// Delete removes the task and returns its final snapshot so the caller can
// release the backing file.
func (s *MemoryStore) Delete(id string) (*models.Task, error) {
	s.mu.Lock()
	e, ok := s.tasks[id]
	if ok {
		delete(s.tasks, id)
	}
	s.mu.Unlock()
	if !ok {
		return nil, core.NotFoundf("task %s", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task.Clone(), nil
}

// List returns snapshots ordered by creation time.
func (s *MemoryStore) List() []*models.Task {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.tasks))
	for _, e := range s.tasks {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*models.Task, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.task.Clone())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Drain empties the store and returns every task it held, for teardown.
func (s *MemoryStore) Drain() []*models.Task {
	s.mu.Lock()
	entries := s.tasks
	s.tasks = make(map[string]*entry)
	s.mu.Unlock()

	out := make([]*models.Task, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.task.Clone())
		e.mu.Unlock()
	}
	return out
}
