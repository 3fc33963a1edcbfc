package extraction_engine

import (
	"context"
	"errors"

	"github.com/vish4lsharma/extractor/internal/core"
)

// Start runs numWorkers goroutines reading from the jobs channel. Workers
// exit when ctx is cancelled or Close is called; a job already taken is run
// to completion first.
func (e *Engine) Start(ctx context.Context, numWorkers int) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.closed {
		return
	}
	e.started = true

	for w := 1; w <= numWorkers; w++ {
		w := w
		e.workers.Go(func() error {
			log := e.log.With().Int("worker", w).Logger()
			for {
				select {
				case <-ctx.Done():
					log.Debug().Msg("worker shutting down")
					return nil
				case <-e.stop:
					log.Debug().Msg("worker shutting down")
					return nil
				case id := <-e.jobs:
					log.Debug().Str("task_id", id).Msg("processing task")
					if err := e.Run(ctx, id); err != nil {
						log.Error().Err(err).Str("task_id", id).Msg("task bookkeeping failed")
					}
				}
			}
		})
	}
	e.log.Info().Int("workers", numWorkers).Int("queue_size", cap(e.jobs)).Msg("extraction engine started")
}

// enqueue schedules a task ID without ever blocking the caller. When the
// queue is full the send is parked in a goroutine until a worker frees a
// slot or the engine stops.
func (e *Engine) enqueue(id string) {
	select {
	case e.jobs <- id:
		return
	default:
	}

	e.parked.Add(1)
	go func() {
		defer e.parked.Done()
		select {
		case e.jobs <- id:
		case <-e.stop:
			e.abandon(id)
		}
	}()
}

// Close stops the workers, waits for in-flight extractions and fails every
// task that never reached a worker.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.stopOnce.Do(func() { close(e.stop) })
	err := e.workers.Wait()
	e.parked.Wait()

	for {
		select {
		case id := <-e.jobs:
			e.abandon(id)
		default:
			e.log.Info().Msg("extraction engine stopped")
			return err
		}
	}
}

// abandon fails a task that was accepted but will never be processed.
func (e *Engine) abandon(id string) {
	if _, err := e.store.BeginProcessing(id); err != nil {
		return
	}
	if err := e.store.Fail(id, ErrEngineClosed.Error()); err != nil && !errors.Is(err, core.ErrNotFound) {
		e.log.Error().Err(err).Str("task_id", id).Msg("failed to mark abandoned task")
	}
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
