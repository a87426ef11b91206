// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type Task func(ctx context.Context) error

// Pool runs batches of tasks with bounded parallelism.
type Pool struct {
	n   int
	log *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	l := logger.With().Str("component", "worker_pool").Logger()
	return &Pool{n: workers, log: &l}
}

func (p *Pool) Size() int { return p.n }

// Run executes tasks with at most Size running at once and waits for all started
// tasks to return. Tasks not yet started when ctx is cancelled are skipped.
// It returns how many tasks failed; failures are logged, never propagated.
func (p *Pool) Run(ctx context.Context, tasks []Task) int {
	var (
		wg     sync.WaitGroup
		failed atomic.Int64
		sem    = make(chan struct{}, p.n)
	)
	for i, task := range tasks {
		if task == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			wg.Wait()
			return int(failed.Load())
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(id int, task Task) {
			defer func() {
				if r := recover(); r != nil {
					p.log.Error().Interface("panic", r).Int("task", id).Msg("task panicked")
					failed.Add(1)
				}
				<-sem
				wg.Done()
			}()
			if err := task(ctx); err != nil {
				p.log.Debug().Err(err).Int("task", id).Msg("task failed")
				failed.Add(1)
			}
		}(i, task)
	}
	wg.Wait()
	return int(failed.Load())
}
