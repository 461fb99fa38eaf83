package worker

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/okian/benchboard/pkg/metrics"
)

// Default pool configuration constants.
const (
	defaultPoolSize = 4
)

// Task is one unit of bounded work, typically a batch reduction.
type Task func(ctx context.Context)

// Pool runs tasks with bounded concurrency.
type Pool struct {
	size int
	sem  *semaphore.Weighted
}

// NewPool creates a pool that runs at most size tasks at once.
func NewPool(size int) *Pool {
	if size < 1 {
		size = defaultPoolSize
	}
	return &Pool{size: size, sem: semaphore.NewWeighted(int64(size))}
}

// Size returns the concurrency limit.
func (p *Pool) Size() int { return p.size }

// Run dispatches tasks in order until all are started or ctx is done, then
// waits for every dispatched task to return. It reports how many tasks were
// dispatched; tasks after that index never ran.
//
// Tasks receive a context detached from ctx's cancellation so that a batch
// already in flight finishes when the dispatch budget expires.
func (p *Pool) Run(ctx context.Context, tasks []Task) int {
	taskCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	dispatched := 0
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		if err := p.sem.Acquire(ctx, 1); err != nil {
			break
		}
		// Acquire may succeed after ctx is done.
		if ctx.Err() != nil {
			p.sem.Release(1)
			break
		}
		dispatched++
		wg.Add(1)
		metrics.AddScanWorkersBusy(1)
		go func(task Task) {
			defer func() {
				metrics.AddScanWorkersBusy(-1)
				p.sem.Release(1)
				wg.Done()
			}()
			task(taskCtx)
		}(task)
	}
	wg.Wait()
	return dispatched
}

// SplitIntoBatches partitions items into consecutive slices of at most
// batchSize elements. A non-positive batchSize yields a single batch.
func SplitIntoBatches[T any](items []T, batchSize int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 || batchSize >= len(items) {
		return [][]T{items}
	}
	batches := make([][]T, 0, (len(items)+batchSize-1)/batchSize)
	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches
}
