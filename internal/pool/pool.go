// Package pool provides the bounded worker pool used for per-entry stat
// lookups. Tasks are I/O bound, so the bound is oversubscribed well past
// the core count.
package pool

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many tasks run at once. A Pool is constructed once at
// startup and injected into consumers.
type Pool struct {
	sem     *semaphore.Weighted
	workers int
}

// DefaultSize oversubscribes the CPU count for blocking filesystem work.
func DefaultSize() int {
	return runtime.NumCPU() * 4
}

// New builds a Pool admitting at most workers concurrent tasks.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers)), workers: workers}
}

// Workers reports the admission bound.
func (p *Pool) Workers() int { return p.workers }

// Result pairs a task's value with its error.
type Result[T any] struct {
	Value T
	Err   error
}

// Collect fans tasks out over the pool and returns their results in
// submission order regardless of completion order, so downstream sorting
// stays deterministic. A cancelled context resolves the remaining tasks
// with ctx.Err().
func Collect[T any](ctx context.Context, p *Pool, tasks []func() (T, error)) []Result[T] {
	results := make([]Result[T], len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			results[i] = Result[T]{Err: err}
			continue
		}
		wg.Add(1)
		go func(i int, task func() (T, error)) {
			defer wg.Done()
			defer p.sem.Release(1)
			v, err := task()
			results[i] = Result[T]{Value: v, Err: err}
		}(i, task)
	}
	wg.Wait()
	return results
}
