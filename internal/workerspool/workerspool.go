// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool limits the number of goroutines used to decode and resize images.
package workerspool

import (
	"runtime"
	"sync"
)

// Pool of workers with a soft limit on parallelism. It is safe for concurrent use, and
// the same pool can be shared by many datasets.
type Pool struct {
	// maxParallelism is the limit of tasks running concurrently.
	maxParallelism int
	mu             sync.Mutex
	cond           sync.Cond // Signaled whenever numRunning is decreased.
	numRunning     int
}

// New returns a new Pool of workers with the default parallelism (runtime.NumCPU()).
func New() *Pool {
	w := &Pool{maxParallelism: runtime.NumCPU()}
	w.cond = sync.Cond{L: &w.mu}
	return w
}

// MaxParallelism is the limit of tasks running concurrently.
// If 0 parallelism is disabled, and if -1 it is unlimited.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// SetMaxParallelism sets the maxParallelism. It should only be changed before any task is started.
//
// It returns itself, to allow chain of method calls.
func (w *Pool) SetMaxParallelism(maxParallelism int) *Pool {
	w.maxParallelism = maxParallelism
	return w
}

// lockedIsFull returns whether all available workers are in use.
//
// It must be called with Pool.mu acquired.
func (w *Pool) lockedIsFull() bool {
	if w.maxParallelism < 0 {
		return false
	}
	return w.numRunning >= w.maxParallelism
}

// WaitToStart waits until there is a worker available, and runs task in a separate goroutine.
// If parallelism is disabled (maxParallelism is 0), it runs the task inline.
func (w *Pool) WaitToStart(task func()) {
	if w.maxParallelism < 0 {
		go task()
		return
	} else if w.maxParallelism == 0 {
		task()
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for w.lockedIsFull() {
		w.cond.Wait()
	}
	w.numRunning++
	go func() {
		defer func() {
			w.mu.Lock()
			w.numRunning--
			w.cond.Signal()
			w.mu.Unlock()
		}()
		task()
	}()
}

// Run calls fn(ii) for ii in [0, n) using the workers of the pool, and waits for all of them to finish.
// It returns the error of the lowest index that failed, or nil.
func (w *Pool) Run(n int, fn func(ii int) error) error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for ii := range n {
		wg.Add(1)
		w.WaitToStart(func() {
			defer wg.Done()
			errs[ii] = fn(ii)
		})
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
