// Copyright (c) 2015 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package pool

import (
	"context"
	"sync"

	"github.com/uber-common/bark"
	"github.com/uber/tribes-go/logging"
)

// An Executor runs tasks on a bounded set of goroutines drawn from a Pool.
type Executor struct {
	pool   *Pool
	logger bark.Logger
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

type taskWorker struct {
	tasks chan func()
	once  sync.Once
}

func (w *taskWorker) Close() {
	w.once.Do(func() { close(w.tasks) })
}

// NewExecutor returns an executor running at most maxActive tasks at once and
// keeping maxIdle goroutines parked between tasks.
func NewExecutor(maxActive, maxIdle int) *Executor {
	e := &Executor{
		logger: logging.Logger("executor"),
	}
	e.pool = New(maxActive, maxIdle, e.newWorker)
	return e
}

func (e *Executor) newWorker() (Worker, error) {
	w := &taskWorker{tasks: make(chan func(), 1)}
	go e.loop(w)
	return w, nil
}

func (e *Executor) loop(w *taskWorker) {
	for task := range w.tasks {
		e.run(task)
		e.pool.Release(w)
	}
}

func (e *Executor) run(task func()) {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithField("panic", r).Error("task panicked")
		}
	}()
	task()
}

// Execute hands task to an idle worker, blocking while all workers are busy.
// It returns once a worker has taken the task, not when the task completes.
func (e *Executor) Execute(ctx context.Context, task func()) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	e.wg.Add(1)
	e.mu.Unlock()

	w, err := e.pool.Acquire(ctx)
	if err != nil {
		e.wg.Done()
		return err
	}
	w.(*taskWorker).tasks <- task
	return nil
}

// Stop refuses new tasks and waits for running ones to finish.
func (e *Executor) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()

	e.pool.Stop()
	e.wg.Wait()
}

// Stats returns the stats of the underlying pool.
func (e *Executor) Stats() Stats {
	return e.pool.Stats()
}
