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

// Package pool bounds concurrency. A Pool hands out reusable workers, never
// more than a fixed number at a time, and keeps a few idle ones around. An
// Executor runs tasks on a Pool of goroutines.
package pool

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned by Acquire once the pool has been stopped.
var ErrStopped = errors.New("pool stopped")

// A Worker is a reusable resource owned by a Pool.
type Worker interface {
	Close()
}

// A Factory creates a new worker when the pool has no idle one to give out.
type Factory func() (Worker, error)

// Stats is a point in time view of a pool.
type Stats struct {
	Idle   int
	Active int
	Max    int
}

// Pool hands out at most max workers at a time. Every worker in existence,
// idle or active, holds one slot of the semaphore.
type Pool struct {
	factory Factory
	max     int

	slots   chan struct{}
	idle    chan Worker
	stopped chan struct{}

	mu      sync.Mutex
	active  map[Worker]struct{}
	waiting map[Worker]struct{}
	done    bool
}

// New returns a pool of at most maxActive workers that keeps up to maxIdle of
// them idle. maxIdle is clamped to maxActive.
func New(maxActive, maxIdle int, factory Factory) *Pool {
	if maxActive < 1 {
		maxActive = 1
	}
	if maxIdle > maxActive {
		maxIdle = maxActive
	}
	if maxIdle < 0 {
		maxIdle = 0
	}
	return &Pool{
		factory: factory,
		max:     maxActive,
		slots:   make(chan struct{}, maxActive),
		idle:    make(chan Worker, maxIdle),
		stopped: make(chan struct{}),
		active:  make(map[Worker]struct{}),
		waiting: make(map[Worker]struct{}),
	}
}

// Acquire returns an idle worker, or a new one while fewer than max are
// outstanding. Otherwise it blocks until a worker is released, ctx is done or
// the pool is stopped.
func (p *Pool) Acquire(ctx context.Context) (Worker, error) {
	select {
	case <-p.stopped:
		return nil, ErrStopped
	default:
	}

	select {
	case w := <-p.idle:
		return p.activate(w), nil
	default:
	}

	select {
	case w := <-p.idle:
		return p.activate(w), nil
	case p.slots <- struct{}{}:
		w, err := p.factory()
		if err != nil {
			<-p.slots
			return nil, err
		}
		return p.activate(w), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.stopped:
		return nil, ErrStopped
	}
}

func (p *Pool) activate(w Worker) Worker {
	p.mu.Lock()
	delete(p.waiting, w)
	p.active[w] = struct{}{}
	p.mu.Unlock()
	return w
}

// Release returns w to the pool. The worker is kept idle when there is room
// and closed otherwise. Workers the pool did not hand out are adopted when a
// slot is free. Releasing a worker that is already idle does nothing. After
// Stop every released worker is closed.
func (p *Pool) Release(w Worker) {
	if w == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, idle := p.waiting[w]; idle {
		return
	}

	_, known := p.active[w]
	if known {
		delete(p.active, w)
	} else {
		select {
		case p.slots <- struct{}{}:
		default:
			w.Close()
			return
		}
	}

	if !p.done {
		select {
		case p.idle <- w:
			p.waiting[w] = struct{}{}
			return
		default:
		}
	}
	w.Close()
	<-p.slots
}

// Stop closes all idle workers and wakes blocked acquirers. Active workers
// are closed as they are released. Stop is idempotent.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return
	}
	p.done = true
	close(p.stopped)

	for {
		select {
		case w := <-p.idle:
			delete(p.waiting, w)
			w.Close()
			<-p.slots
		default:
			return
		}
	}
}

// Stopped reports whether Stop has been called.
func (p *Pool) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Stats returns the current number of idle and active workers.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Idle:   len(p.idle),
		Active: len(p.active),
		Max:    p.max,
	}
}
