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
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type fakeWorker struct {
	id     int
	closed int32
}

func (w *fakeWorker) Close() { atomic.AddInt32(&w.closed, 1) }

func (w *fakeWorker) isClosed() bool { return atomic.LoadInt32(&w.closed) > 0 }

type PoolTestSuite struct {
	suite.Suite
	created int32
	pool    *Pool
}

func (s *PoolTestSuite) factory() (Worker, error) {
	id := atomic.AddInt32(&s.created, 1)
	return &fakeWorker{id: int(id)}, nil
}

func (s *PoolTestSuite) SetupTest() {
	s.created = 0
	s.pool = New(2, 1, s.factory)
}

func (s *PoolTestSuite) acquire() Worker {
	w, err := s.pool.Acquire(context.Background())
	s.Require().NoError(err)
	return w
}

func (s *PoolTestSuite) TestReuseIdleWorker() {
	w := s.acquire()
	s.pool.Release(w)
	s.Equal(Stats{Idle: 1, Active: 0, Max: 2}, s.pool.Stats())

	s.True(w == s.acquire(), "expected the idle worker to be reused")
	s.Equal(int32(1), atomic.LoadInt32(&s.created))
}

func (s *PoolTestSuite) TestExcessIdleWorkersAreClosed() {
	a := s.acquire()
	b := s.acquire()
	s.pool.Release(a)
	s.pool.Release(b)

	s.False(a.(*fakeWorker).isClosed())
	s.True(b.(*fakeWorker).isClosed(), "expected the worker beyond max idle to be closed")
	s.Equal(Stats{Idle: 1, Active: 0, Max: 2}, s.pool.Stats())
}

func (s *PoolTestSuite) TestAcquireBlocksAtCapacity() {
	a := s.acquire()
	s.acquire()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.pool.Acquire(ctx)
	s.ErrorIs(err, context.DeadlineExceeded)

	got := make(chan Worker)
	go func() {
		w, _ := s.pool.Acquire(context.Background())
		got <- w
	}()

	s.pool.Release(a)
	select {
	case w := <-got:
		s.True(w == a)
	case <-time.After(time.Second):
		s.Fail("expected release to wake the blocked acquirer")
	}
}

func (s *PoolTestSuite) TestStopWakesAcquirers() {
	s.acquire()
	s.acquire()

	errs := make(chan error)
	go func() {
		_, err := s.pool.Acquire(context.Background())
		errs <- err
	}()

	time.Sleep(10 * time.Millisecond)
	s.pool.Stop()

	select {
	case err := <-errs:
		s.ErrorIs(err, ErrStopped)
	case <-time.After(time.Second):
		s.Fail("expected stop to wake the blocked acquirer")
	}

	_, err := s.pool.Acquire(context.Background())
	s.ErrorIs(err, ErrStopped)
	s.True(s.pool.Stopped())
	s.pool.Stop()
}

func (s *PoolTestSuite) TestStopClosesIdleAndReleased() {
	idle := s.acquire()
	active := s.acquire()
	s.pool.Release(idle)

	s.pool.Stop()
	s.True(idle.(*fakeWorker).isClosed())
	s.False(active.(*fakeWorker).isClosed())

	s.pool.Release(active)
	s.True(active.(*fakeWorker).isClosed(), "expected release after stop to close the worker")
	s.Equal(Stats{Idle: 0, Active: 0, Max: 2}, s.pool.Stats())
}

func (s *PoolTestSuite) TestUnknownWorkerAdoptedOrClosed() {
	stranger := &fakeWorker{id: -1}
	s.pool.Release(stranger)
	s.False(stranger.isClosed())
	s.Equal(1, s.pool.Stats().Idle)

	s.acquire()
	s.acquire()
	other := &fakeWorker{id: -2}
	s.pool.Release(other)
	s.True(other.isClosed(), "expected a stranger to be closed when no slot is free")
	s.Equal(Stats{Idle: 0, Active: 2, Max: 2}, s.pool.Stats())
}

func (s *PoolTestSuite) TestDoubleReleaseIsIgnored() {
	p := New(2, 2, s.factory)
	w, err := p.Acquire(context.Background())
	s.Require().NoError(err)

	p.Release(w)
	p.Release(w)
	s.Equal(Stats{Idle: 1, Active: 0, Max: 2}, p.Stats())

	a, err := p.Acquire(context.Background())
	s.Require().NoError(err)
	b, err := p.Acquire(context.Background())
	s.Require().NoError(err)
	s.False(a == b, "expected distinct workers for concurrent holders")
	s.Equal(Stats{Idle: 0, Active: 2, Max: 2}, p.Stats())
	s.False(w.(*fakeWorker).isClosed())
}

func (s *PoolTestSuite) TestFactoryErrorFreesSlot() {
	boom := errors.New("boom")
	p := New(1, 1, func() (Worker, error) { return nil, boom })

	_, err := p.Acquire(context.Background())
	s.ErrorIs(err, boom)
	_, err = p.Acquire(context.Background())
	s.ErrorIs(err, boom, "expected the failed creation not to leak its slot")
}

func (s *PoolTestSuite) TestMaxIdleClamped() {
	p := New(1, 5, s.factory)
	s.Equal(1, cap(p.idle))
}

func (s *PoolTestSuite) TestCapacityInvariant() {
	p := New(4, 2, s.factory)
	var wg sync.WaitGroup
	var violations int32

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				w, err := p.Acquire(context.Background())
				if err != nil {
					return
				}
				st := p.Stats()
				if st.Idle+st.Active > st.Max {
					atomic.AddInt32(&violations, 1)
				}
				p.Release(w)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), violations)
	s.True(atomic.LoadInt32(&s.created) <= 4+16*50)
	st := p.Stats()
	s.Equal(0, st.Active)
	s.True(st.Idle <= 2)
}

func TestPoolTestSuite(t *testing.T) {
	suite.Run(t, new(PoolTestSuite))
}
