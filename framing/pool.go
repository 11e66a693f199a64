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

package framing

import "sync"

// DefaultPoolCeiling is the default upper bound on the total capacity of the
// buffers a Pool keeps.
const DefaultPoolCeiling int64 = 100 * 1024 * 1024

// A Pool recycles Buffers. The sum of the capacities of the pooled buffers
// never exceeds the ceiling; buffers that would push it over are dropped and
// left to the garbage collector. A single mutex guards the pool, checkout and
// return are cheap next to the network I/O they serve.
type Pool struct {
	mu      sync.Mutex
	free    []*Buffer
	size    int64
	ceiling int64
}

// NewPool returns an empty pool. A ceiling <= 0 selects DefaultPoolCeiling.
func NewPool(ceiling int64) *Pool {
	if ceiling <= 0 {
		ceiling = DefaultPoolCeiling
	}
	return &Pool{ceiling: ceiling}
}

// Get returns a buffer with a capacity of at least minSize bytes. A pooled
// buffer is reused when one is available, growing it in place if it is too
// small; otherwise a fresh buffer is allocated.
func (p *Pool) Get(minSize int, discard bool) *Buffer {
	p.mu.Lock()
	var buf *Buffer
	if n := len(p.free); n > 0 {
		buf = p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.size -= int64(buf.Cap())
	}
	p.mu.Unlock()

	if buf == nil {
		return NewBuffer(minSize, discard)
	}

	buf.Reset()
	buf.Expand(minSize)
	buf.SetDiscard(discard)
	return buf
}

// Put returns buf to the pool if doing so keeps the pooled capacity within the
// ceiling. Otherwise buf is dropped.
func (p *Pool) Put(buf *Buffer) {
	if buf == nil {
		return
	}
	buf.Reset()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.size+int64(buf.Cap()) > p.ceiling {
		return
	}
	p.free = append(p.free, buf)
	p.size += int64(buf.Cap())
}

// Size returns the total capacity of the pooled buffers.
func (p *Pool) Size() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// Count returns the number of pooled buffers.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Ceiling returns the configured ceiling.
func (p *Pool) Ceiling() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ceiling
}

// SetCeiling changes the ceiling. Lowering it drops pooled buffers until the
// pooled capacity fits again.
func (p *Pool) SetCeiling(ceiling int64) {
	if ceiling <= 0 {
		ceiling = DefaultPoolCeiling
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.ceiling = ceiling
	for p.size > p.ceiling && len(p.free) > 0 {
		n := len(p.free)
		p.size -= int64(p.free[n-1].Cap())
		p.free[n-1] = nil
		p.free = p.free[:n-1]
	}
}
