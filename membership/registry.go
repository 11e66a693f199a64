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

package membership

import (
	"github.com/benbjohnson/clock"
	"github.com/puzpuzpuz/xsync/v3"
)

// A StateRegistry maps members to their SenderState. Lookups that create a
// missing entry are atomic, so concurrent first lookups for a member always
// observe the same SenderState.
type StateRegistry struct {
	states    *xsync.MapOf[Member, *SenderState]
	threshold int
	clock     clock.Clock
}

// NewStateRegistry returns an empty registry. threshold is the number of
// consecutive failed sends after which a member becomes Failing.
func NewStateRegistry(threshold int, clk clock.Clock) *StateRegistry {
	if clk == nil {
		clk = clock.New()
	}
	return &StateRegistry{
		states:    xsync.NewMapOf[Member, *SenderState](),
		threshold: threshold,
		clock:     clk,
	}
}

// Get returns the state of member. When create is set a Ready state is
// created if none exists yet; otherwise a missing member yields nil.
func (r *StateRegistry) Get(member Member, create bool) *SenderState {
	if !create {
		state, _ := r.states.Load(member)
		return state
	}

	state, _ := r.states.LoadOrCompute(member, func() *SenderState {
		return newSenderState(r.threshold, r.clock)
	})
	return state
}

// Threshold returns the number of consecutive failures that make a member
// Failing.
func (r *StateRegistry) Threshold() int { return r.threshold }

// Remove drops the state of member.
func (r *StateRegistry) Remove(member Member) {
	r.states.Delete(member)
}

// Len returns the number of tracked members.
func (r *StateRegistry) Len() int {
	return r.states.Size()
}

// Snapshot returns the current state of every tracked member.
func (r *StateRegistry) Snapshot() map[Member]State {
	snapshot := make(map[Member]State, r.states.Size())
	r.states.Range(func(member Member, state *SenderState) bool {
		snapshot[member] = state.State()
		return true
	})
	return snapshot
}
