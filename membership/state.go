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
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// State is the liveness classification of a member from the sender's point of
// view.
type State int32

const (
	// Ready members are sent to normally.
	Ready State = iota

	// Suspect members failed their last send.
	Suspect

	// Failing members failed repeatedly and only get a single attempt per send.
	Failing
)

// String converts a state to its string representation.
func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Suspect:
		return "suspect"
	case Failing:
		return "failing"
	}
	return "unknown"
}

// SenderState tracks the liveness of one member.
//
// A member starts Ready. The first failed send makes it Suspect; once the
// consecutive failures reach the failure threshold it becomes Failing. Any
// successful send brings it back to Ready.
type SenderState struct {
	sync.Mutex

	state       State
	failures    int
	threshold   int
	lastChanged time.Time

	clock clock.Clock
}

func newSenderState(threshold int, clk clock.Clock) *SenderState {
	return &SenderState{
		state:       Ready,
		threshold:   threshold,
		lastChanged: clk.Now(),
		clock:       clk,
	}
}

// State returns the current state.
func (s *SenderState) State() State {
	s.Lock()
	defer s.Unlock()
	return s.state
}

// IsReady reports whether the member is Ready.
func (s *SenderState) IsReady() bool { return s.State() == Ready }

// IsSuspect reports whether the member is Suspect or Failing.
func (s *SenderState) IsSuspect() bool { return s.State() != Ready }

// IsFailing reports whether the member is Failing.
func (s *SenderState) IsFailing() bool { return s.State() == Failing }

// ConsecutiveFailures returns the number of failed sends since the last
// success.
func (s *SenderState) ConsecutiveFailures() int {
	s.Lock()
	defer s.Unlock()
	return s.failures
}

// LastChanged returns when the state last changed.
func (s *SenderState) LastChanged() time.Time {
	s.Lock()
	defer s.Unlock()
	return s.lastChanged
}

// SetReady forces the Ready state and clears the failure count.
func (s *SenderState) SetReady() { s.set(Ready) }

// SetSuspect forces the Suspect state.
func (s *SenderState) SetSuspect() { s.set(Suspect) }

// SetFailing forces the Failing state.
func (s *SenderState) SetFailing() { s.set(Failing) }

func (s *SenderState) set(state State) {
	s.Lock()
	s.transition(state)
	if state == Ready {
		s.failures = 0
	}
	s.Unlock()
}

// Success records a successful send and returns the previous and the new
// state.
func (s *SenderState) Success() (from, to State) {
	s.Lock()
	defer s.Unlock()

	from = s.state
	s.failures = 0
	s.transition(Ready)
	return from, Ready
}

// Failure records a failed send and returns the previous and the new state.
// The first failure of a Ready member always yields Suspect.
func (s *SenderState) Failure() (from, to State) {
	s.Lock()
	defer s.Unlock()

	from = s.state
	s.failures++

	switch {
	case s.state == Ready:
		s.transition(Suspect)
	case s.failures >= s.threshold:
		s.transition(Failing)
	}
	return from, s.state
}

// transition must be called with the lock held.
func (s *SenderState) transition(state State) {
	if s.state == state {
		return
	}
	s.state = state
	s.lastChanged = s.clock.Now()
}
