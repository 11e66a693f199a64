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

package transport

import (
	"fmt"
	"time"

	"github.com/uber/tribes-go/membership"
	"go.uber.org/multierr"
)

// MemberResult is the outcome of sending one message to one member.
type MemberResult struct {
	Member   membership.Member
	Attempts int
	Duration time.Duration
	Err      error
}

// A SendResult collects the outcome for every destination of a message. A
// failed destination never hides the others.
type SendResult struct {
	ID      string
	Results []MemberResult
}

// OK reports whether every destination was reached.
func (r *SendResult) OK() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return false
		}
	}
	return true
}

// Successes returns the members that were reached.
func (r *SendResult) Successes() []membership.Member {
	var members []membership.Member
	for _, res := range r.Results {
		if res.Err == nil {
			members = append(members, res.Member)
		}
	}
	return members
}

// Failures returns the results of the members that were not reached.
func (r *SendResult) Failures() []MemberResult {
	var failed []MemberResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Result returns the outcome for member.
func (r *SendResult) Result(member membership.Member) (MemberResult, bool) {
	for _, res := range r.Results {
		if res.Member == member {
			return res, true
		}
	}
	return MemberResult{}, false
}

// Err combines the per member errors, or returns nil when every destination
// was reached.
func (r *SendResult) Err() error {
	var err error
	for _, res := range r.Failures() {
		err = multierr.Append(err, fmt.Errorf("send to %v: %w", res.Member, res.Err))
	}
	return err
}
