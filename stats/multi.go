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

package stats

import (
	"time"

	"github.com/uber-common/bark"
)

// MultiReporter hands every stat to each of its reporters.
type MultiReporter []bark.StatsReporter

func (m MultiReporter) IncCounter(name string, tags bark.Tags, value int64) {
	for _, r := range m {
		r.IncCounter(name, tags, value)
	}
}

func (m MultiReporter) UpdateGauge(name string, tags bark.Tags, value int64) {
	for _, r := range m {
		r.UpdateGauge(name, tags, value)
	}
}

func (m MultiReporter) RecordTimer(name string, tags bark.Tags, d time.Duration) {
	for _, r := range m {
		r.RecordTimer(name, tags, d)
	}
}
