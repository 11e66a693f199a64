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
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	metrics "github.com/rcrowley/go-metrics"
)

const maxTrackedLatency = time.Minute

// latency tracks send durations in microseconds.
type latency struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

func newLatency() *latency {
	return &latency{
		hist: hdrhistogram.New(1, int64(maxTrackedLatency/time.Microsecond), 3),
	}
}

func (l *latency) record(d time.Duration) {
	us := int64(d / time.Microsecond)
	if us < 1 {
		us = 1
	}
	if limit := l.hist.HighestTrackableValue(); us > limit {
		us = limit
	}

	l.mu.Lock()
	l.hist.RecordValue(us)
	l.mu.Unlock()
}

func (l *latency) quantile(q float64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Duration(l.hist.ValueAtQuantile(q)) * time.Microsecond
}

func (l *latency) max() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Duration(l.hist.Max()) * time.Microsecond
}

// SenderStats is a snapshot of the outbound side.
type SenderStats struct {
	Members    int
	Connected  int
	Sent       int64
	Failed     int64
	SentRate1  float64
	Bytes      int64
	LatencyP50 time.Duration
	LatencyP99 time.Duration
	LatencyMax time.Duration
}

// ReceiverStats is a snapshot of the inbound side.
type ReceiverStats struct {
	Received      int64
	ReceivedRate1 float64
	Bytes         int64
	Discarded     int64
	HandlerErrors int64
	IdleWorkers   int
	ActiveWorkers int
}

type senderMetrics struct {
	sent    metrics.Meter
	failed  metrics.Counter
	bytes   metrics.Counter
	latency *latency
}

func newSenderMetrics() *senderMetrics {
	return &senderMetrics{
		sent:    metrics.NewMeter(),
		failed:  metrics.NewCounter(),
		bytes:   metrics.NewCounter(),
		latency: newLatency(),
	}
}

type receiverMetrics struct {
	received      metrics.Meter
	bytes         metrics.Counter
	discarded     metrics.Counter
	handlerErrors metrics.Counter
}

func newReceiverMetrics() *receiverMetrics {
	return &receiverMetrics{
		received:      metrics.NewMeter(),
		bytes:         metrics.NewCounter(),
		discarded:     metrics.NewCounter(),
		handlerErrors: metrics.NewCounter(),
	}
}
