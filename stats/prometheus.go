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

// Package stats exposes channel statistics to Prometheus.
package stats

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uber-common/bark"
	"github.com/uber/tribes-go/logging"
)

// PrometheusReporter is a bark.StatsReporter that keeps every stat in a
// Prometheus registry. Counters become counters, gauges gauges and timers
// histograms in seconds. Stat names are sanitized into metric names and
// tags become constant labels.
type PrometheusReporter struct {
	registry  *prometheus.Registry
	namespace string
	logger    bark.Logger

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// NewPrometheusReporter returns a reporter registering into registry, or into
// a new registry when registry is nil.
func NewPrometheusReporter(namespace string, registry *prometheus.Registry) *PrometheusReporter {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &PrometheusReporter{
		registry:   registry,
		namespace:  namespace,
		logger:     logging.Logger("stats"),
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Registry returns the registry the reporter writes to.
func (r *PrometheusReporter) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusReporter) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// IncCounter implements bark.StatsReporter.
func (r *PrometheusReporter) IncCounter(name string, tags bark.Tags, value int64) {
	if value < 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := seriesKey(name, tags)
	c, ok := r.counters[key]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   r.namespace,
			Name:        MetricName(name) + "_total",
			Help:        name,
			ConstLabels: prometheus.Labels(tags),
		})
		c, ok = r.register(c).(prometheus.Counter)
		if !ok {
			return
		}
		r.counters[key] = c
	}
	c.Add(float64(value))
}

// UpdateGauge implements bark.StatsReporter.
func (r *PrometheusReporter) UpdateGauge(name string, tags bark.Tags, value int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := seriesKey(name, tags)
	g, ok := r.gauges[key]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   r.namespace,
			Name:        MetricName(name),
			Help:        name,
			ConstLabels: prometheus.Labels(tags),
		})
		g, ok = r.register(g).(prometheus.Gauge)
		if !ok {
			return
		}
		r.gauges[key] = g
	}
	g.Set(float64(value))
}

// RecordTimer implements bark.StatsReporter.
func (r *PrometheusReporter) RecordTimer(name string, tags bark.Tags, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := seriesKey(name, tags)
	h, ok := r.histograms[key]
	if !ok {
		h = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   r.namespace,
			Name:        MetricName(name) + "_seconds",
			Help:        name,
			ConstLabels: prometheus.Labels(tags),
			// 100µs .. ~3s
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		})
		h, ok = r.register(h).(prometheus.Histogram)
		if !ok {
			return
		}
		r.histograms[key] = h
	}
	h.Observe(d.Seconds())
}

// register returns the collector to use for c, which is an existing one when
// an equal collector was registered before, or nil when c conflicts with a
// registered collector.
func (r *PrometheusReporter) register(c prometheus.Collector) prometheus.Collector {
	err := r.registry.Register(c)
	if err == nil {
		return c
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return are.ExistingCollector
	}
	r.logger.WithField("error", err.Error()).Warn("dropping stat that conflicts with a registered metric")
	return nil
}

// MetricName turns a dotted stat name into a Prometheus metric name, for
// example tribes.127_0_0_1_3000.send.bytes into
// tribes_127_0_0_1_3000_send_bytes.
func MetricName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func seriesKey(name string, tags bark.Tags) string {
	if len(tags) == 0 {
		return name
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(tags[k])
	}
	return b.String()
}
