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

package tribes

import (
	"errors"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/uber-common/bark"
	"github.com/uber/tribes-go/logging"
	"github.com/uber/tribes-go/transport"
)

// DefaultProbeInterval is how often members that stopped answering are
// probed.
const DefaultProbeInterval = 5 * time.Second

// Option configures a Channel. Options are applied in order by New, after the
// defaults.
type Option func(*Channel) error

func applyOptions(c *Channel, opts []Option) error {
	for _, option := range opts {
		if err := option(c); err != nil {
			return err
		}
	}
	return nil
}

// Logger sets the logger every component of the channel writes to.
func Logger(l bark.Logger) Option {
	return func(c *Channel) error {
		logging.SetLogger(l)
		return nil
	}
}

// LogLevels sets the minimum level of named loggers, e.g. "sender" or
// "receiver".
func LogLevels(levels map[string]logging.Level) Option {
	return func(c *Channel) error {
		return logging.SetLevels(levels)
	}
}

// Statter sets the reporter that channel events are reported to.
func Statter(s bark.StatsReporter) Option {
	return func(c *Channel) error {
		if s == nil {
			return errors.New("statter is nil")
		}
		c.statsReporter = s
		return nil
	}
}

// Clock sets the clock used for message timestamps, keep-alive and probing.
func Clock(clk clock.Clock) Option {
	return func(c *Channel) error {
		if clk == nil {
			return errors.New("clock is nil")
		}
		c.clock = clk
		return nil
	}
}

// Listener makes the channel accept connections on l instead of listening on
// the local member's address.
func Listener(l net.Listener) Option {
	return func(c *Channel) error {
		c.listener = l
		return nil
	}
}

// ListenAddress makes the channel listen on addr instead of the local
// member's address, e.g. to bind all interfaces.
func ListenAddress(addr string) Option {
	return func(c *Channel) error {
		c.listenAddress = addr
		return nil
	}
}

// SenderConfig sets the options of outbound connections.
func SenderConfig(opts *transport.SenderOptions) Option {
	return func(c *Channel) error {
		c.senderOptions = opts
		return nil
	}
}

// ReceiverConfig sets the options of the inbound side.
func ReceiverConfig(opts *transport.ReceiverOptions) Option {
	return func(c *Channel) error {
		c.receiverOptions = opts
		return nil
	}
}

// BufferPoolCeiling caps the bytes held by the buffer pool.
func BufferPoolCeiling(ceiling int64) Option {
	return func(c *Channel) error {
		c.poolCeiling = ceiling
		return nil
	}
}

// Compression snappy-encodes every outgoing payload.
func Compression(enabled bool) Option {
	return func(c *Channel) error {
		c.compression = enabled
		return nil
	}
}

// ProbeInterval sets how often members that are not ready are probed. A
// negative interval disables probing.
func ProbeInterval(d time.Duration) Option {
	return func(c *Channel) error {
		c.probeInterval = d
		return nil
	}
}

// Default options

func defaultClock(c *Channel) error {
	return Clock(clock.New())(c)
}

func defaultStatter(c *Channel) error {
	return Statter(noopStatsReporter{})(c)
}

func defaultProbeInterval(c *Channel) error {
	return ProbeInterval(DefaultProbeInterval)(c)
}

var defaultOptions = []Option{
	defaultClock,
	defaultStatter,
	defaultProbeInterval,
}

type noopStatsReporter struct{}

func (noopStatsReporter) IncCounter(name string, tags bark.Tags, value int64)      {}
func (noopStatsReporter) UpdateGauge(name string, tags bark.Tags, value int64)     {}
func (noopStatsReporter) RecordTimer(name string, tags bark.Tags, d time.Duration) {}
