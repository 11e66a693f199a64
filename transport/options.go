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
	"time"

	"github.com/benbjohnson/clock"
	"github.com/uber/tribes-go/util"
)

// SenderOptions configure outbound connections. Zero fields take the
// defaults of DefaultSenderOptions.
type SenderOptions struct {
	// ConnectTimeout bounds dialing a member.
	ConnectTimeout time.Duration

	// Timeout bounds writing a frame and waiting for its ack.
	Timeout time.Duration

	// MaxRetries is the number of extra attempts a send makes before it
	// fails. It is also the number of consecutive failed sends after which a
	// member is considered failing.
	MaxRetries int

	// KeepAliveCount recycles a connection after this many messages. Zero
	// means never.
	KeepAliveCount int

	// KeepAliveTime recycles a connection this long after it was opened.
	// Zero means never.
	KeepAliveTime time.Duration

	// TCPNoDelay disables Nagle's algorithm on outbound connections.
	TCPNoDelay bool

	Clock clock.Clock
}

// DefaultSenderOptions returns the sender defaults.
func DefaultSenderOptions() *SenderOptions {
	return &SenderOptions{
		ConnectTimeout: time.Second,
		Timeout:        3 * time.Second,
		MaxRetries:     1,
		TCPNoDelay:     true,
		Clock:          clock.New(),
	}
}

func mergeSenderOptions(opts *SenderOptions) *SenderOptions {
	def := DefaultSenderOptions()
	if opts == nil {
		return def
	}

	merged := *opts
	merged.ConnectTimeout = util.SelectDuration(opts.ConnectTimeout, def.ConnectTimeout)
	merged.Timeout = util.SelectDuration(opts.Timeout, def.Timeout)
	merged.MaxRetries = util.SelectInt(opts.MaxRetries, def.MaxRetries)
	if merged.MaxRetries < 0 {
		merged.MaxRetries = 0
	}
	merged.TCPNoDelay = util.SelectBool(opts.TCPNoDelay, def.TCPNoDelay)
	if merged.Clock == nil {
		merged.Clock = def.Clock
	}
	return &merged
}

// ReceiverOptions configure the inbound side. Zero fields take the defaults
// of DefaultReceiverOptions.
type ReceiverOptions struct {
	// ReadBufferSize is the size of each connection's read buffer.
	ReadBufferSize int

	// MaxOutstandingWorkers bounds the number of connections serviced at
	// once.
	MaxOutstandingWorkers int

	// MaxIdleWorkers is the number of workers kept between connections.
	MaxIdleWorkers int

	// ReadTimeout closes connections that stay silent this long. Zero means
	// never.
	ReadTimeout time.Duration

	Clock clock.Clock
}

// DefaultReceiverOptions returns the receiver defaults.
func DefaultReceiverOptions() *ReceiverOptions {
	return &ReceiverOptions{
		ReadBufferSize:        64 * 1024,
		MaxOutstandingWorkers: 25,
		MaxIdleWorkers:        10,
		Clock:                 clock.New(),
	}
}

func mergeReceiverOptions(opts *ReceiverOptions) *ReceiverOptions {
	def := DefaultReceiverOptions()
	if opts == nil {
		return def
	}

	merged := *opts
	merged.ReadBufferSize = util.SelectInt(opts.ReadBufferSize, def.ReadBufferSize)
	merged.MaxOutstandingWorkers = util.SelectInt(opts.MaxOutstandingWorkers, def.MaxOutstandingWorkers)
	merged.MaxIdleWorkers = util.SelectInt(opts.MaxIdleWorkers, def.MaxIdleWorkers)
	merged.MaxIdleWorkers = util.Min(merged.MaxIdleWorkers, merged.MaxOutstandingWorkers)
	if merged.Clock == nil {
		merged.Clock = def.Clock
	}
	return &merged
}
