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

	"github.com/uber/tribes-go/membership"
	"github.com/uber/tribes-go/message"
)

// A ConnectedEvent is emitted when a sender opens a connection.
type ConnectedEvent struct {
	Member membership.Member
}

// A ConnectFailedEvent is emitted when dialing a member fails.
type ConnectFailedEvent struct {
	Member membership.Member
	Err    error
}

// A DisconnectedEvent is emitted when a sender closes its connection.
type DisconnectedEvent struct {
	Member membership.Member
}

// A SendSucceededEvent is emitted for every destination a message reached.
type SendSucceededEvent struct {
	Member   membership.Member
	ID       string
	Bytes    int
	Attempts int
	Duration time.Duration
}

// A SendFailedEvent is emitted for every destination a message did not
// reach.
type SendFailedEvent struct {
	Member   membership.Member
	ID       string
	Attempts int
	Err      error
}

// A MessageReceivedEvent is emitted when the receiver decodes a message.
type MessageReceivedEvent struct {
	Source  membership.Member
	ID      string
	Bytes   int
	AckMode message.AckMode
}

// A FrameDiscardedEvent is emitted when the receiver drops buffered bytes
// that did not form a valid frame.
type FrameDiscardedEvent struct {
	Remote string
	Bytes  int
	Err    error
}

// An AckSentEvent is emitted when the receiver answers a message.
type AckSentEvent struct {
	Remote string
	Failed bool
}

// A HandlerFailedEvent is emitted when the message handler returns an error
// or panics.
type HandlerFailedEvent struct {
	Source membership.Member
	ID     string
	Err    error
}

// A ProbeEvent is emitted after a passive probe of a not ready member.
type ProbeEvent struct {
	Member    membership.Member
	Recovered bool
}
