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

import "errors"

var (
	// ErrNotConnected is returned when a send needs a connection that could
	// not be established.
	ErrNotConnected = errors.New("not connected")

	// ErrRemoteFailure is returned when the receiver answered with a FAIL_ACK.
	ErrRemoteFailure = errors.New("remote failed to process message")

	// ErrUnknownMember is returned when a destination has no sender.
	ErrUnknownMember = errors.New("unknown member")

	// ErrSenderClosed is returned by senders of removed members.
	ErrSenderClosed = errors.New("sender closed")

	// ErrUnexpectedReply is returned when an ack frame carries neither ACK nor
	// FAIL_ACK.
	ErrUnexpectedReply = errors.New("unexpected reply")
)
