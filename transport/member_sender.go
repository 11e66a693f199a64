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
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/uber-common/bark"
	"github.com/uber/tribes-go/events"
	"github.com/uber/tribes-go/framing"
	"github.com/uber/tribes-go/membership"
)

var ackFrameLen = framing.FramedLen(len(framing.Ack))

// A memberSender owns the outbound connection to a single member. Its mutex
// serializes sends so that at most one message is in flight and messages
// arrive in the order they were sent.
type memberSender struct {
	member  membership.Member
	state   *membership.SenderState
	opts    *SenderOptions
	buffers *framing.Pool
	emitter events.EventEmitter
	logger  bark.Logger

	mu          sync.Mutex
	conn        net.Conn
	connectedAt time.Time
	sent        int
	closed      bool
}

func newMemberSender(member membership.Member, state *membership.SenderState, m *MultiPointSender) *memberSender {
	return &memberSender{
		member:  member,
		state:   state,
		opts:    m.opts,
		buffers: m.buffers,
		emitter: m.emitter,
		logger:  m.logger.WithField("member", member.String()),
	}
}

func (s *memberSender) connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSenderClosed
	}
	err := s.connectLocked()
	if err != nil {
		s.record(err)
	}
	return err
}

func (s *memberSender) connectLocked() error {
	if s.conn != nil {
		return nil
	}

	dialer := net.Dialer{Timeout: s.opts.ConnectTimeout}
	conn, err := dialer.Dial("tcp", s.member.Address())
	if err != nil {
		s.emitter.EmitEvent(ConnectFailedEvent{Member: s.member, Err: err})
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(s.opts.TCPNoDelay)
	}

	s.conn = conn
	s.connectedAt = s.opts.Clock.Now()
	s.sent = 0
	s.emitter.EmitEvent(ConnectedEvent{Member: s.member})
	s.logger.Debug("connected")
	return nil
}

func (s *memberSender) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectLocked()
}

func (s *memberSender) disconnectLocked() {
	if s.conn == nil {
		return
	}
	s.conn.Close()
	s.conn = nil
	s.emitter.EmitEvent(DisconnectedEvent{Member: s.member})
	s.logger.Debug("disconnected")
}

// close disconnects and refuses further sends.
func (s *memberSender) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.disconnectLocked()
}

func (s *memberSender) connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// expired reports whether the keep-alive budget of the current connection is
// used up.
func (s *memberSender) expired() bool {
	if s.opts.KeepAliveCount > 0 && s.sent >= s.opts.KeepAliveCount {
		return true
	}
	if s.opts.KeepAliveTime > 0 && s.opts.Clock.Now().Sub(s.connectedAt) >= s.opts.KeepAliveTime {
		return true
	}
	return false
}

// send writes frame and, when wantAck is set, waits for the reply. It makes
// up to 1+MaxRetries attempts, reconnecting in between, or a single attempt
// when the member is failing.
func (s *memberSender) send(ctx context.Context, frame []byte, wantAck bool) (attempts int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	budget := 1 + max(s.opts.MaxRetries, 0)
	if s.state.IsFailing() {
		budget = 1
	}

	for attempts < budget {
		if s.closed {
			return attempts, ErrSenderClosed
		}
		if err := ctx.Err(); err != nil {
			if attempts == 0 {
				return 0, err
			}
			break
		}

		attempts++
		err = s.attempt(frame, wantAck)
		if err == nil || errors.Is(err, ErrRemoteFailure) {
			break
		}

		s.logger.WithFields(bark.Fields{
			"attempt": attempts,
			"error":   err.Error(),
		}).Debug("send attempt failed")
		s.disconnectLocked()
	}

	if err == nil {
		s.sent++
	}
	s.record(err)
	return attempts, err
}

func (s *memberSender) attempt(frame []byte, wantAck bool) error {
	if s.conn != nil && s.expired() {
		s.disconnectLocked()
	}
	if err := s.connectLocked(); err != nil {
		return err
	}

	deadline := time.Now().Add(s.opts.Timeout)
	s.conn.SetWriteDeadline(deadline)
	if _, err := s.conn.Write(frame); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if !wantAck {
		return nil
	}

	s.conn.SetReadDeadline(deadline)
	return s.awaitAck()
}

func (s *memberSender) awaitAck() error {
	buf := s.buffers.Get(ackFrameLen, true)
	defer s.buffers.Put(buf)

	chunk := make([]byte, ackFrameLen)
	for !buf.DoesPackageExist() {
		// a full ack's worth of bytes that is not a frame never becomes one
		if buf.Len() >= ackFrameLen {
			return fmt.Errorf("%w: garbled ack", ErrUnexpectedReply)
		}

		n, err := s.conn.Read(chunk[:ackFrameLen-buf.Len()])
		if n > 0 && (!buf.Append(chunk[:n]) || buf.Check() != nil) {
			return fmt.Errorf("%w: garbled ack", ErrUnexpectedReply)
		}
		if err != nil && !buf.DoesPackageExist() {
			return fmt.Errorf("read ack: %w", err)
		}
	}

	reply := buf.ExtractDataPackage(true)
	switch {
	case framing.IsAck(reply):
		return nil
	case framing.IsFailAck(reply):
		return ErrRemoteFailure
	}
	return fmt.Errorf("%w: %v", ErrUnexpectedReply, reply)
}

// record feeds the outcome of a send into the member's sender state. A
// FAIL_ACK proves the member is reachable and counts as a success. When the
// member was removed mid-send this updates a state no registry holds anymore,
// and a member added back later starts out Ready.
func (s *memberSender) record(err error) {
	var from, to membership.State
	if err == nil || errors.Is(err, ErrRemoteFailure) {
		from, to = s.state.Success()
	} else {
		from, to = s.state.Failure()
	}

	if from == to {
		return
	}
	s.emitter.EmitEvent(membership.StateChangedEvent{
		Member:   s.member,
		OldState: from,
		NewState: to,
	})
	s.logger.WithFields(bark.Fields{
		"from": from.String(),
		"to":   to.String(),
	}).Info("sender state changed")
}

// probe tries to reconnect to a member that is not ready. It gives up
// immediately when a send is in flight. Errors are only logged.
func (s *memberSender) probe() (probed, recovered bool) {
	if !s.mu.TryLock() {
		return false, false
	}
	defer s.mu.Unlock()

	if s.closed || s.state.IsReady() {
		return false, false
	}

	if err := s.connectLocked(); err != nil {
		s.logger.WithField("error", err.Error()).Debug("probe failed")
		return true, false
	}
	s.record(nil)
	return true, true
}
