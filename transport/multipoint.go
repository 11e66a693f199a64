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
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/uber-common/bark"
	"github.com/uber/tribes-go/events"
	"github.com/uber/tribes-go/framing"
	"github.com/uber/tribes-go/logging"
	"github.com/uber/tribes-go/membership"
	"github.com/uber/tribes-go/message"
)

// MultiPointSender sends messages to many members at once, one dedicated
// connection per member.
type MultiPointSender struct {
	states  *membership.StateRegistry
	buffers *framing.Pool
	emitter events.EventEmitter
	opts    *SenderOptions
	logger  bark.Logger

	senders   *xsync.MapOf[membership.Member, *memberSender]
	connected atomic.Bool

	// closeMu orders sender creation against Close
	closeMu sync.RWMutex
	closed  bool

	metrics   *senderMetrics
}

// NewMultiPointSender returns a sender that tracks member liveness in states
// and borrows buffers from buffers. A nil emitter drops events.
func NewMultiPointSender(states *membership.StateRegistry, buffers *framing.Pool, emitter events.EventEmitter, opts *SenderOptions) *MultiPointSender {
	if emitter == nil {
		emitter = events.NoEmitter
	}
	return &MultiPointSender{
		states:  states,
		buffers: buffers,
		emitter: emitter,
		opts:    mergeSenderOptions(opts),
		logger:  logging.Logger("sender"),
		senders: xsync.NewMapOf[membership.Member, *memberSender](),
		metrics: newSenderMetrics(),
	}
}

// Connect opens connections to every known member. Members that cannot be
// reached are logged and marked in their sender state. Connect is idempotent.
func (m *MultiPointSender) Connect() {
	m.connected.Store(true)

	var wg sync.WaitGroup
	m.senders.Range(func(member membership.Member, s *memberSender) bool {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.connectMember(s)
		}()
		return true
	})
	wg.Wait()
}

func (m *MultiPointSender) connectMember(s *memberSender) {
	if err := s.connect(); err != nil {
		s.logger.WithField("error", err.Error()).Warn("unable to connect")
	}
}

// Disconnect closes all connections. Senders stay registered and reconnect on
// the next send. Disconnect is idempotent.
func (m *MultiPointSender) Disconnect() {
	m.connected.Store(false)
	m.senders.Range(func(_ membership.Member, s *memberSender) bool {
		s.disconnect()
		return true
	})
}

// Connected reports whether Connect was called more recently than Disconnect.
func (m *MultiPointSender) Connected() bool {
	return m.connected.Load()
}

// Close disconnects and removes every sender. Sends started afterwards fail
// with ErrSenderClosed. Close is idempotent.
func (m *MultiPointSender) Close() {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()
	if m.closed {
		return
	}
	m.closed = true

	m.Disconnect()
	m.senders.Range(func(member membership.Member, s *memberSender) bool {
		m.senders.Delete(member)
		s.close()
		return true
	})
	m.metrics.sent.Stop()
}

// Add registers a sender for member. When the sender is connected the new
// member is dialed right away.
func (m *MultiPointSender) Add(member membership.Member) {
	s, loaded, err := m.sender(member)
	if err != nil {
		return
	}
	if !loaded && m.connected.Load() {
		m.connectMember(s)
	}
}

// Remove closes the connection to member and forgets its sender. Messages
// not yet written are dropped.
func (m *MultiPointSender) Remove(member membership.Member) {
	if s, ok := m.senders.LoadAndDelete(member); ok {
		s.close()
	}
}

// Members returns the members that have a sender.
func (m *MultiPointSender) Members() []membership.Member {
	members := make([]membership.Member, 0, m.senders.Size())
	m.senders.Range(func(member membership.Member, _ *memberSender) bool {
		members = append(members, member)
		return true
	})
	return members
}

func (m *MultiPointSender) sender(member membership.Member) (*memberSender, bool, error) {
	m.closeMu.RLock()
	defer m.closeMu.RUnlock()
	if m.closed {
		return nil, false, ErrSenderClosed
	}

	s, loaded := m.senders.LoadOrCompute(member, func() *memberSender {
		return newMemberSender(member, m.states.Get(member, true), m)
	})
	return s, loaded, nil
}

// Closed reports whether Close has been called.
func (m *MultiPointSender) Closed() bool {
	m.closeMu.RLock()
	defer m.closeMu.RUnlock()
	return m.closed
}

// SendMessage frames env once and writes it to every destination in
// parallel. It blocks until every destination succeeded or failed.
func (m *MultiPointSender) SendMessage(ctx context.Context, destinations []membership.Member, env *message.Envelope) *SendResult {
	frame := framing.AppendFrame(make([]byte, 0, framing.FramedLen(env.EncodedLen())), env.Encode())
	result := &SendResult{
		ID:      env.ID(),
		Results: make([]MemberResult, len(destinations)),
	}

	if len(destinations) == 1 {
		result.Results[0] = m.sendTo(ctx, destinations[0], frame, env)
		return result
	}

	var wg sync.WaitGroup
	for i, dest := range destinations {
		wg.Add(1)
		go func(i int, dest membership.Member) {
			defer wg.Done()
			result.Results[i] = m.sendTo(ctx, dest, frame, env)
		}(i, dest)
	}
	wg.Wait()
	return result
}

func (m *MultiPointSender) sendTo(ctx context.Context, dest membership.Member, frame []byte, env *message.Envelope) MemberResult {
	res := MemberResult{Member: dest}
	if dest.IsZero() {
		res.Err = ErrUnknownMember
		return res
	}

	s, _, err := m.sender(dest)
	if err != nil {
		res.Err = err
		return res
	}
	start := m.opts.Clock.Now()
	res.Attempts, res.Err = s.send(ctx, frame, env.WantsAck())
	res.Duration = m.opts.Clock.Now().Sub(start)

	if res.Err != nil {
		m.metrics.failed.Inc(1)
		m.emitter.EmitEvent(SendFailedEvent{
			Member:   dest,
			ID:       env.ID(),
			Attempts: res.Attempts,
			Err:      res.Err,
		})
		s.logger.WithFields(bark.Fields{
			"message":  env.ID(),
			"attempts": res.Attempts,
			"error":    res.Err.Error(),
		}).Warn("send failed")
		return res
	}

	m.metrics.sent.Mark(1)
	m.metrics.bytes.Inc(int64(len(frame)))
	m.metrics.latency.record(res.Duration)
	m.emitter.EmitEvent(SendSucceededEvent{
		Member:   dest,
		ID:       env.ID(),
		Bytes:    len(frame),
		Attempts: res.Attempts,
		Duration: res.Duration,
	})
	return res
}

// Probe tries to reconnect every member that is suspect or failing and has
// no send in flight. A member that accepts the connection is ready again.
// Probe failures are not reported.
func (m *MultiPointSender) Probe(ctx context.Context) {
	m.senders.Range(func(member membership.Member, s *memberSender) bool {
		if ctx.Err() != nil {
			return false
		}
		if probed, recovered := s.probe(); probed {
			m.emitter.EmitEvent(ProbeEvent{Member: member, Recovered: recovered})
		}
		return true
	})
}

// Stats returns a snapshot of the sender's counters.
func (m *MultiPointSender) Stats() SenderStats {
	stats := SenderStats{
		Sent:       m.metrics.sent.Count(),
		Failed:     m.metrics.failed.Count(),
		SentRate1:  m.metrics.sent.Rate1(),
		Bytes:      m.metrics.bytes.Count(),
		LatencyP50: m.metrics.latency.quantile(50),
		LatencyP99: m.metrics.latency.quantile(99),
		LatencyMax: m.metrics.latency.max(),
	}
	m.senders.Range(func(_ membership.Member, s *memberSender) bool {
		stats.Members++
		if s.connected() {
			stats.Connected++
		}
		return true
	})
	return stats
}
