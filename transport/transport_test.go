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
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/uber/tribes-go/events"
	"github.com/uber/tribes-go/framing"
	"github.com/uber/tribes-go/membership"
	"github.com/uber/tribes-go/message"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) HandleEvent(event events.Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recorder) count(match func(events.Event) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if match(e) {
			n++
		}
	}
	return n
}

// inbox collects delivered envelopes.
type inbox struct {
	ch  chan *message.Envelope
	err error
}

func newInbox() *inbox { return &inbox{ch: make(chan *message.Envelope, 128)} }

func (i *inbox) MessageDataReceived(env *message.Envelope) error {
	i.ch <- env
	return i.err
}

func (i *inbox) next(s *suite.Suite) *message.Envelope {
	select {
	case env := <-i.ch:
		return env
	case <-time.After(2 * time.Second):
		s.FailNow("expected a message to be delivered")
	}
	return nil
}

type TransportTestSuite struct {
	suite.Suite
	buffers   *framing.Pool
	emitter   *events.SyncEventEmitter
	recorder  *recorder
	states    *membership.StateRegistry
	local     membership.Member
	receivers []*Receiver
	sender    *MultiPointSender
}

func (s *TransportTestSuite) SetupTest() {
	s.buffers = framing.NewPool(0)
	s.emitter = &events.SyncEventEmitter{}
	s.recorder = &recorder{}
	s.emitter.AddListener(s.recorder)
	s.states = membership.NewStateRegistry(2, nil)
	s.local = membership.NewMember("127.0.0.1", 1, []byte("local"))
	s.receivers = nil
	s.sender = s.newSender(&SenderOptions{
		ConnectTimeout: 200 * time.Millisecond,
		Timeout:        time.Second,
	})
}

func (s *TransportTestSuite) TearDownTest() {
	s.sender.Close()
	for _, r := range s.receivers {
		r.Stop()
	}
}

func (s *TransportTestSuite) newSender(opts *SenderOptions) *MultiPointSender {
	return NewMultiPointSender(s.states, s.buffers, s.emitter, opts)
}

func (s *TransportTestSuite) startReceiver(handler MessageHandler, id string) (*Receiver, membership.Member) {
	r := NewReceiver(handler, s.buffers, s.emitter, &ReceiverOptions{ReadBufferSize: 512})
	s.Require().NoError(r.Listen("127.0.0.1:0"))
	s.receivers = append(s.receivers, r)

	addr := r.Addr().(*net.TCPAddr)
	return r, membership.NewMember("127.0.0.1", addr.Port, []byte(id))
}

// deadMember returns a member on a port nothing listens on.
func (s *TransportTestSuite) deadMember(id string) membership.Member {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return membership.NewMember("127.0.0.1", port, []byte(id))
}

func (s *TransportTestSuite) envelope(payload string, options int32) *message.Envelope {
	return message.New([]byte(payload), s.local, options, nil)
}

func (s *TransportTestSuite) send(env *message.Envelope, dests ...membership.Member) *SendResult {
	return s.sender.SendMessage(context.Background(), dests, env)
}

func (s *TransportTestSuite) TestBroadcastPartialFailure() {
	in1, in3 := newInbox(), newInbox()
	_, m1 := s.startReceiver(in1, "one")
	m2 := s.deadMember("two")
	_, m3 := s.startReceiver(in3, "three")

	result := s.send(s.envelope("hello", message.OptionUseAck), m1, m2, m3)

	s.ElementsMatch([]membership.Member{m1, m3}, result.Successes())
	s.Require().Len(result.Failures(), 1)
	s.Equal(m2, result.Failures()[0].Member)
	s.ErrorIs(result.Failures()[0].Err, ErrNotConnected)
	s.Error(result.Err())
	s.False(result.OK())

	s.Equal(membership.Ready, s.states.Get(m1, false).State())
	s.Equal(membership.Suspect, s.states.Get(m2, false).State())
	s.Equal(membership.Ready, s.states.Get(m3, false).State())

	s.Equal("hello", string(in1.next(&s.Suite).Payload))
	s.Equal("hello", string(in3.next(&s.Suite).Payload))
}

func (s *TransportTestSuite) TestSendWithoutAck() {
	in := newInbox()
	_, m := s.startReceiver(in, "one")

	env := s.envelope("fire and forget", 0)
	result := s.send(env, m)
	s.True(result.OK())
	s.Nil(result.Err())

	got := in.next(&s.Suite)
	s.True(env.Equal(got))
	s.Equal(s.local, got.Source)
}

func (s *TransportTestSuite) TestOrderPreserved() {
	in := newInbox()
	_, m := s.startReceiver(in, "one")

	var sent []*message.Envelope
	for i := 0; i < 50; i++ {
		env := s.envelope("msg", message.OptionUseAck)
		sent = append(sent, env)
		s.Require().True(s.send(env, m).OK())
	}
	for _, env := range sent {
		s.True(env.Equal(in.next(&s.Suite)))
	}
}

func (s *TransportTestSuite) TestSyncAckReportsHandlerFailure() {
	in := newInbox()
	in.err = errors.New("rejected")
	_, m := s.startReceiver(in, "one")

	result := s.send(s.envelope("x", message.OptionUseAck|message.OptionSyncAck), m)
	res, ok := result.Result(m)
	s.Require().True(ok)
	s.ErrorIs(res.Err, ErrRemoteFailure)
	s.Equal(1, res.Attempts, "expected a remote failure not to be retried")
	s.True(s.states.Get(m, false).IsReady(), "expected a reachable member to stay ready")
}

func (s *TransportTestSuite) TestAsyncAckIgnoresHandlerFailure() {
	in := newInbox()
	in.err = errors.New("rejected")
	_, m := s.startReceiver(in, "one")

	s.True(s.send(s.envelope("x", message.OptionUseAck), m).OK())
}

func (s *TransportTestSuite) TestHandlerPanicAnswersFailAck() {
	handler := MessageHandlerFunc(func(*message.Envelope) error { panic("boom") })
	r, m := s.startReceiver(handler, "one")

	result := s.send(s.envelope("x", message.OptionUseAck|message.OptionSyncAck), m)
	s.ErrorIs(result.Failures()[0].Err, ErrRemoteFailure)
	s.Equal(int64(1), r.Stats().HandlerErrors)
}

func (s *TransportTestSuite) TestRetriesAndFailingPenalty() {
	sender := s.newSender(&SenderOptions{
		ConnectTimeout: 200 * time.Millisecond,
		MaxRetries:     2,
	})
	defer sender.Close()
	m := s.deadMember("dead")

	first := sender.SendMessage(context.Background(), []membership.Member{m}, s.envelope("x", 0))
	s.Equal(3, first.Results[0].Attempts)
	s.Equal(membership.Suspect, s.states.Get(m, false).State())

	sender.SendMessage(context.Background(), []membership.Member{m}, s.envelope("x", 0))
	s.Equal(membership.Failing, s.states.Get(m, false).State())

	third := sender.SendMessage(context.Background(), []membership.Member{m}, s.envelope("x", 0))
	s.Equal(1, third.Results[0].Attempts, "expected a failing member to get a single attempt")

	changes := s.recorder.count(func(e events.Event) bool {
		_, ok := e.(membership.StateChangedEvent)
		return ok
	})
	s.Equal(2, changes)
}

func (s *TransportTestSuite) TestNegativeMaxRetriesStillAttempts() {
	sender := s.newSender(&SenderOptions{
		ConnectTimeout: 200 * time.Millisecond,
		MaxRetries:     -1,
	})
	defer sender.Close()
	m := s.deadMember("dead")

	result := sender.SendMessage(context.Background(), []membership.Member{m}, s.envelope("x", 0))
	s.Equal(1, result.Results[0].Attempts)
	s.ErrorIs(result.Results[0].Err, ErrNotConnected)
	s.False(result.OK())
	s.Equal(membership.Suspect, s.states.Get(m, false).State())
}

// replyingMember accepts one connection, reads a frame and answers with reply.
func (s *TransportTestSuite) replyingMember(reply []byte) membership.Member {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := framing.NewBuffer(512, true)
		chunk := make([]byte, 512)
		for !buf.DoesPackageExist() {
			n, err := conn.Read(chunk)
			if err != nil {
				return
			}
			buf.Append(chunk[:n])
		}
		conn.Write(reply)
		// hold the connection open so only the reply can end the wait
		conn.Read(chunk)
	}()
	s.T().Cleanup(func() {
		l.Close()
		<-done
	})

	return membership.NewMember("127.0.0.1", l.Addr().(*net.TCPAddr).Port, []byte("fake"))
}

func (s *TransportTestSuite) TestGarbledAckFails() {
	ack := framing.AckFrame()
	garbled := append(ack[:len(ack)-framing.FooterLen], "XXXXXXX"...)
	longer := framing.Frame([]byte{6, 2, 3, 4})[:len(ack)]

	for _, reply := range [][]byte{garbled, longer} {
		m := s.replyingMember(reply)
		sender := s.newSender(&SenderOptions{
			ConnectTimeout: 200 * time.Millisecond,
			Timeout:        5 * time.Second,
			MaxRetries:     -1,
		})

		start := time.Now()
		result := sender.SendMessage(context.Background(), []membership.Member{m}, s.envelope("x", message.OptionUseAck))
		s.ErrorIs(result.Results[0].Err, ErrUnexpectedReply)
		s.True(time.Since(start) < time.Second, "expected a garbled ack to fail without waiting for the timeout")
		sender.Close()
	}
}

func (s *TransportTestSuite) TestSendAfterClose() {
	_, m := s.startReceiver(newInbox(), "one")
	sender := s.newSender(nil)
	sender.Close()
	sender.Close()
	s.True(sender.Closed())

	result := sender.SendMessage(context.Background(), []membership.Member{m}, s.envelope("x", message.OptionUseAck))
	s.ErrorIs(result.Results[0].Err, ErrSenderClosed)
	s.Equal(0, result.Results[0].Attempts)

	sender.Add(m)
	s.Empty(sender.Members(), "expected a closed sender not to create member senders")
}

func (s *TransportTestSuite) TestSuccessResetsState() {
	in := newInbox()
	_, m := s.startReceiver(in, "one")
	s.states.Get(m, true).SetFailing()

	s.True(s.send(s.envelope("x", message.OptionUseAck), m).OK())
	s.True(s.states.Get(m, false).IsReady())
}

func (s *TransportTestSuite) TestKeepAliveCountRecyclesConnection() {
	sender := s.newSender(&SenderOptions{KeepAliveCount: 2})
	defer sender.Close()
	in := newInbox()
	_, m := s.startReceiver(in, "one")

	for i := 0; i < 5; i++ {
		r := sender.SendMessage(context.Background(), []membership.Member{m}, s.envelope("x", message.OptionUseAck))
		s.Require().True(r.OK())
	}

	connects := s.recorder.count(func(e events.Event) bool {
		_, ok := e.(ConnectedEvent)
		return ok
	})
	s.Equal(3, connects)
}

func (s *TransportTestSuite) TestConnectIsIdempotent() {
	_, m := s.startReceiver(newInbox(), "one")
	dead := s.deadMember("dead")
	s.sender.Add(m)
	s.sender.Add(dead)

	s.sender.Connect()
	s.sender.Connect()
	s.True(s.sender.Connected())

	connects := s.recorder.count(func(e events.Event) bool {
		_, ok := e.(ConnectedEvent)
		return ok
	})
	s.Equal(1, connects)
	s.Equal(1, s.sender.Stats().Connected)
	s.True(s.states.Get(dead, false).IsSuspect(), "expected a failed connect to mark the member")

	s.sender.Disconnect()
	s.sender.Disconnect()
	s.False(s.sender.Connected())
	s.Equal(0, s.sender.Stats().Connected)
}

func (s *TransportTestSuite) TestAddAndRemove() {
	_, m := s.startReceiver(newInbox(), "one")
	s.sender.Add(m)
	s.sender.Add(m)
	s.Equal([]membership.Member{m}, s.sender.Members())

	s.sender.Remove(m)
	s.Empty(s.sender.Members())
	s.sender.Remove(m)
}

func (s *TransportTestSuite) TestReAddedMemberStartsReady() {
	m := s.deadMember("dead")
	s.send(s.envelope("x", 0), m)
	stale := s.states.Get(m, false)
	s.Require().True(stale.IsSuspect())

	s.sender.Remove(m)
	s.states.Remove(m)
	s.sender.Add(m)

	s.True(s.states.Get(m, false).IsReady())
	s.False(stale == s.states.Get(m, false), "expected a fresh state after re-adding")
}

func (s *TransportTestSuite) TestZeroMemberIsUnknown() {
	result := s.send(s.envelope("x", 0), membership.Member{})
	s.ErrorIs(result.Results[0].Err, ErrUnknownMember)
}

func (s *TransportTestSuite) TestCancelledContext() {
	_, m := s.startReceiver(newInbox(), "one")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := s.sender.SendMessage(ctx, []membership.Member{m}, s.envelope("x", 0))
	s.ErrorIs(result.Results[0].Err, context.Canceled)
	s.Equal(0, result.Results[0].Attempts)
	s.True(s.states.Get(m, true).IsReady(), "expected a send that never started not to count")
}

func (s *TransportTestSuite) TestProbeRecoversMember() {
	m := s.deadMember("one")
	s.send(s.envelope("x", 0), m)
	s.Require().True(s.states.Get(m, false).IsSuspect())

	s.sender.Probe(context.Background())
	s.True(s.states.Get(m, false).IsSuspect(), "expected a failed probe to change nothing")

	l, err := net.Listen("tcp", m.Address())
	s.Require().NoError(err)
	r := NewReceiver(newInbox(), s.buffers, s.emitter, nil)
	s.Require().NoError(r.Start(l))
	s.receivers = append(s.receivers, r)

	s.sender.Probe(context.Background())
	s.True(s.states.Get(m, false).IsReady())

	recovered := s.recorder.count(func(e events.Event) bool {
		p, ok := e.(ProbeEvent)
		return ok && p.Recovered
	})
	s.Equal(1, recovered)
}

func (s *TransportTestSuite) TestCompressedPayload() {
	in := newInbox()
	_, m := s.startReceiver(in, "one")

	env := s.envelope("zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", message.OptionUseAck)
	message.Compress(env)
	s.True(s.send(env, m).OK())

	got := in.next(&s.Suite)
	s.False(got.Compressed())
	s.Equal("zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", string(got.Payload))
}

func (s *TransportTestSuite) TestSenderStats() {
	_, m := s.startReceiver(newInbox(), "one")
	dead := s.deadMember("dead")
	s.send(s.envelope("x", message.OptionUseAck), m, dead)

	stats := s.sender.Stats()
	s.Equal(int64(1), stats.Sent)
	s.Equal(int64(1), stats.Failed)
	s.Equal(2, stats.Members)
	s.True(stats.Bytes > 0)
	s.True(stats.LatencyMax >= stats.LatencyP50)
}

func TestTransportTestSuite(t *testing.T) {
	suite.Run(t, new(TransportTestSuite))
}
