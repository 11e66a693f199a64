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
	"net"
	"time"

	"github.com/uber/tribes-go/events"
	"github.com/uber/tribes-go/framing"
	"github.com/uber/tribes-go/message"
)

func (s *TransportTestSuite) dial(r *Receiver) net.Conn {
	conn, err := net.Dial("tcp", r.Addr().String())
	s.Require().NoError(err)
	return conn
}

func (s *TransportTestSuite) readReply(conn net.Conn) []byte {
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reply := make([]byte, ackFrameLen)
	n := 0
	for n < len(reply) {
		m, err := conn.Read(reply[n:])
		s.Require().NoError(err)
		n += m
	}
	return reply
}

func (s *TransportTestSuite) TestFrameSplitAcrossWrites() {
	in := newInbox()
	r, _ := s.startReceiver(in, "one")
	conn := s.dial(r)
	defer conn.Close()

	env := s.envelope("split", message.OptionUseAck)
	frame := framing.Frame(env.Encode())
	for i := range frame {
		_, err := conn.Write(frame[i : i+1])
		s.Require().NoError(err)
	}

	s.Equal(framing.AckFrame(), s.readReply(conn))
	s.True(env.Equal(in.next(&s.Suite)))
}

func (s *TransportTestSuite) TestSeveralFramesInOneWrite() {
	in := newInbox()
	r, _ := s.startReceiver(in, "one")
	conn := s.dial(r)
	defer conn.Close()

	a, b := s.envelope("a", 0), s.envelope("b", 0)
	var data []byte
	data = framing.AppendFrame(data, a.Encode())
	data = framing.AppendFrame(data, b.Encode())
	_, err := conn.Write(data)
	s.Require().NoError(err)

	s.True(a.Equal(in.next(&s.Suite)))
	s.True(b.Equal(in.next(&s.Suite)))
}

func (s *TransportTestSuite) TestGarbageIsDiscarded() {
	in := newInbox()
	r, _ := s.startReceiver(in, "one")
	conn := s.dial(r)
	defer conn.Close()

	_, err := conn.Write([]byte("this is not a frame at all"))
	s.Require().NoError(err)
	s.Eventually(func() bool { return r.Stats().Discarded > 0 }, 2*time.Second, 5*time.Millisecond)

	env := s.envelope("after garbage", message.OptionUseAck)
	_, err = conn.Write(framing.Frame(env.Encode()))
	s.Require().NoError(err)

	s.Equal(framing.AckFrame(), s.readReply(conn))
	s.True(env.Equal(in.next(&s.Suite)))

	discarded := s.recorder.count(func(e events.Event) bool {
		_, ok := e.(FrameDiscardedEvent)
		return ok
	})
	s.True(discarded > 0)
	s.Equal(r.Stats().Discarded, int64(discarded))
}

func (s *TransportTestSuite) TestUndecodablePayloadIsDiscarded() {
	in := newInbox()
	r, _ := s.startReceiver(in, "one")
	conn := s.dial(r)
	defer conn.Close()

	_, err := conn.Write(framing.Frame([]byte{1, 2, 3}))
	s.Require().NoError(err)

	env := s.envelope("valid", 0)
	_, err = conn.Write(framing.Frame(env.Encode()))
	s.Require().NoError(err)

	s.True(env.Equal(in.next(&s.Suite)))
	s.Equal(int64(1), r.Stats().Discarded)
	s.Equal(int64(1), r.Stats().Received)
}

func (s *TransportTestSuite) TestWorkersAreReturned() {
	r, _ := s.startReceiver(newInbox(), "one")

	for i := 0; i < 3; i++ {
		conn := s.dial(r)
		env := s.envelope("x", message.OptionUseAck)
		_, err := conn.Write(framing.Frame(env.Encode()))
		s.Require().NoError(err)
		s.readReply(conn)
		conn.Close()
	}

	s.Eventually(func() bool {
		stats := r.Stats()
		return stats.ActiveWorkers == 0 && stats.IdleWorkers > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *TransportTestSuite) TestStopClosesConnections() {
	r, _ := s.startReceiver(newInbox(), "one")
	conn := s.dial(r)
	defer conn.Close()

	env := s.envelope("x", message.OptionUseAck)
	_, err := conn.Write(framing.Frame(env.Encode()))
	s.Require().NoError(err)
	s.readReply(conn)

	r.Stop()
	r.Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = conn.Read(make([]byte, 1))
	s.Error(err, "expected the receiver to close open connections on stop")
	s.Error(r.Start(nil))
}
