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
	"fmt"
	"strings"
	"sync"

	"github.com/uber-common/bark"
	"github.com/uber/tribes-go/events"
	"github.com/uber/tribes-go/membership"
	"github.com/uber/tribes-go/transport"
)

// statter turns channel events into counters, gauges and timers on a
// bark.StatsReporter. Keys are prefixed with tribes.<host_port>.
type statter struct {
	reporter bark.StatsReporter
	prefix   string

	mutex sync.RWMutex
	keys  map[string]string
}

func newStatter(address string, reporter bark.StatsReporter, emitter events.EventRegistrar) *statter {
	s := &statter{
		reporter: reporter,
		prefix:   toStatsPrefix(address),
		keys:     make(map[string]string),
	}
	if emitter != nil {
		emitter.AddListener(s)
	}
	return s
}

func (s *statter) HandleEvent(event events.Event) {
	switch event := event.(type) {
	case transport.ConnectedEvent:
		s.reporter.IncCounter(s.key("connect"), nil, 1)

	case transport.ConnectFailedEvent:
		s.reporter.IncCounter(s.key("connect.failed"), nil, 1)

	case transport.DisconnectedEvent:
		s.reporter.IncCounter(s.key("disconnect"), nil, 1)

	case transport.SendSucceededEvent:
		s.reporter.IncCounter(s.key("send"), nil, 1)
		s.reporter.IncCounter(s.key("send.bytes"), nil, int64(event.Bytes))
		s.reporter.RecordTimer(s.key("send"), nil, event.Duration)
		if event.Attempts > 1 {
			s.reporter.IncCounter(s.key("send.retry"), nil, int64(event.Attempts-1))
		}

	case transport.SendFailedEvent:
		s.reporter.IncCounter(s.key("send.failed"), nil, 1)

	case transport.MessageReceivedEvent:
		s.reporter.IncCounter(s.key("recv"), nil, 1)
		s.reporter.IncCounter(s.key("recv.bytes"), nil, int64(event.Bytes))
		s.reporter.IncCounter(s.key("recv.ack-"+event.AckMode.String()), nil, 1)

	case transport.FrameDiscardedEvent:
		s.reporter.IncCounter(s.key("recv.discarded"), nil, 1)

	case transport.AckSentEvent:
		if event.Failed {
			s.reporter.IncCounter(s.key("ack.failed"), nil, 1)
		} else {
			s.reporter.IncCounter(s.key("ack"), nil, 1)
		}

	case transport.HandlerFailedEvent:
		s.reporter.IncCounter(s.key("handler.failed"), nil, 1)

	case transport.ProbeEvent:
		s.reporter.IncCounter(s.key("probe"), nil, 1)
		if event.Recovered {
			s.reporter.IncCounter(s.key("probe.recovered"), nil, 1)
		}

	case membership.StateChangedEvent:
		s.reporter.IncCounter(s.key("member-state."+event.NewState.String()), nil, 1)

	case membership.MemberAddedEvent:
		s.reporter.IncCounter(s.key("membership.added"), nil, 1)

	case membership.MemberRemovedEvent:
		s.reporter.IncCounter(s.key("membership.removed"), nil, 1)

	case ChecksumEvent:
		s.reporter.UpdateGauge(s.key("checksum"), nil, int64(event.Checksum))
		s.reporter.UpdateGauge(s.key("num-members"), nil, int64(event.Members))
	}
}

func (s *statter) key(suffix string) string {
	s.mutex.RLock()
	key, ok := s.keys[suffix]
	s.mutex.RUnlock()
	if ok {
		return key
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	key, ok = s.keys[suffix]
	if !ok {
		key = s.prefix + suffix
		s.keys[suffix] = key
	}
	return key
}

// toStatsPrefix turns an address into a stats prefix, for example
// 192.168.0.12:3000 into tribes.192_168_0_12_3000.
func toStatsPrefix(address string) string {
	prefix := strings.Replace(address, ".", "_", -1)
	prefix = strings.Replace(prefix, ":", "_", -1)
	return fmt.Sprintf("tribes.%s.", prefix)
}
