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
	"github.com/uber-common/bark"
	"github.com/uber/tribes-go/events"
	"github.com/uber/tribes-go/membership"
)

// eventLogger logs the events an operator wants to see without enabling
// debug logging in the transport.
type eventLogger struct {
	logger bark.Logger
}

func (l *eventLogger) HandleEvent(event events.Event) {
	switch event := event.(type) {
	case StartedEvent:
		l.logger.WithField("address", event.Address).Info("channel started")

	case StoppedEvent:
		l.logger.Info("channel stopped")

	case membership.MemberAddedEvent:
		l.logger.WithField("member", event.Member.String()).Info("member added")

	case membership.MemberRemovedEvent:
		l.logger.WithField("member", event.Member.String()).Info("member removed")

	case ChecksumEvent:
		l.logger.WithFields(bark.Fields{
			"checksum": event.Checksum,
			"members":  event.Members,
		}).Debug("membership computed new checksum")

	case ListenerFailedEvent:
		l.logger.WithFields(bark.Fields{
			"id":    event.ID,
			"error": event.Err,
		}).Error("message listener failed")
	}
}
