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

	"github.com/uber/tribes-go/membership"
	"github.com/uber/tribes-go/message"
)

// A MessageListener receives the payloads delivered to a channel. Accept is
// asked first; MessageReceived is only called when it returns true. Both may
// be called from many goroutines at once.
type MessageListener interface {
	Accept(payload []byte, source membership.Member) bool
	MessageReceived(payload []byte, source membership.Member)
}

// MessageListenerFunc accepts every message and hands it to the function.
type MessageListenerFunc func(payload []byte, source membership.Member)

// Accept implements MessageListener.
func (f MessageListenerFunc) Accept([]byte, membership.Member) bool { return true }

// MessageReceived implements MessageListener.
func (f MessageListenerFunc) MessageReceived(payload []byte, source membership.Member) {
	f(payload, source)
}

// RegisterListener adds l to the listeners messages are delivered to.
// Registering the same listener twice has no effect.
func (c *Channel) RegisterListener(l MessageListener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	for _, existing := range c.listeners {
		if sameListener(existing, l) {
			return
		}
	}
	// copy on write, delivery iterates without the lock
	listeners := make([]MessageListener, 0, len(c.listeners)+1)
	listeners = append(listeners, c.listeners...)
	c.listeners = append(listeners, l)
}

// DeregisterListener removes a listener added with RegisterListener.
func (c *Channel) DeregisterListener(l MessageListener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	listeners := make([]MessageListener, 0, len(c.listeners))
	for _, existing := range c.listeners {
		if !sameListener(existing, l) {
			listeners = append(listeners, existing)
		}
	}
	c.listeners = listeners
}

func sameListener(a, b MessageListener) (same bool) {
	// listeners of uncomparable types, func adapters included, are never
	// considered equal
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

func (c *Channel) messageListeners() []MessageListener {
	c.listenersMu.RLock()
	defer c.listenersMu.RUnlock()
	return c.listeners
}

// MessageDataReceived hands a received envelope to every listener that
// accepts it. A listener panic fails the delivery, which the receiver
// reports to senders that asked for a synchronous ack.
func (c *Channel) MessageDataReceived(env *message.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("message listener panicked: %v", r)
			c.emitter.EmitEvent(ListenerFailedEvent{ID: env.ID(), Err: err})
		}
	}()

	for _, l := range c.messageListeners() {
		if l.Accept(env.Payload, env.Source) {
			l.MessageReceived(env.Payload, env.Source)
		}
	}
	return nil
}
