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

// Package tribes is a cluster group-communication transport. A Channel
// broadcasts opaque payloads to a set of members over dedicated TCP
// connections, tracks which members stopped answering, and hands inbound
// payloads to registered listeners.
//
// Messages travel in a flat envelope (id, timestamp, options, source and
// payload) wrapped in a frame delimited by fixed header and footer
// sentinels. Senders may ask for an acknowledgement on receipt or after the
// receiving application processed the message.
//
// Membership discovery is left to the caller: members are announced with
// MemberAdded and MemberRemoved.
package tribes

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/uber-common/bark"
	"github.com/uber/tribes-go/events"
	"github.com/uber/tribes-go/framing"
	"github.com/uber/tribes-go/logging"
	"github.com/uber/tribes-go/membership"
	"github.com/uber/tribes-go/message"
	"github.com/uber/tribes-go/pool"
	"github.com/uber/tribes-go/transport"
)

type state uint

const (
	// created means the channel has been constructed but not started.
	created state = iota
	// started means the channel is accepting connections and sending.
	started
	// stopped means the channel has been stopped and cannot be restarted.
	stopped
)

// Channel is the entry point of the transport.
type Channel struct {
	local membership.Member

	state      state
	stateMutex sync.RWMutex

	clock           clock.Clock
	statsReporter   bark.StatsReporter
	listener        net.Listener
	listenAddress   string
	senderOptions   *transport.SenderOptions
	receiverOptions *transport.ReceiverOptions
	poolCeiling     int64
	compression     bool
	probeInterval   time.Duration

	membership *membership.Membership
	buffers    *framing.Pool
	emitter    *events.SyncEventEmitter
	sender     *transport.MultiPointSender
	receiver   *transport.Receiver
	executor   *pool.Executor
	statter    *statter

	listeners   []MessageListener
	listenersMu sync.RWMutex

	stopProbe context.CancelFunc
	probeDone chan struct{}

	logger bark.Logger
}

// New returns a channel for the local member. The channel does not touch the
// network until Start.
func New(local membership.Member, opts ...Option) (*Channel, error) {
	if local.IsZero() {
		return nil, ErrInvalidLocal
	}

	c := &Channel{
		local:   local,
		emitter: &events.SyncEventEmitter{},
		logger:  logging.Logger("channel").WithField("local", local.String()),
	}

	if err := applyOptions(c, defaultOptions); err != nil {
		panic(fmt.Errorf("error applying default options: %v", err))
	}
	if err := applyOptions(c, opts); err != nil {
		return nil, err
	}

	senderOptions := transport.SenderOptions{}
	if c.senderOptions != nil {
		senderOptions = *c.senderOptions
	}
	if senderOptions.Clock == nil {
		senderOptions.Clock = c.clock
	}
	c.senderOptions = &senderOptions

	receiverOptions := transport.ReceiverOptions{}
	if c.receiverOptions != nil {
		receiverOptions = *c.receiverOptions
	}
	if receiverOptions.Clock == nil {
		receiverOptions.Clock = c.clock
	}
	c.receiverOptions = &receiverOptions

	threshold := c.senderOptions.MaxRetries
	if threshold <= 0 {
		threshold = transport.DefaultSenderOptions().MaxRetries
	}
	c.membership = membership.NewMembership(local, membership.NewStateRegistry(threshold, c.clock))
	c.buffers = framing.NewPool(c.poolCeiling)
	c.sender = transport.NewMultiPointSender(c.membership.States(), c.buffers, c.emitter, c.senderOptions)
	c.statter = newStatter(local.Address(), c.statsReporter, c.emitter)
	c.emitter.AddListener(&eventLogger{logger: c.logger})

	return c, nil
}

// Configure sets the receiver's worker limits and the buffer pool's byte
// ceiling. Worker limits only apply before Start; afterwards only the ceiling
// is changed and ErrAlreadyStarted is returned if worker limits were given.
// Zero values leave a setting unchanged.
func (c *Channel) Configure(maxOutstandingWorkers, maxIdleWorkers int, poolByteCeiling int64) error {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()

	if poolByteCeiling > 0 {
		c.buffers.SetCeiling(poolByteCeiling)
	}

	if maxOutstandingWorkers == 0 && maxIdleWorkers == 0 {
		return nil
	}
	if c.state != created {
		return ErrAlreadyStarted
	}

	opts := *c.receiverOptions
	if maxOutstandingWorkers > 0 {
		opts.MaxOutstandingWorkers = maxOutstandingWorkers
	}
	if maxIdleWorkers > 0 {
		opts.MaxIdleWorkers = maxIdleWorkers
	}
	c.receiverOptions = &opts
	return nil
}

// Start starts accepting connections, connects to the known members and
// begins probing members that stop answering.
func (c *Channel) Start() error {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()

	if c.state != created {
		return ErrAlreadyStarted
	}

	c.receiver = transport.NewReceiver(c, c.buffers, c.emitter, c.receiverOptions)
	var err error
	if c.listener != nil {
		err = c.receiver.Start(c.listener)
	} else {
		addr := c.listenAddress
		if addr == "" {
			addr = c.local.Address()
		}
		err = c.receiver.Listen(addr)
	}
	if err != nil {
		return err
	}

	c.executor = pool.NewExecutor(2, 1)
	c.sender.Connect()

	if c.probeInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		c.stopProbe = cancel
		c.probeDone = make(chan struct{})
		go c.probeLoop(ctx, c.clock.Ticker(c.probeInterval))
	}

	c.state = started
	c.emitter.EmitEvent(StartedEvent{Address: c.receiver.Addr().String()})
	return nil
}

// probeLoop periodically reconnects members that stopped answering, so they
// become ready again without waiting for the next send.
func (c *Channel) probeLoop(ctx context.Context, ticker *clock.Ticker) {
	defer close(c.probeDone)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := c.executor.Execute(ctx, func() { c.sender.Probe(ctx) })
			if err != nil {
				return
			}
		}
	}
}

// Stop closes every connection and stops background work. A stopped channel
// cannot be started again. Stop is idempotent.
func (c *Channel) Stop() {
	c.stateMutex.Lock()
	if c.state == stopped {
		c.stateMutex.Unlock()
		return
	}
	wasStarted := c.state == started
	c.state = stopped
	c.stateMutex.Unlock()

	// listeners may call back into the channel while it drains, so the
	// teardown runs without the state lock
	if !wasStarted {
		c.sender.Close()
		return
	}

	if c.stopProbe != nil {
		c.stopProbe()
		<-c.probeDone
	}
	c.executor.Stop()
	c.receiver.Stop()
	c.sender.Close()
	c.emitter.EmitEvent(StoppedEvent{})
}

// Started reports whether the channel is running.
func (c *Channel) Started() bool {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.state == started
}

// Local returns the local member.
func (c *Channel) Local() membership.Member {
	return c.local
}

// Address returns the address the channel accepts connections on. Before
// Start it is the local member's address.
func (c *Channel) Address() string {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()

	if c.receiver != nil {
		if addr := c.receiver.Addr(); addr != nil {
			return addr.String()
		}
	}
	return c.local.Address()
}

// Broadcast sends payload to every destination, or to every known member
// when destinations is empty. Failed destinations are reported in the result
// and never affect the others.
func (c *Channel) Broadcast(payload []byte, destinations []membership.Member, options int32) *transport.SendResult {
	return c.BroadcastContext(context.Background(), payload, destinations, options)
}

// BroadcastContext is Broadcast with a context that bounds waiting for busy
// connections and retries.
func (c *Channel) BroadcastContext(ctx context.Context, payload []byte, destinations []membership.Member, options int32) *transport.SendResult {
	if len(destinations) == 0 {
		destinations = c.membership.Members()
	}

	env := message.New(payload, c.local, options, c.clock)
	if !c.Started() {
		return failAll(env, destinations, ErrNotStarted)
	}
	if c.compression {
		message.Compress(env)
	}
	return c.sender.SendMessage(ctx, destinations, env)
}

func failAll(env *message.Envelope, destinations []membership.Member, err error) *transport.SendResult {
	result := &transport.SendResult{ID: env.ID(), Results: make([]transport.MemberResult, len(destinations))}
	for i, dest := range destinations {
		result.Results[i] = transport.MemberResult{Member: dest, Err: err}
	}
	return result
}

// SendTo sends payload to a single member.
func (c *Channel) SendTo(payload []byte, destination membership.Member, options int32) error {
	if destination.IsZero() {
		return ErrNoDestinations
	}
	result := c.Broadcast(payload, []membership.Member{destination}, options)
	return result.Results[0].Err
}

// MemberAdded announces a new member. Messages can be sent to it right away.
func (c *Channel) MemberAdded(m membership.Member) {
	if !c.membership.Add(m) {
		return
	}
	c.sender.Add(m)
	c.emitter.EmitEvent(membership.MemberAddedEvent{Member: m})
	c.emitChecksum()
}

// MemberRemoved announces that a member left. Its connection is closed and
// its sender state forgotten.
func (c *Channel) MemberRemoved(m membership.Member) {
	c.sender.Remove(m)
	if !c.membership.Remove(m) {
		return
	}
	c.emitter.EmitEvent(membership.MemberRemovedEvent{Member: m})
	c.emitChecksum()
}

func (c *Channel) emitChecksum() {
	c.emitter.EmitEvent(ChecksumEvent{Checksum: c.membership.Checksum(), Members: c.membership.Len()})
}

// Members returns the known remote members.
func (c *Channel) Members() []membership.Member {
	return c.membership.Members()
}

// MemberState returns the sender state of a member.
func (c *Channel) MemberState(m membership.Member) (membership.State, bool) {
	s := c.membership.States().Get(m, false)
	if s == nil {
		return membership.Ready, false
	}
	return s.State(), true
}

// Checksum fingerprints the member set, local member included.
func (c *Channel) Checksum() uint32 {
	return c.membership.Checksum()
}

// RegisterEventListener adds a listener for transport and membership
// events. Listeners are called synchronously and must not block.
func (c *Channel) RegisterEventListener(l events.EventListener) bool {
	return c.emitter.AddListener(l)
}

// DeregisterEventListener removes a listener added with
// RegisterEventListener.
func (c *Channel) DeregisterEventListener(l events.EventListener) bool {
	return c.emitter.RemoveListener(l)
}

// Stats is a snapshot of the channel's counters.
type Stats struct {
	Members     int
	Checksum    uint32
	Sender      transport.SenderStats
	Receiver    transport.ReceiverStats
	PoolBytes   int64
	PoolBuffers int
	Executor    pool.Stats
}

// Stats returns a snapshot of the channel's counters.
func (c *Channel) Stats() Stats {
	stats := Stats{
		Members:     c.membership.Len(),
		Checksum:    c.membership.Checksum(),
		Sender:      c.sender.Stats(),
		PoolBytes:   c.buffers.Size(),
		PoolBuffers: c.buffers.Count(),
	}

	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	if c.receiver != nil {
		stats.Receiver = c.receiver.Stats()
	}
	if c.executor != nil {
		stats.Executor = c.executor.Stats()
	}
	return stats
}
