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
	"io"
	"net"
	"sync"
	"time"

	"github.com/uber-common/bark"
	"github.com/uber/tribes-go/events"
	"github.com/uber/tribes-go/framing"
	"github.com/uber/tribes-go/logging"
	"github.com/uber/tribes-go/message"
	"github.com/uber/tribes-go/pool"
	"golang.org/x/net/netutil"
)

var (
	ackFrame     = framing.AckFrame()
	failAckFrame = framing.FailAckFrame()
)

// A MessageHandler is handed every message the receiver decodes. Returning
// an error, or panicking, answers a synchronous ack with FAIL_ACK.
type MessageHandler interface {
	MessageDataReceived(env *message.Envelope) error
}

// MessageHandlerFunc adapts a function to a MessageHandler.
type MessageHandlerFunc func(env *message.Envelope) error

// MessageDataReceived calls f(env).
func (f MessageHandlerFunc) MessageDataReceived(env *message.Envelope) error { return f(env) }

// Receiver accepts inbound connections and turns the frames they carry into
// messages. Every connection is serviced by one worker from a bounded pool for
// as long as it stays open.
type Receiver struct {
	handler MessageHandler
	buffers *framing.Pool
	emitter events.EventEmitter
	opts    *ReceiverOptions
	logger  bark.Logger
	workers *pool.Pool
	metrics *receiverMetrics

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	stopped  bool
	wg       sync.WaitGroup
}

// NewReceiver returns a receiver that hands messages to handler.
func NewReceiver(handler MessageHandler, buffers *framing.Pool, emitter events.EventEmitter, opts *ReceiverOptions) *Receiver {
	if emitter == nil {
		emitter = events.NoEmitter
	}
	r := &Receiver{
		handler: handler,
		buffers: buffers,
		emitter: emitter,
		opts:    mergeReceiverOptions(opts),
		logger:  logging.Logger("receiver"),
		metrics: newReceiverMetrics(),
		conns:   make(map[net.Conn]struct{}),
	}
	r.workers = pool.New(r.opts.MaxOutstandingWorkers, r.opts.MaxIdleWorkers, r.newWorker)
	return r
}

// Listen starts accepting connections on addr.
func (r *Receiver) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return r.Start(l)
}

// Start starts accepting connections on l in the background. The number of
// open connections is capped at MaxOutstandingWorkers.
func (r *Receiver) Start(l net.Listener) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return pool.ErrStopped
	}
	if r.listener != nil {
		return errors.New("receiver already started")
	}

	r.listener = netutil.LimitListener(l, r.opts.MaxOutstandingWorkers)
	r.logger = r.logger.WithField("local", l.Addr().String())
	r.wg.Add(1)
	go r.accept(r.listener)
	return nil
}

// Addr returns the address the receiver listens on, or nil before Start.
func (r *Receiver) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Stop closes the listener and all open connections and waits for their
// workers to finish.
func (r *Receiver) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	if r.listener != nil {
		r.listener.Close()
	}
	for conn := range r.conns {
		conn.Close()
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.workers.Stop()
	r.metrics.received.Stop()
}

func (r *Receiver) isStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

func (r *Receiver) accept(l net.Listener) {
	defer r.wg.Done()

	for {
		conn, err := l.Accept()
		if err != nil {
			if r.isStopped() || errors.Is(err, net.ErrClosed) {
				return
			}
			r.logger.WithField("error", err.Error()).Warn("accept failed")
			time.Sleep(10 * time.Millisecond)
			continue
		}

		w, err := r.workers.Acquire(context.Background())
		if err != nil {
			conn.Close()
			return
		}

		if !r.track(conn) {
			conn.Close()
			r.workers.Release(w)
			return
		}

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer r.workers.Release(w)
			defer r.untrack(conn)
			w.(*readWorker).serve(conn)
		}()
	}
}

func (r *Receiver) track(conn net.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	r.conns[conn] = struct{}{}
	return true
}

func (r *Receiver) untrack(conn net.Conn) {
	r.mu.Lock()
	delete(r.conns, conn)
	r.mu.Unlock()
	conn.Close()
}

// Stats returns a snapshot of the receiver's counters.
func (r *Receiver) Stats() ReceiverStats {
	workers := r.workers.Stats()
	return ReceiverStats{
		Received:      r.metrics.received.Count(),
		ReceivedRate1: r.metrics.received.Rate1(),
		Bytes:         r.metrics.bytes.Count(),
		Discarded:     r.metrics.discarded.Count(),
		HandlerErrors: r.metrics.handlerErrors.Count(),
		IdleWorkers:   workers.Idle,
		ActiveWorkers: workers.Active,
	}
}

func (r *Receiver) newWorker() (pool.Worker, error) {
	return &readWorker{
		r:     r,
		buf:   r.buffers.Get(r.opts.ReadBufferSize, true),
		chunk: make([]byte, r.opts.ReadBufferSize),
	}, nil
}

// A readWorker owns a framed buffer and services one connection at a time.
type readWorker struct {
	r     *Receiver
	buf   *framing.Buffer
	chunk []byte
}

func (w *readWorker) Close() {
	if w.buf != nil {
		w.r.buffers.Put(w.buf)
		w.buf = nil
	}
}

func (w *readWorker) serve(conn net.Conn) {
	w.buf.Reset()
	remote := conn.RemoteAddr().String()
	logger := w.r.logger.WithField("remote", remote)
	logger.Debug("connection accepted")

	for {
		if w.r.opts.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(w.r.opts.ReadTimeout))
		}

		n, err := conn.Read(w.chunk)
		if n > 0 {
			w.r.metrics.bytes.Inc(int64(n))
			if !w.buf.Append(w.chunk[:n]) {
				w.r.discard(remote, n, framing.ErrCorruptFrame)
			} else if cerr := w.buf.Check(); cerr != nil {
				w.r.discard(remote, w.buf.Len(), cerr)
				w.buf.Reset()
			}

			for w.buf.DoesPackageExist() {
				if werr := w.r.deliver(conn, remote, w.buf.ExtractDataPackage(true)); werr != nil {
					logger.WithField("error", werr.Error()).Warn("unable to answer")
					return
				}
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !w.r.isStopped() {
				logger.WithField("error", err.Error()).Debug("connection closed")
			}
			return
		}
	}
}

func (r *Receiver) discard(remote string, n int, err error) {
	r.metrics.discarded.Inc(1)
	r.emitter.EmitEvent(FrameDiscardedEvent{Remote: remote, Bytes: n, Err: err})
	r.logger.WithFields(bark.Fields{
		"remote": remote,
		"bytes":  n,
		"error":  err.Error(),
	}).Warn("discarded corrupt data")
}

// deliver decodes a frame payload and dispatches it, answering according to
// the message's ack mode. Only errors writing the answer are returned.
func (r *Receiver) deliver(conn net.Conn, remote string, payload []byte) error {
	env, err := message.Decode(payload)
	if err != nil {
		r.discard(remote, len(payload), err)
		return nil
	}

	mode := env.AckMode()
	r.metrics.received.Mark(1)
	r.emitter.EmitEvent(MessageReceivedEvent{
		Source:  env.Source,
		ID:      env.ID(),
		Bytes:   len(payload),
		AckMode: mode,
	})

	if mode == message.AsyncAck {
		if err := r.reply(conn, remote, false); err != nil {
			return err
		}
	}

	herr := message.Decompress(env)
	if herr == nil {
		herr = r.dispatch(env)
	}
	if herr != nil {
		r.metrics.handlerErrors.Inc(1)
		r.emitter.EmitEvent(HandlerFailedEvent{Source: env.Source, ID: env.ID(), Err: herr})
		r.logger.WithFields(bark.Fields{
			"source":  env.Source.String(),
			"message": env.ID(),
			"error":   herr.Error(),
		}).Warn("message handler failed")
	}

	if mode == message.SyncAck {
		return r.reply(conn, remote, herr != nil)
	}
	return nil
}

func (r *Receiver) dispatch(env *message.Envelope) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()
	return r.handler.MessageDataReceived(env)
}

func (r *Receiver) reply(conn net.Conn, remote string, failed bool) error {
	frame := ackFrame
	if failed {
		frame = failAckFrame
	}
	if _, err := conn.Write(frame); err != nil {
		return err
	}
	r.emitter.EmitEvent(AckSentEvent{Remote: remote, Failed: failed})
	return nil
}
