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

// Package events carries notifications out of the transport. Components emit
// plain structs; listeners type switch on the ones they care about.
package events

import "sync"

// Event is any value emitted by a component.
type Event interface{}

// An EventListener handles events. HandleEvent may be called from many
// goroutines at once.
type EventListener interface {
	HandleEvent(event Event)
}

// EventEmitter is implemented by everything events can be emitted on.
type EventEmitter interface {
	EmitEvent(event Event)
}

// EventRegistrar is implemented by everything listeners can be added to.
type EventRegistrar interface {
	AddListener(EventListener) bool
	RemoveListener(EventListener) bool
}

// Emitter is both an EventEmitter and an EventRegistrar.
type Emitter interface {
	EventEmitter
	EventRegistrar
}

type noEmitter struct{}

func (noEmitter) EmitEvent(Event) {}

// NoEmitter drops every event.
var NoEmitter EventEmitter = noEmitter{}

// registrar keeps an immutable slice of listeners. Changes swap the slice so
// emitting can iterate without holding the lock, and listeners may add or
// remove listeners while handling an event.
type registrar struct {
	mu        sync.RWMutex
	listeners []EventListener
}

// AddListener adds l and reports whether it was not registered before.
func (r *registrar) AddListener(l EventListener) bool {
	if l == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.listeners {
		if existing == l {
			return false
		}
	}

	next := make([]EventListener, len(r.listeners), len(r.listeners)+1)
	copy(next, r.listeners)
	r.listeners = append(next, l)
	return true
}

// RemoveListener removes l and reports whether it was registered.
func (r *registrar) RemoveListener(l EventListener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.listeners {
		if existing != l {
			continue
		}
		next := make([]EventListener, 0, len(r.listeners)-1)
		next = append(next, r.listeners[:i]...)
		r.listeners = append(next, r.listeners[i+1:]...)
		return true
	}
	return false
}

func (r *registrar) snapshot() []EventListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listeners
}

// SyncEventEmitter calls listeners on the emitting goroutine, one after the
// other.
type SyncEventEmitter struct {
	registrar
}

// EmitEvent hands event to every listener and returns when all of them are
// done.
func (e *SyncEventEmitter) EmitEvent(event Event) {
	for _, l := range e.snapshot() {
		l.HandleEvent(event)
	}
}

// AsyncEventEmitter calls every listener on its own goroutine.
type AsyncEventEmitter struct {
	registrar
}

// EmitEvent hands event to every listener without waiting for them.
func (e *AsyncEventEmitter) EmitEvent(event Event) {
	for _, l := range e.snapshot() {
		go l.HandleEvent(event)
	}
}
