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

// Package logging hands out named bark loggers whose minimum level can be set
// per name. Names are dot separated; a logger without a level of its own uses
// the level of its closest configured parent, so setting "transport" also
// covers "transport.sender".
package logging

import (
	"fmt"
	"strings"
	"sync"

	"github.com/uber-common/bark"
)

// Facility routes the messages of named loggers to one underlying logger.
type Facility struct {
	mu     sync.RWMutex
	logger bark.Logger
	levels map[string]Level
}

// NewFacility returns a facility writing to logger, or discarding everything
// when logger is nil.
func NewFacility(logger bark.Logger) *Facility {
	if logger == nil {
		logger = Discard
	}
	return &Facility{
		logger: logger,
		levels: make(map[string]Level),
	}
}

// SetLogger replaces the underlying logger.
func (f *Facility) SetLogger(logger bark.Logger) {
	if logger == nil {
		logger = Discard
	}
	f.mu.Lock()
	f.logger = logger
	f.mu.Unlock()
}

// SetLevel silences messages of the named logger that are less severe than
// level. Fatal and Panic messages cannot be silenced.
func (f *Facility) SetLevel(name string, level Level) error {
	return f.SetLevels(map[string]Level{name: level})
}

// SetLevels is SetLevel for several loggers at once. Nothing is changed when
// one of the levels is invalid.
func (f *Facility) SetLevels(levels map[string]Level) error {
	for name, level := range levels {
		if level < Fatal {
			return fmt.Errorf("cannot set level %s for %q: fatal messages are never silenced", level, name)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for name, level := range levels {
		f.levels[name] = level
	}
	return nil
}

// Level returns the level in effect for name and whether one was configured
// for it or one of its parents.
func (f *Facility) Level(name string) (Level, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.levelLocked(name)
}

func (f *Facility) levelLocked(name string) (Level, bool) {
	for {
		if level, ok := f.levels[name]; ok {
			return level, true
		}
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			return 0, false
		}
		name = name[:i]
	}
}

// Logger returns a logger bound to name.
func (f *Facility) Logger(name string) bark.Logger {
	return &namedLogger{name: name, facility: f}
}

// enabled reports whether a message of the given level from name passes, and
// returns the logger to write it to.
func (f *Facility) enabled(name string, level Level) (bark.Logger, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if floor, ok := f.levelLocked(name); ok && level > floor {
		return nil, false
	}
	return f.logger, true
}

func (f *Facility) write(name string, level Level, fields bark.Fields, msg func(bark.Logger)) {
	logger, ok := f.enabled(name, level)
	if !ok {
		return
	}
	if len(fields) > 0 {
		logger = logger.WithFields(fields)
	}
	msg(logger)
}
