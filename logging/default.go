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

package logging

import "github.com/uber-common/bark"

var std = NewFacility(nil)

// Default returns the process wide facility used by Logger.
func Default() *Facility { return std }

// SetLogger sets the underlying logger of the default facility.
func SetLogger(logger bark.Logger) { std.SetLogger(logger) }

// SetLevel sets the level of a named logger on the default facility.
func SetLevel(name string, level Level) error { return std.SetLevel(name, level) }

// SetLevels sets the levels of several named loggers on the default facility.
func SetLevels(levels map[string]Level) error { return std.SetLevels(levels) }

// Logger returns a named logger of the default facility.
func Logger(name string) bark.Logger { return std.Logger(name) }
