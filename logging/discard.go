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

type discard struct{}

func (discard) Debug(args ...interface{})                   {}
func (discard) Debugf(format string, args ...interface{})   {}
func (discard) Info(args ...interface{})                    {}
func (discard) Infof(format string, args ...interface{})    {}
func (discard) Warn(args ...interface{})                    {}
func (discard) Warnf(format string, args ...interface{})    {}
func (discard) Error(args ...interface{})                   {}
func (discard) Errorf(format string, args ...interface{})   {}
func (discard) Fatal(args ...interface{})                   {}
func (discard) Fatalf(format string, args ...interface{})   {}
func (discard) Panic(args ...interface{})                   {}
func (discard) Panicf(format string, args ...interface{})   {}
func (d discard) WithField(string, interface{}) bark.Logger { return d }
func (d discard) WithFields(bark.LogFields) bark.Logger     { return d }
func (d discard) WithError(error) bark.Logger               { return d }
func (discard) Fields() bark.Fields                         { return nil }

// Discard is a bark.Logger that drops every message.
var Discard bark.Logger = discard{}
