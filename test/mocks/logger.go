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

package mocks

import (
	"github.com/stretchr/testify/mock"
	"github.com/uber-common/bark"
)

// Logger is a mock bark.Logger. Every log method records its arguments as a
// single slice so tests can match them with mock.Anything.
type Logger struct {
	mock.Mock
}

// Debug provides a mock function with given fields: args
func (_m *Logger) Debug(args ...interface{}) { _m.Called(args) }

// Debugf provides a mock function with given fields: format, args
func (_m *Logger) Debugf(format string, args ...interface{}) { _m.Called(format, args) }

// Info provides a mock function with given fields: args
func (_m *Logger) Info(args ...interface{}) { _m.Called(args) }

// Infof provides a mock function with given fields: format, args
func (_m *Logger) Infof(format string, args ...interface{}) { _m.Called(format, args) }

// Warn provides a mock function with given fields: args
func (_m *Logger) Warn(args ...interface{}) { _m.Called(args) }

// Warnf provides a mock function with given fields: format, args
func (_m *Logger) Warnf(format string, args ...interface{}) { _m.Called(format, args) }

// Error provides a mock function with given fields: args
func (_m *Logger) Error(args ...interface{}) { _m.Called(args) }

// Errorf provides a mock function with given fields: format, args
func (_m *Logger) Errorf(format string, args ...interface{}) { _m.Called(format, args) }

// Fatal provides a mock function with given fields: args
func (_m *Logger) Fatal(args ...interface{}) { _m.Called(args) }

// Fatalf provides a mock function with given fields: format, args
func (_m *Logger) Fatalf(format string, args ...interface{}) { _m.Called(format, args) }

// Panic provides a mock function with given fields: args
func (_m *Logger) Panic(args ...interface{}) { _m.Called(args) }

// Panicf provides a mock function with given fields: format, args
func (_m *Logger) Panicf(format string, args ...interface{}) { _m.Called(format, args) }

// WithField provides a mock function with given fields: key, value
func (_m *Logger) WithField(key string, value interface{}) bark.Logger {
	ret := _m.Called(key, value)
	return ret.Get(0).(bark.Logger)
}

// WithFields provides a mock function with given fields: keyValues
func (_m *Logger) WithFields(keyValues bark.LogFields) bark.Logger {
	ret := _m.Called(keyValues)
	return ret.Get(0).(bark.Logger)
}

// WithError provides a mock function with given fields: err
func (_m *Logger) WithError(err error) bark.Logger {
	ret := _m.Called(err)
	return ret.Get(0).(bark.Logger)
}

// Fields provides a mock function with given fields:
func (_m *Logger) Fields() bark.Fields {
	ret := _m.Called()

	var r0 bark.Fields
	if rf, ok := ret.Get(0).(func() bark.Fields); ok {
		r0 = rf()
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(bark.Fields)
	}

	return r0
}
