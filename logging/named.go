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

type namedLogger struct {
	name     string
	facility *Facility
	fields   bark.Fields
}

func (l *namedLogger) log(level Level, msg func(bark.Logger)) {
	l.facility.write(l.name, level, l.fields, msg)
}

func (l *namedLogger) Debug(args ...interface{}) {
	l.log(Debug, func(lg bark.Logger) { lg.Debug(args...) })
}

func (l *namedLogger) Debugf(format string, args ...interface{}) {
	l.log(Debug, func(lg bark.Logger) { lg.Debugf(format, args...) })
}

func (l *namedLogger) Info(args ...interface{}) {
	l.log(Info, func(lg bark.Logger) { lg.Info(args...) })
}

func (l *namedLogger) Infof(format string, args ...interface{}) {
	l.log(Info, func(lg bark.Logger) { lg.Infof(format, args...) })
}

func (l *namedLogger) Warn(args ...interface{}) {
	l.log(Warn, func(lg bark.Logger) { lg.Warn(args...) })
}

func (l *namedLogger) Warnf(format string, args ...interface{}) {
	l.log(Warn, func(lg bark.Logger) { lg.Warnf(format, args...) })
}

func (l *namedLogger) Error(args ...interface{}) {
	l.log(Error, func(lg bark.Logger) { lg.Error(args...) })
}

func (l *namedLogger) Errorf(format string, args ...interface{}) {
	l.log(Error, func(lg bark.Logger) { lg.Errorf(format, args...) })
}

func (l *namedLogger) Fatal(args ...interface{}) {
	l.log(Fatal, func(lg bark.Logger) { lg.Fatal(args...) })
}

func (l *namedLogger) Fatalf(format string, args ...interface{}) {
	l.log(Fatal, func(lg bark.Logger) { lg.Fatalf(format, args...) })
}

func (l *namedLogger) Panic(args ...interface{}) {
	l.log(Panic, func(lg bark.Logger) { lg.Panic(args...) })
}

func (l *namedLogger) Panicf(format string, args ...interface{}) {
	l.log(Panic, func(lg bark.Logger) { lg.Panicf(format, args...) })
}

// with returns a copy of l whose fields are l's overlaid with extra.
func (l *namedLogger) with(extra map[string]interface{}) *namedLogger {
	fields := make(bark.Fields, len(l.fields)+len(extra))
	for k, v := range l.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}
	return &namedLogger{name: l.name, facility: l.facility, fields: fields}
}

func (l *namedLogger) WithField(key string, value interface{}) bark.Logger {
	return l.with(map[string]interface{}{key: value})
}

func (l *namedLogger) WithFields(fields bark.LogFields) bark.Logger {
	return l.with(fields.Fields())
}

// WithError records err under the "error" field.
func (l *namedLogger) WithError(err error) bark.Logger {
	if err == nil {
		return l
	}
	return l.with(map[string]interface{}{"error": err.Error()})
}

func (l *namedLogger) Fields() bark.Fields {
	return l.fields
}
