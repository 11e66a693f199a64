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

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/uber-common/bark"
	"github.com/uber/tribes-go/test/mocks"
)

type FacilityTestSuite struct {
	suite.Suite
	logger   *mocks.Logger
	facility *Facility
}

func (s *FacilityTestSuite) SetupTest() {
	s.logger = &mocks.Logger{}
	s.facility = NewFacility(s.logger)
	for _, meth := range []string{"Debug", "Info", "Warn", "Error", "Fatal", "Panic"} {
		s.logger.On(meth, mock.Anything)
		s.logger.On(meth+"f", mock.Anything, mock.Anything)
	}
	s.logger.On("WithFields", mock.Anything).Return(s.logger)
}

func (s *FacilityTestSuite) TestEveryLevelIsForwarded() {
	logger := s.facility.Logger("sender")
	cases := []struct {
		name string
		log  func(args ...interface{})
		logf func(format string, args ...interface{})
	}{
		{"Debug", logger.Debug, logger.Debugf},
		{"Info", logger.Info, logger.Infof},
		{"Warn", logger.Warn, logger.Warnf},
		{"Error", logger.Error, logger.Errorf},
		{"Fatal", logger.Fatal, logger.Fatalf},
		{"Panic", logger.Panic, logger.Panicf},
	}

	for _, c := range cases {
		c.log("msg", 1)
		s.logger.AssertCalled(s.T(), c.name, []interface{}{"msg", 1})
		c.logf("n=%d", 2)
		s.logger.AssertCalled(s.T(), c.name+"f", "n=%d", []interface{}{2})
	}
	s.logger.AssertNotCalled(s.T(), "WithFields", mock.Anything)
}

func (s *FacilityTestSuite) TestFieldsAreApplied() {
	logger := s.facility.Logger("sender").WithField("member", "a")
	logger = logger.WithFields(bark.Fields{"attempt": 2})
	logger.Info("msg")

	s.logger.AssertCalled(s.T(), "WithFields", bark.Fields{"member": "a", "attempt": 2})
	s.Equal(bark.Fields{"member": "a", "attempt": 2}, logger.Fields())
}

func (s *FacilityTestSuite) TestFieldsAreCopied() {
	parent := s.facility.Logger("sender").WithField("member", "a")
	parent.WithField("member", "b")
	s.Equal(bark.Fields{"member": "a"}, parent.Fields())
}

func (s *FacilityTestSuite) TestWithError() {
	logger := s.facility.Logger("sender").(*namedLogger)
	s.Equal(bark.Fields{"error": "boom"}, logger.WithError(errors.New("boom")).Fields())
	s.True(logger.WithError(nil) == logger)
}

func (s *FacilityTestSuite) TestLevelSilences() {
	s.Require().NoError(s.facility.SetLevel("sender", Warn))
	logger := s.facility.Logger("sender")

	logger.Info("quiet")
	logger.Debugf("quiet %d", 1)
	logger.Warn("loud")

	s.logger.AssertNotCalled(s.T(), "Info", mock.Anything)
	s.logger.AssertNotCalled(s.T(), "Debugf", mock.Anything, mock.Anything)
	s.logger.AssertCalled(s.T(), "Warn", []interface{}{"loud"})
}

func (s *FacilityTestSuite) TestLevelInheritedFromParent() {
	s.Require().NoError(s.facility.SetLevels(map[string]Level{
		"transport":          Error,
		"transport.receiver": Debug,
	}))

	level, ok := s.facility.Level("transport.sender")
	s.True(ok)
	s.Equal(Error, level)

	level, ok = s.facility.Level("transport.receiver")
	s.True(ok)
	s.Equal(Debug, level)

	_, ok = s.facility.Level("channel")
	s.False(ok)

	s.facility.Logger("transport.sender").Warn("quiet")
	s.logger.AssertNotCalled(s.T(), "Warn", mock.Anything)
}

func (s *FacilityTestSuite) TestFatalCannotBeSilenced() {
	s.Error(s.facility.SetLevel("sender", Panic))
	s.Error(s.facility.SetLevels(map[string]Level{"a": Info, "b": Panic}))

	_, ok := s.facility.Level("a")
	s.False(ok, "expected an invalid batch to change nothing")
}

func (s *FacilityTestSuite) TestSetLogger() {
	other := &mocks.Logger{}
	other.On("Info", mock.Anything)
	s.facility.SetLogger(other)

	s.facility.Logger("sender").Info("msg")
	other.AssertCalled(s.T(), "Info", []interface{}{"msg"})
	s.logger.AssertNotCalled(s.T(), "Info", mock.Anything)
}

func TestFacilityTestSuite(t *testing.T) {
	suite.Run(t, new(FacilityTestSuite))
}

func TestNilLoggerDiscards(t *testing.T) {
	f := NewFacility(nil)
	f.Logger("x").WithError(errors.New("e")).Error("dropped")
	f.SetLogger(nil)
	f.Logger("x").Info("dropped")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"panic":   Panic,
		"Fatal":   Fatal,
		"error":   Error,
		"warning": Warn,
		" info ":  Info,
		"debug":   Debug,
		"9":       Level(9),
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Parse("loud")
	assert.Error(t, err)
	_, err = Parse("256")
	assert.Error(t, err)

	assert.Equal(t, "warn", Warn.String())
	assert.Equal(t, "9", Level(9).String())

	var l Level
	require.NoError(t, l.UnmarshalText([]byte("info")))
	assert.Equal(t, Info, l)
}

func TestNewLogrus(t *testing.T) {
	var out bytes.Buffer
	logger, err := NewLogrus(&out, "info", true)
	require.NoError(t, err)

	logger.WithField("member", "a").Debug("hidden")
	logger.WithField("member", "a").Info("shown")
	assert.False(t, strings.Contains(out.String(), "hidden"))
	assert.True(t, strings.Contains(out.String(), `"member":"a"`))

	_, err = NewLogrus(&out, "loud", false)
	assert.Error(t, err)
}
