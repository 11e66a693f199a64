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

package message

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/uber/tribes-go/membership"
)

type EnvelopeTestSuite struct {
	suite.Suite
	clock  *clock.Mock
	source membership.Member
}

func (s *EnvelopeTestSuite) SetupTest() {
	s.clock = clock.NewMock()
	s.clock.Add(1500 * time.Millisecond)
	s.source = membership.NewMember("127.0.0.1", 4000, []byte{1, 2, 3})
}

func (s *EnvelopeTestSuite) TestNew() {
	e := New([]byte("hello"), s.source, OptionUseAck, s.clock)

	s.Equal(OptionUseAck, e.Options)
	s.Equal(int64(1500), e.Timestamp)
	s.Len(e.UniqueID, UniqueIDLen)
	s.Equal(s.source, e.Source)
	s.Equal([]byte("hello"), e.Payload)
	s.Len(e.ID(), 36, "expected uuid text form")
}

func (s *EnvelopeTestSuite) TestUniqueIDs() {
	a := New(nil, s.source, 0, s.clock)
	b := New(nil, s.source, 0, s.clock)
	s.False(a.Equal(b))
}

func (s *EnvelopeTestSuite) TestRoundTrip() {
	e := New([]byte("payload"), s.source, OptionByteMessage|OptionUseAck, s.clock)
	encoded := e.Encode()
	s.Len(encoded, e.EncodedLen())

	decoded, err := Decode(encoded)
	s.Require().NoError(err)
	s.Equal(e, decoded)

	encoded[len(encoded)-1] = 'X'
	s.Equal([]byte("payload"), decoded.Payload, "expected decoded envelope not to alias its input")
}

func (s *EnvelopeTestSuite) TestLayout() {
	e := &Envelope{
		Options:   2,
		Timestamp: 1,
		UniqueID:  []byte{0xAA},
		Source:    membership.NewMember("h", 1, nil),
		Payload:   []byte{0xBB},
	}

	addr := e.Source.Encode()
	expected := []byte{
		0, 0, 0, 2,
		0, 0, 0, 0, 0, 0, 0, 1,
		0, 0, 0, 1, 0xAA,
		0, 0, 0, byte(len(addr)),
	}
	expected = append(expected, addr...)
	expected = append(expected, 0, 0, 0, 1, 0xBB)

	s.Equal(expected, e.Encode())
}

func (s *EnvelopeTestSuite) TestIdentityIgnoresPayload() {
	e := New([]byte("one"), s.source, 0, s.clock)
	other := e.Clone()
	other.Payload = []byte("two")
	other.Options = OptionSyncAck

	s.True(e.Equal(other))
	s.Equal(e.Hash(), other.Hash())
}

func (s *EnvelopeTestSuite) TestCloneIsDeep() {
	e := New([]byte("one"), s.source, 0, s.clock)
	c := e.Clone()
	c.Payload[0] = 'X'
	c.UniqueID[0]++

	s.Equal([]byte("one"), e.Payload)
	s.False(e.Equal(c))
}

func (s *EnvelopeTestSuite) TestDecodeTruncated() {
	encoded := New([]byte("payload"), s.source, 0, s.clock).Encode()

	for _, n := range []int{0, 3, 11, 20, len(encoded) - 1} {
		_, err := Decode(encoded[:n])
		s.ErrorIs(err, ErrTruncated, "expected truncation at %d bytes to fail", n)
	}
}

func (s *EnvelopeTestSuite) TestDecodeNegativeLength() {
	b := []byte{
		0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0xFF, 0xFF, 0xFF, 0xFF,
	}
	_, err := Decode(b)
	s.ErrorIs(err, ErrNegativeLength)
}

func (s *EnvelopeTestSuite) TestDecodeBadSource() {
	e := &Envelope{UniqueID: []byte{1}}
	b := e.Encode()
	_, err := Decode(b)
	s.ErrorIs(err, membership.ErrInvalidMember, "expected the zero member encoding to be rejected")
}

func TestEnvelopeTestSuite(t *testing.T) {
	suite.Run(t, new(EnvelopeTestSuite))
}

func TestAckModeOf(t *testing.T) {
	assert.Equal(t, NoAck, AckModeOf(0))
	assert.Equal(t, NoAck, AckModeOf(OptionSyncAck), "expected sync without use-ack to mean no ack")
	assert.Equal(t, AsyncAck, AckModeOf(OptionUseAck))
	assert.Equal(t, SyncAck, AckModeOf(OptionUseAck|OptionSyncAck))
	assert.Equal(t, "sync", SyncAck.String())
}

func TestCompressRoundTrip(t *testing.T) {
	payload := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	e := New(append([]byte(nil), payload...), membership.NewMember("h", 1, nil), OptionUseAck, nil)

	Compress(e)
	assert.True(t, e.Compressed())
	assert.True(t, len(e.Payload) < len(payload))

	decoded, err := Decode(e.Encode())
	require.NoError(t, err)
	require.NoError(t, Decompress(decoded))
	assert.Equal(t, payload, decoded.Payload)
	assert.Equal(t, OptionUseAck, decoded.Options)
}

func TestDecompressCorrupt(t *testing.T) {
	e := &Envelope{Options: OptionCompressed, UniqueID: []byte{1}, Payload: []byte{0xFF, 0xFF}}
	assert.Error(t, Decompress(e))
}
