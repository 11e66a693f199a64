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

// Package message defines the envelope every payload travels in and its flat
// wire encoding:
//
//	OPTIONS(int32) TIMESTAMP(int64) IDLEN(int32) ID ADDRLEN(int32) ADDR MSGLEN(int32) MSG
//
// All integers are big-endian two's complement. ADDR is the source member's
// own encoding. An encoded envelope is the payload of one frame.
package message

import (
	"bytes"
	"fmt"

	"github.com/benbjohnson/clock"
	uuid "github.com/satori/go.uuid"
	"github.com/spaolacci/murmur3"
	"github.com/uber/tribes-go/internal/wire"
	"github.com/uber/tribes-go/membership"
	"github.com/uber/tribes-go/util"
)

var (
	// ErrTruncated is returned when an encoded envelope ends early.
	ErrTruncated = wire.ErrTruncated

	// ErrNegativeLength is returned when a length field is negative.
	ErrNegativeLength = wire.ErrNegativeLength
)

// UniqueIDLen is the length of the ids generated by New.
const UniqueIDLen = 16

// An Envelope carries one opaque payload between members. Two envelopes are
// equal when their unique ids are equal, regardless of payload.
type Envelope struct {
	Options   int32
	Timestamp int64
	UniqueID  []byte
	Source    membership.Member
	Payload   []byte
}

// New wraps payload in an envelope with a fresh unique id, stamped with the
// current time of clk in milliseconds.
func New(payload []byte, source membership.Member, options int32, clk clock.Clock) *Envelope {
	if clk == nil {
		clk = clock.New()
	}
	id := uuid.NewV4()
	return &Envelope{
		Options:   options,
		Timestamp: util.UnixMS(clk.Now()),
		UniqueID:  id.Bytes(),
		Source:    source,
		Payload:   payload,
	}
}

// ID returns the unique id in its textual form.
func (e *Envelope) ID() string {
	if len(e.UniqueID) == UniqueIDLen {
		return uuid.FromBytesOrNil(e.UniqueID).String()
	}
	return fmt.Sprintf("%x", e.UniqueID)
}

// Equal reports whether e and other carry the same unique id.
func (e *Envelope) Equal(other *Envelope) bool {
	if e == nil || other == nil {
		return e == other
	}
	return bytes.Equal(e.UniqueID, other.UniqueID)
}

// Hash returns a hash of the unique id, consistent with Equal.
func (e *Envelope) Hash() uint32 {
	return murmur3.Sum32(e.UniqueID)
}

// Clone returns a deep copy of e.
func (e *Envelope) Clone() *Envelope {
	return &Envelope{
		Options:   e.Options,
		Timestamp: e.Timestamp,
		UniqueID:  append([]byte(nil), e.UniqueID...),
		Source:    e.Source,
		Payload:   append([]byte(nil), e.Payload...),
	}
}

// EncodedLen returns the length of the encoded envelope.
func (e *Envelope) EncodedLen() int {
	return 4 + 8 + 4 + len(e.UniqueID) + 4 + e.Source.EncodedLen() + 4 + len(e.Payload)
}

// Encode returns the wire form of e.
func (e *Envelope) Encode() []byte {
	return e.AppendEncode(make([]byte, 0, e.EncodedLen()))
}

// AppendEncode appends the wire form of e to dst.
func (e *Envelope) AppendEncode(dst []byte) []byte {
	dst = wire.AppendInt32(dst, e.Options)
	dst = wire.AppendInt64(dst, e.Timestamp)
	dst = wire.AppendBytes(dst, e.UniqueID)
	dst = wire.AppendInt32(dst, int32(e.Source.EncodedLen()))
	dst = e.Source.AppendEncode(dst)
	return wire.AppendBytes(dst, e.Payload)
}

// Decode parses an envelope from b. The returned envelope never aliases b.
func Decode(b []byte) (*Envelope, error) {
	r := wire.NewReader(b)
	e := &Envelope{
		Options:   r.Int32("options"),
		Timestamp: r.Int64("timestamp"),
		UniqueID:  r.Bytes("unique id"),
	}
	addr := r.Bytes("source")
	e.Payload = r.Bytes("payload")

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	source, err := membership.DecodeMember(addr)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	e.Source = source
	return e, nil
}
