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

// Package framing implements the length-delimited wire framing used on every
// tribes connection, together with the growable buffer that reassembles frames
// from a byte stream and a bounded pool to recycle those buffers.
//
// A frame on the wire looks like:
//
//	HEADER(7 bytes "FLT2002") LENGTH(int32, big-endian) PAYLOAD(LENGTH bytes) FOOTER(7 bytes "TLF2003")
package framing

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	// HeaderLen is the length of the frame start sentinel.
	HeaderLen = 7

	// FooterLen is the length of the frame end sentinel.
	FooterLen = 7

	// LengthLen is the length of the payload length field.
	LengthLen = 4

	// Overhead is the number of bytes a frame adds around its payload.
	Overhead = HeaderLen + LengthLen + FooterLen

	// MaxPayload is the largest payload a frame may announce. Anything larger
	// is treated as a corrupt stream.
	MaxPayload = 1<<31 - 1 - Overhead
)

var (
	// Header marks the start of every frame.
	Header = []byte("FLT2002")

	// Footer marks the end of every frame.
	Footer = []byte("TLF2003")

	// Ack is the control payload sent back when a message was received or
	// processed successfully.
	Ack = []byte{6, 2, 3}

	// FailAck is the control payload sent back when processing a message that
	// asked for a synchronous acknowledgement failed.
	FailAck = []byte{11, 0, 5}
)

// ErrCorruptFrame is returned when buffered bytes can never form a valid frame.
var ErrCorruptFrame = errors.New("corrupt frame")

// FramedLen returns the on-the-wire size of a payload of n bytes.
func FramedLen(n int) int {
	return n + Overhead
}

// Frame wraps payload in a header, length and footer.
func Frame(payload []byte) []byte {
	return AppendFrame(make([]byte, 0, FramedLen(len(payload))), payload)
}

// AppendFrame appends the framed form of payload to dst and returns the
// extended slice.
func AppendFrame(dst, payload []byte) []byte {
	dst = append(dst, Header...)
	dst = binary.BigEndian.AppendUint32(dst, uint32(int32(len(payload))))
	dst = append(dst, payload...)
	return append(dst, Footer...)
}

// AckFrame returns a framed Ack control payload.
func AckFrame() []byte { return Frame(Ack) }

// FailAckFrame returns a framed FailAck control payload.
func FailAckFrame() []byte { return Frame(FailAck) }

// IsAck reports whether payload is the Ack control payload.
func IsAck(payload []byte) bool { return bytes.Equal(payload, Ack) }

// IsFailAck reports whether payload is the FailAck control payload.
func IsFailAck(payload []byte) bool { return bytes.Equal(payload, FailAck) }
