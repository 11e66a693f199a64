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

package framing

import (
	"bytes"
	"encoding/binary"
)

// A Buffer accumulates bytes read from a stream and carves complete frames out
// of them. Its capacity only ever grows. A Buffer is not safe for concurrent
// use; readers own one buffer per connection.
type Buffer struct {
	buf    []byte
	length int

	// discard resets the buffer whenever the buffered bytes stop beginning
	// with the frame header.
	discard bool
}

// NewBuffer returns an empty buffer with the given initial capacity.
func NewBuffer(size int, discard bool) *Buffer {
	if size < 0 {
		size = 0
	}
	return &Buffer{
		buf:     make([]byte, size),
		discard: discard,
	}
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int { return b.length }

// Cap returns the capacity of the buffer.
func (b *Buffer) Cap() int { return len(b.buf) }

// Bytes returns the buffered bytes. The slice aliases the buffer and is only
// valid until the next mutating call.
func (b *Buffer) Bytes() []byte { return b.buf[:b.length] }

// Discard reports whether discard mode is enabled.
func (b *Buffer) Discard() bool { return b.discard }

// SetDiscard enables or disables discard mode.
func (b *Buffer) SetDiscard(discard bool) { b.discard = discard }

// Reset empties the buffer but keeps its capacity.
func (b *Buffer) Reset() { b.length = 0 }

// Expand grows the capacity to at least size bytes, doubling when that is
// larger. Buffered bytes are preserved.
func (b *Buffer) Expand(size int) {
	if size <= len(b.buf) {
		return
	}
	newCap := max(2*len(b.buf), size)
	buf := make([]byte, newCap)
	copy(buf, b.buf[:b.length])
	b.buf = buf
}

// Append adds data to the buffer. In discard mode it returns false and empties
// the buffer when more than a header's worth of bytes is buffered and the
// buffer does not start with the frame header.
func (b *Buffer) Append(data []byte) bool {
	need := b.length + len(data)
	b.Expand(need)
	copy(b.buf[b.length:need], data)
	b.length = need

	if b.discard && b.length > HeaderLen && !bytes.HasPrefix(b.buf[:b.length], Header) {
		b.length = 0
		return false
	}
	return true
}

// CountPackages returns how many complete frames are buffered back to back
// starting at offset zero. The buffer is not modified. With firstOnly set the
// scan stops after the first complete frame.
func (b *Buffer) CountPackages(firstOnly bool) int {
	count := 0
	start := 0
	for b.length-start >= Overhead {
		end, ok := b.frameEnd(start)
		if !ok {
			break
		}
		count++
		start = end
		if firstOnly {
			break
		}
	}
	return count
}

// DoesPackageExist reports whether at least one complete frame is buffered.
func (b *Buffer) DoesPackageExist() bool {
	return b.CountPackages(true) > 0
}

// ExtractDataPackage returns a copy of the payload of the first complete
// frame. With clear set the frame is removed and the remaining bytes are
// shifted to offset zero. Callers must check DoesPackageExist first; calling it
// without a complete frame panics.
func (b *Buffer) ExtractDataPackage(clear bool) []byte {
	end, ok := b.frameEnd(0)
	if !ok {
		panic("framing: no complete frame buffered")
	}

	payload := make([]byte, end-Overhead)
	copy(payload, b.buf[HeaderLen+LengthLen:end-FooterLen])

	if clear {
		copy(b.buf, b.buf[end:b.length])
		b.length -= end
	}
	return payload
}

// Check returns ErrCorruptFrame when the buffered bytes can never become a
// valid frame: the start does not match the header, the length field is out
// of range, or the whole frame is buffered but does not end with the footer.
// An empty or partially received frame is not an error.
func (b *Buffer) Check() error {
	n := min(b.length, HeaderLen)
	if !bytes.Equal(b.buf[:n], Header[:n]) {
		return ErrCorruptFrame
	}
	if b.length < HeaderLen+LengthLen {
		return nil
	}

	size := b.payloadLen(0)
	if size < 0 || size > MaxPayload {
		return ErrCorruptFrame
	}

	end := Overhead + size
	if end <= b.length && !bytes.Equal(b.buf[end-FooterLen:end], Footer) {
		return ErrCorruptFrame
	}
	return nil
}

// frameEnd returns the offset just past the frame starting at start, if a
// complete and well formed frame is buffered there.
func (b *Buffer) frameEnd(start int) (int, bool) {
	if b.length-start < Overhead {
		return 0, false
	}
	if !bytes.Equal(b.buf[start:start+HeaderLen], Header) {
		return 0, false
	}

	size := b.payloadLen(start)
	if size < 0 {
		return 0, false
	}

	end := start + Overhead + size
	if end > b.length {
		return 0, false
	}
	if !bytes.Equal(b.buf[end-FooterLen:end], Footer) {
		return 0, false
	}
	return end, true
}

func (b *Buffer) payloadLen(start int) int {
	return int(int32(binary.BigEndian.Uint32(b.buf[start+HeaderLen:])))
}
