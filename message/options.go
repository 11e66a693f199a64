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

// Option bits carried in Envelope.Options.
const (
	// OptionByteMessage marks the payload as raw bytes.
	OptionByteMessage int32 = 0x01
	// OptionUseAck asks the receiver to acknowledge the message.
	OptionUseAck int32 = 0x02
	// OptionSyncAck, together with OptionUseAck, delays the ack until the
	// message has been handed to the application.
	OptionSyncAck int32 = 0x04
	// OptionCompressed marks the payload as snappy encoded.
	OptionCompressed int32 = 0x100
)

// AckMode is the acknowledgement behaviour a receiver applies to a message.
type AckMode int

const (
	// NoAck sends no acknowledgement.
	NoAck AckMode = iota
	// AsyncAck acknowledges on receipt, before dispatch.
	AsyncAck
	// SyncAck acknowledges after dispatch and reports handler failures.
	SyncAck
)

func (m AckMode) String() string {
	switch m {
	case NoAck:
		return "none"
	case AsyncAck:
		return "async"
	case SyncAck:
		return "sync"
	}
	return "unknown"
}

// AckModeOf returns the ack mode encoded in options. SyncAck without UseAck
// means no ack at all.
func AckModeOf(options int32) AckMode {
	if options&OptionUseAck == 0 {
		return NoAck
	}
	if options&OptionSyncAck != 0 {
		return SyncAck
	}
	return AsyncAck
}

// AckMode returns the ack mode of the envelope.
func (e *Envelope) AckMode() AckMode { return AckModeOf(e.Options) }

// WantsAck reports whether the sender of e waits for an ack.
func (e *Envelope) WantsAck() bool { return e.AckMode() != NoAck }

// Compressed reports whether the payload is snappy encoded.
func (e *Envelope) Compressed() bool { return e.Options&OptionCompressed != 0 }
