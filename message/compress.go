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
	"fmt"

	"github.com/golang/snappy"
)

// Compress snappy-encodes the payload of e in place and sets
// OptionCompressed. Already compressed envelopes are left alone.
func Compress(e *Envelope) {
	if e.Compressed() {
		return
	}
	e.Payload = snappy.Encode(nil, e.Payload)
	e.Options |= OptionCompressed
}

// Decompress reverses Compress. Envelopes without OptionCompressed are left
// alone.
func Decompress(e *Envelope) error {
	if !e.Compressed() {
		return nil
	}
	payload, err := snappy.Decode(nil, e.Payload)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", e.ID(), err)
	}
	e.Payload = payload
	e.Options &^= OptionCompressed
	return nil
}
