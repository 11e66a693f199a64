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

// Package membership holds the identity of cluster members, the set of
// members a channel currently talks to, and the per-member sender state used
// to throttle sends to members that stopped answering.
package membership

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/dgryski/go-farm"
	"github.com/uber/tribes-go/internal/wire"
	"github.com/uber/tribes-go/util"
)

// ErrInvalidMember is returned when a member encoding cannot be decoded.
var ErrInvalidMember = errors.New("invalid member encoding")

// A Member is the identity of a cluster participant. Members are immutable
// and comparable with ==; two members are equal only when host, port and
// unique id all match, so several logical members may share one address.
type Member struct {
	host     string
	port     int
	uniqueID string
}

// NewMember returns a member for the given address and unique id. The id is
// copied.
func NewMember(host string, port int, uniqueID []byte) Member {
	return Member{
		host:     host,
		port:     port,
		uniqueID: string(uniqueID),
	}
}

// ParseMember builds a member from a "host:port" string and a hex encoded
// unique id.
func ParseMember(hostport, hexID string) (Member, error) {
	host, port, err := util.SplitHostPort(hostport)
	if err != nil {
		return Member{}, err
	}
	id, err := hex.DecodeString(hexID)
	if err != nil {
		return Member{}, fmt.Errorf("invalid unique id %q: %v", hexID, err)
	}
	return NewMember(host, port, id), nil
}

// Host returns the host the member listens on.
func (m Member) Host() string { return m.host }

// Port returns the port the member listens on.
func (m Member) Port() int { return m.port }

// UniqueID returns a copy of the member's unique id.
func (m Member) UniqueID() []byte { return []byte(m.uniqueID) }

// Address returns the "host:port" the member can be dialed at.
func (m Member) Address() string {
	return net.JoinHostPort(m.host, strconv.Itoa(m.port))
}

// IsZero reports whether m is the zero member.
func (m Member) IsZero() bool {
	return m == Member{}
}

// Key returns a canonical string form of the member, usable as a map key or in
// logs.
func (m Member) Key() string {
	return m.Address() + "/" + hex.EncodeToString([]byte(m.uniqueID))
}

// String implements fmt.Stringer.
func (m Member) String() string { return m.Key() }

// Equal reports whether m and other identify the same member.
func (m Member) Equal(other Member) bool { return m == other }

// Compare orders members by host, port and unique id. It returns -1, 0 or +1.
func (m Member) Compare(other Member) int {
	if c := strings.Compare(m.host, other.host); c != 0 {
		return c
	}
	if m.port != other.port {
		if m.port < other.port {
			return -1
		}
		return 1
	}
	return bytes.Compare([]byte(m.uniqueID), []byte(other.uniqueID))
}

// Hash returns a fingerprint of the member's key.
func (m Member) Hash() uint32 {
	return farm.Fingerprint32([]byte(m.Key()))
}

// Encode returns the member's self-describing byte form:
//
//	HOSTLEN(int32) HOST PORT(int32) IDLEN(int32) ID
func (m Member) Encode() []byte {
	return m.AppendEncode(make([]byte, 0, m.EncodedLen()))
}

// EncodedLen returns the length of the encoded member.
func (m Member) EncodedLen() int {
	return 4 + len(m.host) + 4 + 4 + len(m.uniqueID)
}

// AppendEncode appends the encoded member to dst.
func (m Member) AppendEncode(dst []byte) []byte {
	dst = wire.AppendBytes(dst, []byte(m.host))
	dst = wire.AppendInt32(dst, int32(m.port))
	return wire.AppendBytes(dst, []byte(m.uniqueID))
}

// DecodeMember decodes a member produced by Encode. The whole input must be
// consumed.
func DecodeMember(b []byte) (Member, error) {
	r := wire.NewReader(b)
	host := r.Bytes("host")
	port := r.Int32("port")
	id := r.Bytes("unique id")

	if err := r.Err(); err != nil {
		return Member{}, fmt.Errorf("%w: %w", ErrInvalidMember, err)
	}
	if len(host) == 0 {
		return Member{}, fmt.Errorf("%w: empty host", ErrInvalidMember)
	}
	if port < 0 || port > 65535 {
		return Member{}, fmt.Errorf("%w: port %d out of range", ErrInvalidMember, port)
	}
	if r.Remaining() != 0 {
		return Member{}, fmt.Errorf("%w: %d trailing bytes", ErrInvalidMember, r.Remaining())
	}
	return NewMember(string(host), int(port), id), nil
}
