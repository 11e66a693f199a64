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

package membership

import (
	"sort"
	"strings"

	"github.com/dgryski/go-farm"
	"github.com/puzpuzpuz/xsync/v3"
)

// Membership is the set of remote members a channel sends to, next to the
// local member. It owns the StateRegistry; senders and receivers get it by
// reference.
type Membership struct {
	local   Member
	members *xsync.MapOf[Member, struct{}]
	states  *StateRegistry
}

// NewMembership returns an empty membership for the local member.
func NewMembership(local Member, states *StateRegistry) *Membership {
	if states == nil {
		states = NewStateRegistry(1, nil)
	}
	return &Membership{
		local:   local,
		members: xsync.NewMapOf[Member, struct{}](),
		states:  states,
	}
}

// Local returns the local member.
func (m *Membership) Local() Member { return m.local }

// States returns the sender state registry.
func (m *Membership) States() *StateRegistry { return m.states }

// Add adds member to the set and returns whether it was new. The local member
// is never added.
func (m *Membership) Add(member Member) bool {
	if member == m.local || member.IsZero() {
		return false
	}
	_, loaded := m.members.LoadOrStore(member, struct{}{})
	if !loaded {
		m.states.Get(member, true)
	}
	return !loaded
}

// Remove removes member from the set together with its sender state and
// returns whether it was present.
func (m *Membership) Remove(member Member) bool {
	_, ok := m.members.LoadAndDelete(member)
	m.states.Remove(member)
	return ok
}

// Contains reports whether member is in the set.
func (m *Membership) Contains(member Member) bool {
	_, ok := m.members.Load(member)
	return ok
}

// Len returns the number of remote members.
func (m *Membership) Len() int { return m.members.Size() }

// Members returns the remote members in Compare order.
func (m *Membership) Members() []Member {
	members := make([]Member, 0, m.members.Size())
	m.members.Range(func(member Member, _ struct{}) bool {
		members = append(members, member)
		return true
	})
	sort.Slice(members, func(i, j int) bool {
		return members[i].Compare(members[j]) < 0
	})
	return members
}

// Checksum fingerprints the current set including the local member. Two
// channels that see the same members compute the same checksum.
func (m *Membership) Checksum() uint32 {
	members := append(m.Members(), m.local)
	sort.Slice(members, func(i, j int) bool {
		return members[i].Compare(members[j]) < 0
	})

	keys := make([]string, len(members))
	for i, member := range members {
		keys[i] = member.Key()
	}
	return farm.Fingerprint32([]byte(strings.Join(keys, ";")))
}
