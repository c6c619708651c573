// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pts

import "github.com/awslabs/ar-go-pta/analysis/memory"

// Map maps nodes to their points-to sets, and maintains the reverse map from objects to the nodes pointing to them.
type Map struct {
	pts []*Set
	rev []*Set
}

// NewMap returns an empty points-to map
func NewMap() *Map {
	return &Map{}
}

func grow(sets []*Set, id memory.NodeID) []*Set {
	for len(sets) <= id {
		sets = append(sets, nil)
	}
	if sets[id] == nil {
		sets[id] = &Set{}
	}
	return sets
}

// Get returns the points-to set of n. The set must not be modified by the caller.
func (m *Map) Get(n memory.NodeID) *Set {
	m.pts = grow(m.pts, n)
	return m.pts[n]
}

// Rev returns the set of nodes whose points-to set contains o
func (m *Map) Rev(o memory.NodeID) *Set {
	m.rev = grow(m.rev, o)
	return m.rev[o]
}

// Add adds o to the points-to set of n
func (m *Map) Add(n, o memory.NodeID) bool {
	if !m.Get(n).Add(o) {
		return false
	}
	m.Rev(o).Add(n)
	return true
}

// Remove removes o from the points-to set of n
func (m *Map) Remove(n, o memory.NodeID) bool {
	if !m.Get(n).Remove(o) {
		return false
	}
	m.Rev(o).Remove(n)
	return true
}

// Union adds the elements of s to the points-to set of n and returns true if it changed
func (m *Map) Union(n memory.NodeID, s *Set) bool {
	if s == nil || s.IsEmpty() {
		return false
	}
	delta := s.Minus(m.Get(n))
	if delta.IsEmpty() {
		return false
	}
	m.pts[n].AddAll(delta)
	for _, o := range delta.Slice() {
		m.Rev(o).Add(n)
	}
	return true
}

// UnionFrom adds the points-to set of src to the points-to set of dst
func (m *Map) UnionFrom(dst, src memory.NodeID) bool {
	if dst == src {
		return false
	}
	return m.Union(dst, m.Get(src))
}

// Nodes returns the nodes that have a non-empty points-to set, in increasing order
func (m *Map) Nodes() []memory.NodeID {
	var res []memory.NodeID
	for n, s := range m.pts {
		if s != nil && !s.IsEmpty() {
			res = append(res, n)
		}
	}
	return res
}
