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

// Package pts implements the points-to sets of the pointer analysis: sparse sets of object node IDs, the
// points-to map of a graph with its reverse map, and the propagation disciplines that decide which elements of a set
// are sent along an edge.
package pts

import (
	"strconv"
	"strings"

	"github.com/awslabs/ar-go-pta/analysis/memory"
	"golang.org/x/tools/container/intsets"
)

// Set is a sparse set of node IDs. A Set must not be copied by value; use Clone.
type Set struct {
	intsets.Sparse
}

// NewSet returns a set containing ids
func NewSet(ids ...memory.NodeID) *Set {
	s := &Set{}
	for _, id := range ids {
		s.Insert(id)
	}
	return s
}

// Add adds id to the set and returns true if it was not already present
func (s *Set) Add(id memory.NodeID) bool {
	return s.Insert(id)
}

// AddAll adds all the elements of x to the set and returns true if the set changed
func (s *Set) AddAll(x *Set) bool {
	if x == nil {
		return false
	}
	return s.UnionWith(&x.Sparse)
}

// Intersects returns true if the sets have an element in common
func (s *Set) Intersects(x *Set) bool {
	return s.Sparse.Intersects(&x.Sparse)
}

// Equals returns true if the sets have the same elements
func (s *Set) Equals(x *Set) bool {
	return s.Sparse.Equals(&x.Sparse)
}

// Clone returns a copy of the set
func (s *Set) Clone() *Set {
	c := &Set{}
	c.Copy(&s.Sparse)
	return c
}

// Minus returns a new set containing the elements of s that are not in x
func (s *Set) Minus(x *Set) *Set {
	d := &Set{}
	if x == nil {
		d.Copy(&s.Sparse)
		return d
	}
	d.Difference(&s.Sparse, &x.Sparse)
	return d
}

// Slice returns the elements of the set in increasing order
func (s *Set) Slice() []memory.NodeID {
	return s.AppendTo(nil)
}

// String returns the set in the format of the points-to cache: "{ 1 2 3 }"
func (s *Set) String() string {
	var b strings.Builder
	b.WriteString("{ ")
	for _, id := range s.Slice() {
		b.WriteString(strconv.Itoa(id))
		b.WriteByte(' ')
	}
	b.WriteString("}")
	return b.String()
}
