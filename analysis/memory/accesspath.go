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

package memory

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// NumStride is an (element count, stride) pair of an access path
type NumStride struct {
	Num    int
	Stride int
}

// AccessPath is a field offset plus zero or more (element count, stride) pairs. The offset is a flattened field
// index. An access path without pairs designates exactly one field.
type AccessPath struct {
	offset int
	pairs  []NumStride
}

// NewAccessPath returns an access path with the given offset and pairs
func NewAccessPath(offset int, pairs ...NumStride) AccessPath {
	return AccessPath{offset: offset, pairs: pairs}
}

// Offset returns the constant part of the access path
func (ap AccessPath) Offset() int {
	return ap.offset
}

// Pairs returns the (count, stride) pairs of the access path
func (ap AccessPath) Pairs() []NumStride {
	return ap.pairs
}

// IsConstant returns true if the access path designates a single offset
func (ap AccessPath) IsConstant() bool {
	for _, p := range ap.pairs {
		if p.Num > 1 && p.Stride != 0 {
			return false
		}
	}
	return true
}

// Add returns the access path of the field designated by other inside the field designated by ap.
func (ap AccessPath) Add(other AccessPath) AccessPath {
	pairs := make([]NumStride, 0, len(ap.pairs)+len(other.pairs))
	pairs = append(pairs, ap.pairs...)
	pairs = append(pairs, other.pairs...)
	return AccessPath{offset: ap.offset + other.offset, pairs: pairs}
}

// Offsets returns the sorted list of every offset the access path may designate, with at most limit elements when
// limit > 0.
func (ap AccessPath) Offsets(limit int) []int {
	offsets := map[int]bool{ap.offset: true}
	for _, p := range ap.pairs {
		next := map[int]bool{}
		for o := range offsets {
			for i := 0; i < max(p.Num, 1); i++ {
				next[o+i*p.Stride] = true
				if limit > 0 && len(next) >= limit {
					break
				}
			}
		}
		offsets = next
	}
	res := make([]int, 0, len(offsets))
	for o := range offsets {
		res = append(res, o)
	}
	slices.Sort(res)
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res
}

func (ap AccessPath) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", ap.offset)
	for _, p := range ap.pairs {
		fmt.Fprintf(&b, "+[%dx%d]", p.Num, p.Stride)
	}
	return b.String()
}
