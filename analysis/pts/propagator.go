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

import "github.com/awslabs/ar-go-pta/analysis/config"

// EdgeKey identifies an edge along which points-to sets are propagated
type EdgeKey = int

// A Propagator decides which elements of the points-to set of the source of an edge are propagated along the edge.
// All propagators lead to the same fixpoint.
type Propagator interface {
	// Delta returns the elements of src to propagate along edge e, and records them as propagated. The result must
	// not be modified.
	Delta(e EdgeKey, src *Set) *Set

	// Name returns the name of the discipline
	Name() string
}

// NewPropagator returns the propagator of a discipline, config.DisciplinePlain or config.DisciplineDiff.
func NewPropagator(discipline string) Propagator {
	if discipline == config.DisciplinePlain {
		return Plain{}
	}
	return NewDiff()
}

// Plain propagates the whole points-to set every time
type Plain struct{}

// Delta returns a copy of src
func (Plain) Delta(_ EdgeKey, src *Set) *Set {
	return src.Clone()
}

// Name returns "plain"
func (Plain) Name() string { return config.DisciplinePlain }

// Diff remembers, for each edge, the elements already propagated along it, and only propagates the others.
// Edges keep their key when their endpoints are merged: the source after a merge points to a superset of what it
// pointed to before, and the destination inherits what was sent to the merged node.
type Diff struct {
	sent map[EdgeKey]*Set
}

// NewDiff returns a diff propagator with an empty cache
func NewDiff() *Diff {
	return &Diff{sent: map[EdgeKey]*Set{}}
}

// Delta returns the elements of src not yet propagated along e
func (d *Diff) Delta(e EdgeKey, src *Set) *Set {
	prev, ok := d.sent[e]
	if !ok {
		prev = &Set{}
		d.sent[e] = prev
	}
	delta := src.Minus(prev)
	prev.AddAll(delta)
	return delta
}

// Name returns "diff"
func (*Diff) Name() string { return config.DisciplineDiff }
