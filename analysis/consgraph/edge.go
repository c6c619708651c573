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

package consgraph

import (
	"fmt"

	"github.com/awslabs/ar-go-pta/analysis/memory"
	"golang.org/x/exp/slices"
)

// EdgeKind is the kind of a constraint edge
type EdgeKind int

const (
	// Addr seeds the points-to set of Dst with the object Src
	Addr EdgeKind = iota
	// Copy propagates pts(Src) to pts(Dst)
	Copy
	// Load propagates the content of the objects of pts(Src) to pts(Dst)
	Load
	// Store propagates pts(Src) into the content of the objects of pts(Dst)
	Store
	// NormalGep propagates the fields at Offset of the objects of pts(Src) to pts(Dst)
	NormalGep
	// VariantGep collapses the objects of pts(Src) and propagates them to pts(Dst)
	VariantGep

	numEdgeKinds
)

func (k EdgeKind) String() string {
	switch k {
	case Addr:
		return "addr"
	case Copy:
		return "copy"
	case Load:
		return "load"
	case Store:
		return "store"
	case NormalGep:
		return "gep"
	case VariantGep:
		return "variant-gep"
	default:
		return fmt.Sprintf("edgekind(%d)", int(k))
	}
}

// IsDirect returns true for the edges that propagate points-to sets directly between their endpoints. Cycles of
// direct edges are collapsed.
func (k EdgeKind) IsDirect() bool {
	return k == Copy || k == NormalGep || k == VariantGep
}

// Edge is a constraint edge. Edges keep their ID when they are retargeted.
type Edge struct {
	ID     int
	Kind   EdgeKind
	Src    memory.NodeID
	Dst    memory.NodeID
	Offset int
}

func (e *Edge) String() string {
	if e.Kind == NormalGep {
		return fmt.Sprintf("%d -gep(%d)-> %d", e.Src, e.Offset, e.Dst)
	}
	return fmt.Sprintf("%d -%s-> %d", e.Src, e.Kind, e.Dst)
}

type edgeKey struct {
	kind   EdgeKind
	src    memory.NodeID
	dst    memory.NodeID
	offset int
}

func (e *Edge) key() edgeKey {
	return edgeKey{kind: e.Kind, src: e.Src, dst: e.Dst, offset: e.Offset}
}

// edgeList is a list of edges sorted by ID, which makes iteration order independent of retargeting history.
type edgeList []*Edge

func cmpEdge(e *Edge, id int) int {
	return e.ID - id
}

func (l edgeList) insert(e *Edge) edgeList {
	i, found := slices.BinarySearchFunc(l, e.ID, cmpEdge)
	if found {
		return l
	}
	return slices.Insert(l, i, e)
}

func (l edgeList) remove(e *Edge) edgeList {
	i, found := slices.BinarySearchFunc(l, e.ID, cmpEdge)
	if !found {
		return l
	}
	return slices.Delete(l, i, i+1)
}
