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

package andersen

import (
	"github.com/awslabs/ar-go-pta/analysis/callgraph"
	"github.com/awslabs/ar-go-pta/analysis/memory"
	"github.com/awslabs/ar-go-pta/analysis/pag"
	"github.com/awslabs/ar-go-pta/analysis/pts"
)

// AliasResult is the result of an alias query
type AliasResult int

const (
	// NoAlias means the pointers never point to the same object
	NoAlias AliasResult = iota
	// MayAlias means the pointers may point to the same object
	MayAlias
)

func (r AliasResult) String() string {
	if r == MayAlias {
		return "MayAlias"
	}
	return "NoAlias"
}

// PointsTo returns the points-to set of node id. The set must not be modified.
func (a *Analysis) PointsTo(id memory.NodeID) *pts.Set {
	return a.pts.Get(a.consCG.RepOf(id))
}

// IsAlias returns MayAlias if p and q may point to the same object. Base and field-insensitive objects stand for
// all their fields, and a pointer to the black hole aliases every pointer.
func (a *Analysis) IsAlias(p, q memory.NodeID) AliasResult {
	pp := a.expandFIObjs(a.PointsTo(p))
	qp := a.expandFIObjs(a.PointsTo(q))
	if pp.Has(memory.BlackHole) || qp.Has(memory.BlackHole) || pp.Intersects(qp) {
		return MayAlias
	}
	return NoAlias
}

func (a *Analysis) expandFIObjs(s *pts.Set) *pts.Set {
	res := s.Clone()
	for _, o := range s.Slice() {
		node := a.pag.Node(o)
		if node.Obj() == nil {
			continue
		}
		if node.BaseID() == o || node.Obj().IsFieldInsensitive() {
			for _, f := range a.pag.AllFieldObjNodes(o) {
				res.Add(f)
			}
		}
	}
	return res
}

// ResolvedCallees returns the functions called at call site cs, in increasing order
func (a *Analysis) ResolvedCallees(cs pag.Label) []memory.FuncID {
	return a.callGraph.Callees(cs)
}

// CallGraphEdges returns the edges of the call graph, ordered by call site then callee
func (a *Analysis) CallGraphEdges() []callgraph.Edge {
	return a.callGraph.Edges()
}

// HeapObjectAt returns the heap object allocated by an allocator called indirectly at cs, if any
func (a *Analysis) HeapObjectAt(cs pag.Label) (memory.NodeID, bool) {
	val, ok := a.heapDummies[cs]
	if !ok {
		return memory.InvalidID, false
	}
	s := a.pts.Get(val).Slice()
	if len(s) == 0 {
		return memory.InvalidID, false
	}
	return s[0], true
}
