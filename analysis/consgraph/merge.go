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
	"github.com/awslabs/ar-go-pta/analysis/memory"
	"github.com/awslabs/ar-go-pta/internal/graphutil"
	"golang.org/x/exp/slices"
)

// MergeSCC merges the members of a cycle into rep, which must be one of the members. All the members are assigned
// rep as representative before their edges are moved, so that the edges between members are recognized as internal:
//   - internal copy edges are removed;
//   - internal gep edges are removed, and make the cycle a positive weight cycle if they are critical;
//   - internal load and store edges are kept, as self-loops of rep;
//   - addr edges are removed, the points-to sets of the members being merged by the caller.
//
// External edges are moved to rep. MergeSCC returns true if the cycle is a positive weight cycle.
func (g *Graph) MergeSCC(members []memory.NodeID, rep memory.NodeID) bool {
	if !slices.Contains(members, rep) {
		invariant("representative %d is not a member of %v", rep, members)
	}
	for _, m := range members {
		if m != rep {
			g.setRepAll(m, rep)
		}
	}
	critical := false
	for _, m := range members {
		if m != rep && g.moveEdges(m, rep) {
			critical = true
		}
	}
	if critical {
		g.SetPWC(rep)
	}
	return critical
}

// MergeNode merges node into rep. It returns true if an edge between them makes rep a positive weight cycle.
func (g *Graph) MergeNode(node, rep memory.NodeID) bool {
	if node == rep {
		return false
	}
	return g.MergeSCC([]memory.NodeID{rep, node}, rep)
}

func (g *Graph) setRepAll(n, rep memory.NodeID) {
	g.setRep(n, rep)
	g.subs[rep] = append(g.subs[rep], n)
	for _, s := range g.subs[n] {
		g.setRep(s, rep)
		g.subs[rep] = append(g.subs[rep], s)
	}
	delete(g.subs, n)
	if g.pwc[n] {
		g.pwc[rep] = true
		delete(g.pwc, n)
	}
}

// moveEdges moves the edges of node to rep, or removes them when they are internal to the cycle of rep
func (g *Graph) moveEdges(node, rep memory.NodeID) bool {
	n := g.Node(node)
	critical := false
	for kind := EdgeKind(0); kind < numEdgeKinds; kind++ {
		for _, e := range slices.Clone(n.out[kind]) {
			if g.moveEdge(e, rep) {
				critical = true
			}
		}
		for _, e := range slices.Clone(n.in[kind]) {
			if g.moveEdge(e, rep) {
				critical = true
			}
		}
	}
	return critical
}

// IsCritical returns true if e is a gep edge whose destination may receive objects other than the ones of its
// source. Offset 0 only denotes the base object itself when the first field is the base.
func (g *Graph) IsCritical(e *Edge) bool {
	switch e.Kind {
	case VariantGep:
		return true
	case NormalGep:
		return e.Offset != 0 || !g.pag.Config().FirstFieldEqBase
	default:
		return false
	}
}

func (g *Graph) moveEdge(e *Edge, rep memory.NodeID) bool {
	if _, ok := g.edges[e.key()]; !ok {
		// already removed as a duplicate
		return false
	}
	src, dst := g.RepOf(e.Src), g.RepOf(e.Dst)
	if src != rep && dst != rep {
		return false
	}
	internal := src == rep && dst == rep
	switch {
	case e.Kind == Addr:
		g.RemoveEdge(e)
		return false
	case internal && e.Kind == Copy:
		g.RemoveEdge(e)
		return false
	case internal && (e.Kind == NormalGep || e.Kind == VariantGep):
		g.RemoveEdge(e)
		return g.IsCritical(e)
	}
	if src != e.Src || dst != e.Dst {
		g.retarget(e, src, dst)
	}
	return false
}

// DetectSCCs returns the cycles of copy and gep edges between representatives. Each cycle is sorted and the cycles
// are sorted by their smallest node.
func (g *Graph) DetectSCCs() [][]memory.NodeID {
	it := graphutil.NewIterator(len(g.nodes), g.directSuccessors, func(n int) bool {
		return g.nodes[n] != nil && g.IsRep(n)
	})
	return graphutil.CyclicComponents(it)
}

// DetectSCCsFrom returns the cycles of copy and gep edges reachable from roots, sorted as in DetectSCCs
func (g *Graph) DetectSCCsFrom(roots []memory.NodeID) [][]memory.NodeID {
	reps := make([]memory.NodeID, 0, len(roots))
	for _, r := range roots {
		reps = append(reps, g.RepOf(r))
	}
	var res [][]memory.NodeID
	for _, c := range graphutil.StronglyConnectedComponents(reps, g.directSuccessors) {
		if len(c) > 1 {
			slices.Sort(c)
			res = append(res, c)
		}
	}
	graphutil.SortComponents(res)
	return res
}

func (g *Graph) directSuccessors(n memory.NodeID) []memory.NodeID {
	node := g.Node(n)
	var res []memory.NodeID
	for _, kind := range []EdgeKind{Copy, NormalGep, VariantGep} {
		for _, e := range node.out[kind] {
			if d := g.RepOf(e.Dst); d != n {
				res = append(res, d)
			}
		}
	}
	return res
}
