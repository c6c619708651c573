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

// Package callgraph contains the call graph built on the fly by the pointer analysis, and the class hierarchy
// information used to resolve virtual calls.
//
// The call graph is stored in a gonum directed graph whose nodes are the functions of the assignment graph, which
// gives access to the gonum graph algorithms (reachability, strongly connected components).
package callgraph

import (
	"sort"

	"github.com/awslabs/ar-go-pta/analysis/memory"
	"github.com/awslabs/ar-go-pta/analysis/pag"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// Edge is a call edge from the call site CallSite of Caller to Callee
type Edge struct {
	CallSite pag.Label
	Caller   memory.FuncID
	Callee   memory.FuncID
	// Direct is true if the callee is known statically
	Direct bool
}

type edgeKey struct {
	cs     pag.Label
	callee memory.FuncID
}

// Graph is a call graph
type Graph struct {
	pag *pag.Graph

	g *simple.DirectedGraph
	// selfLoops contains the functions calling themselves, which the gonum graph does not represent
	selfLoops map[memory.FuncID]bool

	edges   map[edgeKey]*Edge
	callees map[pag.Label][]memory.FuncID

	numIndirect int
}

// New returns a call graph containing the functions of p and its direct calls
func New(p *pag.Graph) *Graph {
	cg := &Graph{
		pag:       p,
		g:         simple.NewDirectedGraph(),
		selfLoops: map[memory.FuncID]bool{},
		edges:     map[edgeKey]*Edge{},
		callees:   map[pag.Label][]memory.FuncID{},
	}
	for _, f := range p.Functions() {
		cg.g.AddNode(simple.Node(int64(f.ID)))
	}
	for _, cs := range p.CallSites() {
		if cs.IsDirect() {
			cg.addEdge(cs, cs.Callee, true)
		}
	}
	return cg
}

// AddIndirect adds an edge from the indirect call site cs to callee. It returns false if the edge already exists.
func (cg *Graph) AddIndirect(cs *pag.CallSite, callee memory.FuncID) bool {
	if !cg.addEdge(cs, callee, false) {
		return false
	}
	cg.numIndirect++
	return true
}

func (cg *Graph) addEdge(cs *pag.CallSite, callee memory.FuncID, direct bool) bool {
	key := edgeKey{cs: cs.ID, callee: callee}
	if _, ok := cg.edges[key]; ok {
		return false
	}
	cg.edges[key] = &Edge{CallSite: cs.ID, Caller: cs.Caller, Callee: callee, Direct: direct}
	cg.callees[cs.ID] = insertSorted(cg.callees[cs.ID], callee)
	if cs.Caller == callee {
		cg.selfLoops[callee] = true
	} else if !cg.g.HasEdgeFromTo(int64(cs.Caller), int64(callee)) {
		cg.g.SetEdge(cg.g.NewEdge(cg.g.Node(int64(cs.Caller)), cg.g.Node(int64(callee))))
	}
	return true
}

func insertSorted(s []memory.FuncID, f memory.FuncID) []memory.FuncID {
	i := sort.SearchInts(s, f)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = f
	return s
}

// NumIndirectEdges returns the number of edges added by AddIndirect
func (cg *Graph) NumIndirectEdges() int { return cg.numIndirect }

// HasEdge returns true if the call site cs calls callee
func (cg *Graph) HasEdge(cs pag.Label, callee memory.FuncID) bool {
	_, ok := cg.edges[edgeKey{cs: cs, callee: callee}]
	return ok
}

// Callees returns the callees of call site cs in increasing order. The slice must not be modified.
func (cg *Graph) Callees(cs pag.Label) []memory.FuncID {
	return cg.callees[cs]
}

// Edges returns all the edges of the call graph, ordered by call site then callee
func (cg *Graph) Edges() []Edge {
	res := make([]Edge, 0, len(cg.edges))
	for _, e := range cg.edges {
		res = append(res, *e)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CallSite != res[j].CallSite {
			return res[i].CallSite < res[j].CallSite
		}
		return res[i].Callee < res[j].Callee
	})
	return res
}

// Calls returns true if caller calls callee at some call site
func (cg *Graph) Calls(caller, callee memory.FuncID) bool {
	if caller == callee {
		return cg.selfLoops[caller]
	}
	return cg.g.HasEdgeFromTo(int64(caller), int64(callee))
}

// RecursiveFunctions returns the functions that belong to a cycle of the call graph, in increasing order
func (cg *Graph) RecursiveFunctions() []memory.FuncID {
	var res []memory.FuncID
	for _, scc := range topo.TarjanSCC(cg.g) {
		if len(scc) == 1 {
			if f := memory.FuncID(scc[0].ID()); cg.selfLoops[f] {
				res = append(res, f)
			}
			continue
		}
		for _, n := range scc {
			res = append(res, memory.FuncID(n.ID()))
		}
	}
	sort.Ints(res)
	return res
}

// ReachableFrom returns the functions reachable from the entry functions (entries included), in increasing order
func (cg *Graph) ReachableFrom(entries ...memory.FuncID) []memory.FuncID {
	seen := map[memory.FuncID]bool{}
	for _, entry := range entries {
		n := cg.g.Node(int64(entry))
		if n == nil || seen[entry] {
			continue
		}
		bf := traverse.BreadthFirst{
			Visit: func(n graph.Node) { seen[memory.FuncID(n.ID())] = true },
		}
		bf.Walk(cg.g, n, nil)
	}
	res := make([]memory.FuncID, 0, len(seen))
	for f := range seen {
		res = append(res, f)
	}
	sort.Ints(res)
	return res
}
