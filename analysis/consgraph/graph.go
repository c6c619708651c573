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

// Package consgraph implements the constraint graph solved by the Andersen analysis. The constraint graph is built
// from the assignment graph: interprocedural edges become copy edges, and the graph is then modified by the solver,
// which adds copy edges when resolving loads, stores and calls and merges the nodes of cycles.
//
// Every node has a representative (rep). Merged nodes are represented by the node they were merged into, and the
// edges of a merged node are moved to its rep. Edges keep their ID when they are moved.
package consgraph

import (
	"github.com/awslabs/ar-go-pta/analysis/memory"
	"github.com/awslabs/ar-go-pta/analysis/pag"
	"github.com/pkg/errors"
)

// Node is a node of the constraint graph
type Node struct {
	id  memory.NodeID
	in  [numEdgeKinds]edgeList
	out [numEdgeKinds]edgeList
}

// ID returns the node ID, which is the ID of the node in the assignment graph
func (n *Node) ID() memory.NodeID { return n.id }

// Graph is the constraint graph
type Graph struct {
	pag *pag.Graph

	nodes []*Node
	edges map[edgeKey]*Edge

	nextEdgeID int
	numEdges   [numEdgeKinds]int

	// rep[n] is the representative of n, or n itself when n has not been merged (rep[n] is 0 for IDs that were never
	// set, which repOf treats as self-representation)
	rep    []memory.NodeID
	hasRep []bool
	// subs maps a representative to the nodes merged into it
	subs map[memory.NodeID][]memory.NodeID
	// pwc is the set of representatives of positive weight cycles
	pwc map[memory.NodeID]bool

	directChanged bool
}

func invariant(format string, args ...any) {
	panic(errors.Errorf("consgraph: "+format, args...))
}

// New builds the constraint graph of g. Copy, call, return, fork and join edges become copy edges.
func New(g *pag.Graph) *Graph {
	cg := &Graph{
		pag:   g,
		edges: map[edgeKey]*Edge{},
		subs:  map[memory.NodeID][]memory.NodeID{},
		pwc:   map[memory.NodeID]bool{},
	}
	for _, n := range g.Nodes() {
		cg.AddNode(n.ID())
	}
	for _, e := range g.Edges() {
		switch k := e.Kind(); {
		case k == pag.Addr:
			cg.AddAddrEdge(e.Src(), e.Dst())
		case k.IsCopyLike():
			cg.AddCopyEdge(e.Src(), e.Dst())
		case k == pag.Load:
			cg.AddLoadEdge(e.Src(), e.Dst())
		case k == pag.Store:
			cg.AddStoreEdge(e.Src(), e.Dst())
		case k == pag.NormalGep:
			cg.AddNormalGepEdge(e.Src(), e.Dst(), e.AccessPath().Offset())
		case k == pag.VariantGep:
			cg.AddVariantGepEdge(e.Src(), e.Dst())
		default:
			invariant("unexpected assignment edge %s", e)
		}
	}
	cg.directChanged = true
	return cg
}

// PAG returns the assignment graph the constraint graph was built from
func (g *Graph) PAG() *pag.Graph { return g.pag }

// AddNode adds a node if it is not in the graph and returns it
func (g *Graph) AddNode(id memory.NodeID) *Node {
	if id < 0 {
		invariant("negative node ID %d", id)
	}
	for len(g.nodes) <= id {
		g.nodes = append(g.nodes, nil)
		g.rep = append(g.rep, 0)
		g.hasRep = append(g.hasRep, false)
	}
	if g.nodes[id] == nil {
		g.nodes[id] = &Node{id: id}
	}
	return g.nodes[id]
}

// HasNode returns true if id is a node of the graph
func (g *Graph) HasNode(id memory.NodeID) bool {
	return id >= 0 && id < len(g.nodes) && g.nodes[id] != nil
}

// Node returns the node with ID id. It panics if there is none.
func (g *Graph) Node(id memory.NodeID) *Node {
	if !g.HasNode(id) {
		invariant("unknown node %d", id)
	}
	return g.nodes[id]
}

// MaxID returns an upper bound (exclusive) on the IDs of the nodes of the graph
func (g *Graph) MaxID() int { return len(g.nodes) }

// NumEdges returns the number of edges of kind in the graph
func (g *Graph) NumEdges(kind EdgeKind) int { return g.numEdges[kind] }

// RepOf returns the representative of n
func (g *Graph) RepOf(n memory.NodeID) memory.NodeID {
	if n < 0 || n >= len(g.rep) || !g.hasRep[n] {
		return n
	}
	r := g.rep[n]
	if r == n {
		return n
	}
	root := g.RepOf(r)
	g.rep[n] = root
	return root
}

// IsRep returns true if n is its own representative
func (g *Graph) IsRep(n memory.NodeID) bool {
	return g.RepOf(n) == n
}

// SubNodes returns the nodes merged into rep, excluding rep itself
func (g *Graph) SubNodes(rep memory.NodeID) []memory.NodeID {
	return g.subs[rep]
}

func (g *Graph) setRep(n, rep memory.NodeID) {
	g.AddNode(n)
	g.rep[n] = rep
	g.hasRep[n] = true
}

// IsPWC returns true if rep is the representative of a positive weight cycle, i.e. a cycle containing a gep edge
// that changes field offsets
func (g *Graph) IsPWC(rep memory.NodeID) bool { return g.pwc[rep] }

// SetPWC marks rep as the representative of a positive weight cycle
func (g *Graph) SetPWC(rep memory.NodeID) { g.pwc[rep] = true }

// DirectChanged returns true if a copy or gep edge has been added since the last call to ResetDirectChanged
func (g *Graph) DirectChanged() bool { return g.directChanged }

// ResetDirectChanged clears the flag returned by DirectChanged
func (g *Graph) ResetDirectChanged() { g.directChanged = false }

// InEdges returns the incoming edges of kind of n, sorted by edge ID. The slice must not be modified.
func (g *Graph) InEdges(n memory.NodeID, kind EdgeKind) []*Edge {
	return g.Node(n).in[kind]
}

// OutEdges returns the outgoing edges of kind of n, sorted by edge ID. The slice must not be modified.
func (g *Graph) OutEdges(n memory.NodeID, kind EdgeKind) []*Edge {
	return g.Node(n).out[kind]
}

// HasEdge returns true if the graph has an edge of kind from src to dst (with offset for NormalGep edges)
func (g *Graph) HasEdge(kind EdgeKind, src, dst memory.NodeID, offset int) bool {
	if kind != NormalGep {
		offset = 0
	}
	_, ok := g.edges[edgeKey{kind: kind, src: src, dst: dst, offset: offset}]
	return ok
}

// AddAddrEdge adds the edge seeding the points-to set of dst with the object src
func (g *Graph) AddAddrEdge(src, dst memory.NodeID) *Edge {
	return g.addEdge(Addr, src, dst, 0)
}

// AddCopyEdge adds a copy edge from src to dst. It returns nil if the edge is a self-loop or already exists.
func (g *Graph) AddCopyEdge(src, dst memory.NodeID) *Edge {
	if src == dst {
		return nil
	}
	return g.addEdge(Copy, src, dst, 0)
}

// AddLoadEdge adds the edge dst = *src. It returns nil if the edge already exists.
func (g *Graph) AddLoadEdge(src, dst memory.NodeID) *Edge {
	return g.addEdge(Load, src, dst, 0)
}

// AddStoreEdge adds the edge *dst = src. It returns nil if the edge already exists.
func (g *Graph) AddStoreEdge(src, dst memory.NodeID) *Edge {
	return g.addEdge(Store, src, dst, 0)
}

// AddNormalGepEdge adds the edge dst = &src->offset. It returns nil if the edge already exists.
func (g *Graph) AddNormalGepEdge(src, dst memory.NodeID, offset int) *Edge {
	return g.addEdge(NormalGep, src, dst, offset)
}

// AddVariantGepEdge adds the edge dst = &src[?]. It returns nil if the edge already exists.
func (g *Graph) AddVariantGepEdge(src, dst memory.NodeID) *Edge {
	return g.addEdge(VariantGep, src, dst, 0)
}

func (g *Graph) addEdge(kind EdgeKind, src, dst memory.NodeID, offset int) *Edge {
	s, d := g.Node(src), g.Node(dst)
	if kind != NormalGep {
		offset = 0
	}
	e := &Edge{Kind: kind, Src: src, Dst: dst, Offset: offset}
	if _, ok := g.edges[e.key()]; ok {
		return nil
	}
	e.ID = g.nextEdgeID
	g.nextEdgeID++
	g.edges[e.key()] = e
	s.out[kind] = s.out[kind].insert(e)
	d.in[kind] = d.in[kind].insert(e)
	g.numEdges[kind]++
	if kind.IsDirect() {
		g.directChanged = true
	}
	return e
}

// RemoveEdge removes e from the graph
func (g *Graph) RemoveEdge(e *Edge) {
	if cur, ok := g.edges[e.key()]; !ok || cur != e {
		invariant("removing edge %s that is not in the graph", e)
	}
	delete(g.edges, e.key())
	s, d := g.Node(e.Src), g.Node(e.Dst)
	s.out[e.Kind] = s.out[e.Kind].remove(e)
	d.in[e.Kind] = d.in[e.Kind].remove(e)
	g.numEdges[e.Kind]--
}

// retarget moves e to the new endpoints. If an equivalent edge already exists, e is removed instead and retarget
// returns false.
func (g *Graph) retarget(e *Edge, src, dst memory.NodeID) bool {
	g.RemoveEdge(e)
	e.Src, e.Dst = src, dst
	if _, ok := g.edges[e.key()]; ok {
		return false
	}
	g.edges[e.key()] = e
	s, d := g.Node(src), g.Node(dst)
	s.out[e.Kind] = s.out[e.Kind].insert(e)
	d.in[e.Kind] = d.in[e.Kind].insert(e)
	g.numEdges[e.Kind]++
	return true
}
