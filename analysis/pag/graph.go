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

package pag

import (
	"fmt"

	"github.com/awslabs/ar-go-pta/analysis/config"
	"github.com/awslabs/ar-go-pta/analysis/memory"
	"github.com/pkg/errors"
)

// Graph is the assignment graph
type Graph struct {
	// Symbols is the symbol table that allocates the IDs of the nodes of the graph
	Symbols *memory.SymbolTable

	config *config.Config
	logger *config.LogGroup

	// nodes is indexed by node ID
	nodes    []*Node
	numNodes int

	edges     []*Edge
	edgeIndex map[edgeKey]*Edge
	byLabel   map[Label][]*Edge

	functions  []*Function
	funcByName map[string]memory.FuncID
	callSites  map[Label]*CallSite
	siteOrder  []Label

	// gepObjs maps (base object, offset) to the field object
	gepObjs map[gepKey]memory.NodeID
	// fields maps a base object to its field objects, in creation order
	fields map[memory.NodeID][]memory.NodeID
}

type gepKey struct {
	base   memory.NodeID
	offset int
}

func invariant(format string, args ...any) {
	panic(errors.Errorf("pag: "+format, args...))
}

// NewGraph returns a graph containing the reserved nodes: the null pointer, the black hole pointer, which points to
// the black hole object, and the constant object.
func NewGraph(cfg *config.Config, logger *config.LogGroup) *Graph {
	g := &Graph{
		Symbols:    memory.NewSymbolTable(cfg, logger),
		config:     cfg,
		logger:     logger,
		edgeIndex:  map[edgeKey]*Edge{},
		byLabel:    map[Label][]*Edge{},
		funcByName: map[string]memory.FuncID{},
		callSites:  map[Label]*CallSite{},
		gepObjs:    map[gepKey]memory.NodeID{},
		fields:     map[memory.NodeID][]memory.NodeID{},
	}
	g.AddNode(memory.NullPtr, ValNode)
	g.AddNode(memory.BlkPtr, ValNode)
	g.AddNode(memory.BlackHole, FIObjNode)
	g.AddNode(memory.ConstantObj, FIObjNode)
	g.AddEdge(Addr, memory.BlackHole, memory.BlkPtr, NoLabel)
	return g
}

// Config returns the configuration the graph was built with
func (g *Graph) Config() *config.Config { return g.config }

// Logger returns the log group of the graph
func (g *Graph) Logger() *config.LogGroup { return g.logger }

// AddNode adds a node with an ID allocated by the symbol table of the graph. Object nodes must have an object in the
// symbol table. It panics if the node already exists.
func (g *Graph) AddNode(id memory.NodeID, kind NodeKind) *Node {
	if id < 0 || id >= g.Symbols.NumIDs() {
		invariant("node ID %d has not been allocated by the symbol table", id)
	}
	if g.HasNode(id) {
		invariant("duplicate node ID %d (%s)", id, g.Symbols.Name(id))
	}
	n := &Node{id: id, kind: kind, fn: memory.NoFunc}
	switch kind {
	case ValNode, RetNode, VarargNode:
	case ObjNode, FIObjNode, DummyObjNode:
		n.obj = g.Symbols.Object(id)
	case GepObjNode:
		invariant("field object %d must be created through GepObjNode", id)
	default:
		invariant("unknown node kind %s", kind)
	}
	g.setNode(n)
	return n
}

func (g *Graph) setNode(n *Node) {
	for len(g.nodes) <= n.id {
		g.nodes = append(g.nodes, nil)
	}
	g.nodes[n.id] = n
	g.numNodes++
}

// AddValNode adds the value node of entity and returns its ID
func (g *Graph) AddValNode(entity string) memory.NodeID {
	id := g.Symbols.IDFor(entity)
	g.AddNode(id, ValNode)
	return id
}

// AddDummyValNode adds an anonymous value node and returns its ID
func (g *Graph) AddDummyValNode() memory.NodeID {
	id := g.Symbols.NewID()
	g.Symbols.SetName(id, fmt.Sprintf("dummyval#%d", id))
	g.AddNode(id, ValNode)
	return id
}

// AddObjNode adds the base node of obj
func (g *Graph) AddObjNode(obj *memory.MemObj) memory.NodeID {
	kind := ObjNode
	switch {
	case obj.Kind() == memory.DummyObj:
		kind = DummyObjNode
	case obj.IsFieldInsensitive():
		kind = FIObjNode
	}
	g.AddNode(obj.ID(), kind)
	return obj.ID()
}

// AddDummyObjNode creates a placeholder object of type t and adds its node
func (g *Graph) AddDummyObjNode(t *memory.Type) memory.NodeID {
	return g.AddObjNode(g.Symbols.CreateDummyObject(t))
}

// HasNode returns true if the graph has a node with that ID
func (g *Graph) HasNode(id memory.NodeID) bool {
	return id >= 0 && id < len(g.nodes) && g.nodes[id] != nil
}

// Node returns the node with that ID. It panics if there is none.
func (g *Graph) Node(id memory.NodeID) *Node {
	if !g.HasNode(id) {
		invariant("unknown node %d", id)
	}
	return g.nodes[id]
}

// NumNodes returns the number of nodes of the graph
func (g *Graph) NumNodes() int { return g.numNodes }

// MaxID returns an upper bound (exclusive) on the IDs of the nodes of the graph
func (g *Graph) MaxID() int { return len(g.nodes) }

// Nodes returns the nodes of the graph in ID order
func (g *Graph) Nodes() []*Node {
	res := make([]*Node, 0, g.numNodes)
	for _, n := range g.nodes {
		if n != nil {
			res = append(res, n)
		}
	}
	return res
}

// Name returns a printable name for node id
func (g *Graph) Name(id memory.NodeID) string {
	return g.Symbols.Name(id)
}

// AddEdge adds an edge, or returns the existing edge with the same kind, endpoints and label. Gep edges must be
// added with AddGepEdge.
func (g *Graph) AddEdge(kind EdgeKind, src, dst memory.NodeID, label Label) *Edge {
	if kind == NormalGep || kind == VariantGep {
		invariant("gep edge %d -> %d must be added with AddGepEdge", src, dst)
	}
	return g.addEdge(kind, src, dst, label, memory.AccessPath{})
}

// AddGepEdge adds an edge dst = &src->ap. The edge is a VariantGep edge if variant is true or ap does not designate
// a single offset.
func (g *Graph) AddGepEdge(src, dst memory.NodeID, ap memory.AccessPath, variant bool) *Edge {
	kind := NormalGep
	if variant || !ap.IsConstant() {
		kind = VariantGep
	}
	return g.addEdge(kind, src, dst, NoLabel, ap)
}

func (g *Graph) addEdge(kind EdgeKind, src, dst memory.NodeID, label Label, ap memory.AccessPath) *Edge {
	if kind < 0 || kind >= numEdgeKinds {
		invariant("unknown edge kind %s", kind)
	}
	if !g.HasNode(src) || !g.HasNode(dst) {
		invariant("edge %d -%s-> %d references an unknown node", src, kind, dst)
	}
	if kind.NeedsLabel() && label == NoLabel {
		invariant("%s edge %d -> %d requires a label", kind, src, dst)
	}
	if kind == Addr && g.nodes[src].IsTopLevel() {
		invariant("source of addr edge %d -> %d is not an object", src, dst)
	}
	key := keyOf(kind, src, dst, label, ap)
	if e, ok := g.edgeIndex[key]; ok {
		return e
	}
	e := &Edge{id: len(g.edges), kind: kind, src: src, dst: dst, label: label, ap: ap}
	g.edges = append(g.edges, e)
	g.edgeIndex[key] = e
	g.nodes[src].out[kind] = append(g.nodes[src].out[kind], e)
	g.nodes[dst].in[kind] = append(g.nodes[dst].in[kind], e)
	if label != NoLabel {
		g.byLabel[label] = append(g.byLabel[label], e)
	}
	return e
}

// HasEdge returns true if the graph has an edge with that kind, endpoints and label
func (g *Graph) HasEdge(kind EdgeKind, src, dst memory.NodeID, label Label) bool {
	_, ok := g.edgeIndex[edgeKey{kind: kind, src: src, dst: dst, label: label}]
	return ok
}

// Edges returns all the edges in creation order
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// InEdges returns the incoming edges of kind of node id
func (g *Graph) InEdges(id memory.NodeID, kind EdgeKind) []*Edge {
	return g.Node(id).in[kind]
}

// OutEdges returns the outgoing edges of kind of node id
func (g *Graph) OutEdges(id memory.NodeID, kind EdgeKind) []*Edge {
	return g.Node(id).out[kind]
}

// EdgesAt returns the edges labelled by the program point label
func (g *Graph) EdgesAt(label Label) []*Edge {
	return g.byLabel[label]
}

// GepObjNode returns the field object at offset of object o, creating it if necessary. The same arguments always
// return the same node:
//   - a field object composes offset with its own offset and uses its base;
//   - a field-insensitive object returns its base;
//   - the offset is taken modulo the field limit of the object;
//   - with first-field-eq-base, offset 0 is the base.
func (g *Graph) GepObjNode(o memory.NodeID, offset int) memory.NodeID {
	n := g.Node(o)
	switch n.kind {
	case GepObjNode:
		offset += n.offset
	case ObjNode, FIObjNode, DummyObjNode:
	default:
		invariant("cannot take a field of %s node %d", n.kind, o)
	}
	obj := n.obj
	if obj.IsFieldInsensitive() {
		return obj.ID()
	}
	offset = g.Symbols.ModulusOffset(obj, offset)
	if g.config.FirstFieldEqBase && offset == 0 {
		return obj.ID()
	}
	key := gepKey{base: obj.ID(), offset: offset}
	if id, ok := g.gepObjs[key]; ok {
		return id
	}
	id := g.Symbols.NewID()
	g.Symbols.SetName(id, fmt.Sprintf("%s.%d", g.Symbols.Name(obj.ID()), offset))
	g.setNode(&Node{id: id, kind: GepObjNode, obj: obj, offset: offset, fn: memory.NoFunc})
	g.gepObjs[key] = id
	g.fields[obj.ID()] = append(g.fields[obj.ID()], id)
	return id
}

// LookupGepObjNode returns the field object at the exact offset of base, if it has been created
func (g *Graph) LookupGepObjNode(base memory.NodeID, offset int) (memory.NodeID, bool) {
	id, ok := g.gepObjs[gepKey{base: base, offset: offset}]
	return id, ok
}

// BaseObjNode returns the base object of object o (o itself if it is a base)
func (g *Graph) BaseObjNode(o memory.NodeID) memory.NodeID {
	return g.Node(o).BaseID()
}

// IsFieldInsensitive returns true if the object of node o is field-insensitive
func (g *Graph) IsFieldInsensitive(o memory.NodeID) bool {
	n := g.Node(o)
	return n.obj != nil && n.obj.IsFieldInsensitive()
}

// FieldObjNodes returns the field objects created for base, in creation order
func (g *Graph) FieldObjNodes(base memory.NodeID) []memory.NodeID {
	return g.fields[base]
}

// AllFieldObjNodes returns base and all its field objects
func (g *Graph) AllFieldObjNodes(o memory.NodeID) []memory.NodeID {
	base := g.BaseObjNode(o)
	return append([]memory.NodeID{base}, g.fields[base]...)
}

// GepObjects returns the (field object, base, offset) triples of every field object, in creation order
func (g *Graph) GepObjects() [][3]int {
	var res [][3]int
	for _, n := range g.nodes {
		if n != nil && n.kind == GepObjNode {
			res = append(res, [3]int{n.id, n.obj.ID(), n.offset})
		}
	}
	return res
}
