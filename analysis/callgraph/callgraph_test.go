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

package callgraph

import (
	"fmt"
	"io"
	"testing"

	"github.com/awslabs/ar-go-pta/analysis/config"
	"github.com/awslabs/ar-go-pta/analysis/memory"
	"github.com/awslabs/ar-go-pta/analysis/pag"
)

func newTestPAG(t *testing.T) *pag.Graph {
	t.Helper()
	cfg := config.NewDefault()
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(io.Discard)
	return pag.NewGraph(cfg, logger)
}

// addFunc adds a function with nparams parameters and a function object
func addFunc(g *pag.Graph, name string, nparams int, variadic bool) *pag.Function {
	obj := g.Symbols.CreateObject(name, memory.FunctionObj, nil)
	g.AddObjNode(obj)
	var formals []memory.NodeID
	for i := 0; i < nparams; i++ {
		formals = append(formals, g.AddValNode(fmt.Sprintf("%s.p%d", name, i)))
	}
	return g.AddFunction(name, obj, formals, memory.InvalidID, variadic)
}

func TestDirectEdges(t *testing.T) {
	g := newTestPAG(t)
	main := addFunc(g, "main", 0, false)
	f := addFunc(g, "f", 0, false)
	h := addFunc(g, "h", 0, false)
	g.AddCallSite(pag.NewDirectCallSite(1, main.ID, f.ID, nil, memory.InvalidID))
	g.AddCallSite(pag.NewDirectCallSite(2, f.ID, f.ID, nil, memory.InvalidID))
	fp := g.AddValNode("fp")
	ind := g.AddCallSite(pag.NewIndirectCallSite(3, f.ID, fp, nil, memory.InvalidID))

	cg := New(g)
	if !cg.Calls(main.ID, f.ID) || !cg.Calls(f.ID, f.ID) {
		t.Errorf("missing direct edges")
	}
	if cg.Calls(f.ID, h.ID) {
		t.Errorf("unexpected edge to h")
	}
	if !cg.AddIndirect(ind, h.ID) {
		t.Errorf("expected a new indirect edge")
	}
	if cg.AddIndirect(ind, h.ID) {
		t.Errorf("indirect edges must be added once")
	}
	if cg.NumIndirectEdges() != 1 {
		t.Errorf("expected 1 indirect edge, got %d", cg.NumIndirectEdges())
	}
	edges := cg.Edges()
	want := []Edge{
		{CallSite: 1, Caller: main.ID, Callee: f.ID, Direct: true},
		{CallSite: 2, Caller: f.ID, Callee: f.ID, Direct: true},
		{CallSite: 3, Caller: f.ID, Callee: h.ID, Direct: false},
	}
	if fmt.Sprint(edges) != fmt.Sprint(want) {
		t.Errorf("expected edges %v, got %v", want, edges)
	}
	if rec := cg.RecursiveFunctions(); fmt.Sprint(rec) != fmt.Sprint([]memory.FuncID{f.ID}) {
		t.Errorf("expected f to be the only recursive function, got %v", rec)
	}
	if r := cg.ReachableFrom(main.ID); fmt.Sprint(r) != fmt.Sprint([]memory.FuncID{main.ID, f.ID, h.ID}) {
		t.Errorf("expected all functions to be reachable from main, got %v", r)
	}
	if r := cg.ReachableFrom(h.ID); len(r) != 1 {
		t.Errorf("expected only h to be reachable from h, got %v", r)
	}
}

func TestMutualRecursion(t *testing.T) {
	g := newTestPAG(t)
	a := addFunc(g, "a", 0, false)
	b := addFunc(g, "b", 0, false)
	c := addFunc(g, "c", 0, false)
	g.AddCallSite(pag.NewDirectCallSite(1, a.ID, b.ID, nil, memory.InvalidID))
	g.AddCallSite(pag.NewDirectCallSite(2, b.ID, a.ID, nil, memory.InvalidID))
	g.AddCallSite(pag.NewDirectCallSite(3, b.ID, c.ID, nil, memory.InvalidID))
	cg := New(g)
	if rec := cg.RecursiveFunctions(); fmt.Sprint(rec) != fmt.Sprint([]memory.FuncID{a.ID, b.ID}) {
		t.Errorf("expected a and b to be recursive, got %v", rec)
	}
	if callees := cg.Callees(3); len(callees) != 1 || callees[0] != c.ID {
		t.Errorf("expected c to be the callee of call site 3, got %v", callees)
	}
}

func TestVirtualFunctions(t *testing.T) {
	g := newTestPAG(t)
	main := addFunc(g, "main", 0, false)
	af := addFunc(g, "A::get_name[abi:cxx11]", 1, false)
	bf := addFunc(g, "B::get_name", 1, false)
	ad := addFunc(g, "A::~A", 1, false)
	bd := addFunc(g, "B::~B", 1, false)
	bg := addFunc(g, "B::other", 2, false)

	vtA := g.AddObjNode(g.Symbols.CreateObject("vtable A", memory.GlobalObj, nil))
	vtB := g.AddObjNode(g.Symbols.CreateObject("vtable B", memory.GlobalObj, nil))
	other := g.AddObjNode(g.Symbols.CreateObject("other", memory.GlobalObj, nil))
	idx := NewVTableIndex(g)
	idx.AddVTable(vtA, []memory.FuncID{ad.ID, af.ID, memory.NoFunc})
	idx.AddVTable(vtB, []memory.FuncID{bd.ID, bf.ID, bg.ID})

	recv := g.AddValNode("recv")
	vptr := g.AddValNode("vptr")
	vtbls := []memory.NodeID{vtA, vtB, other}
	cases := []struct {
		name string
		slot int
		args int
		want []memory.FuncID
	}{
		{"A::get_name", 1, 1, []memory.FuncID{af.ID, bf.ID}},
		{"", 1, 1, []memory.FuncID{af.ID, bf.ID}},
		{"A::~A", 0, 1, []memory.FuncID{ad.ID, bd.ID}},
		{"B::other", 2, 2, []memory.FuncID{bg.ID}},
		{"A::get_name", 1, 2, []memory.FuncID{}},
		{"A::get_name", 5, 1, []memory.FuncID{}},
		{"C::unrelated", 1, 1, []memory.FuncID{}},
	}
	for i, c := range cases {
		actuals := make([]memory.NodeID, c.args)
		for j := range actuals {
			actuals[j] = recv
		}
		cs := pag.NewVirtualCallSite(pag.Label(i+1), main.ID, vptr, c.slot, c.name, actuals, memory.InvalidID)
		got := idx.VirtualFunctions(cs, vtbls)
		if fmt.Sprint(got) != fmt.Sprint(c.want) {
			t.Errorf("call to %q at slot %d with %d args: expected %v, got %v", c.name, c.slot, c.args, c.want, got)
		}
	}
}
