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
	"sort"

	"github.com/awslabs/ar-go-pta/analysis/memory"
)

// Function is a function of the analyzed program, with the nodes of its parameters and return value
type Function struct {
	ID   memory.FuncID
	Name string

	// Obj is the function object, the target of function pointers. It is memory.InvalidID if the function is never
	// address-taken.
	Obj memory.NodeID

	// Formals are the value nodes of the formal parameters
	Formals []memory.NodeID

	// Ret is the return node, or memory.InvalidID
	Ret memory.NodeID

	// Vararg receives the variadic arguments when Variadic is true, memory.InvalidID otherwise
	Vararg   memory.NodeID
	Variadic bool

	// HeapAlloc is true for allocation functions: each call site reached through an indirect call gets its own heap
	// object
	HeapAlloc bool
}

// NumParams returns the number of formal parameters
func (f *Function) NumParams() int { return len(f.Formals) }

// CallSite is a call instruction. A call site is direct when Callee is set, virtual when VTablePtr is set, and
// indirect through the function pointer FunPtr otherwise. Thread spawn sites are call sites with Fork set.
type CallSite struct {
	ID     Label
	Caller memory.FuncID

	// Callee is the callee of a direct call, memory.NoFunc otherwise
	Callee memory.FuncID

	// FunPtr is the called function pointer of an indirect call
	FunPtr memory.NodeID

	// VTablePtr points to the vtables of the receiver of a virtual call. VSlot is the index of the called virtual
	// function in the vtable and VName its name, which may be empty.
	VTablePtr memory.NodeID
	VSlot     int
	VName     string

	// Actuals are the value nodes of the actual arguments
	Actuals []memory.NodeID

	// Ret is the value node receiving the value returned by the call, or memory.InvalidID
	Ret memory.NodeID

	// Variadic is true if the call site passes variadic arguments
	Variadic bool

	// Fork is true for thread spawn sites
	Fork bool
}

// IsDirect returns true if the callee is known statically
func (cs *CallSite) IsDirect() bool { return cs.Callee != memory.NoFunc }

// IsVirtual returns true for virtual calls
func (cs *CallSite) IsVirtual() bool { return !cs.IsDirect() && cs.VTablePtr != memory.InvalidID }

// AddFunction adds a function with its parameter nodes and return node, which must already be in the graph. If obj
// is not nil, it is bound to the function. A vararg node is created for variadic functions.
func (g *Graph) AddFunction(name string, obj *memory.MemObj, formals []memory.NodeID, ret memory.NodeID,
	variadic bool) *Function {
	if _, ok := g.funcByName[name]; ok {
		invariant("duplicate function %q", name)
	}
	for _, f := range formals {
		g.Node(f)
	}
	fn := &Function{
		ID:       len(g.functions),
		Name:     name,
		Obj:      memory.InvalidID,
		Formals:  formals,
		Ret:      ret,
		Vararg:   memory.InvalidID,
		Variadic: variadic,
	}
	if ret != memory.InvalidID {
		n := g.Node(ret)
		if n.kind == ValNode {
			n.kind = RetNode
		}
		n.fn = fn.ID
	}
	if obj != nil {
		obj.BindFunc(fn.ID)
		fn.Obj = obj.ID()
	}
	if variadic {
		id := g.Symbols.IDFor(name + ".vararg")
		g.AddNode(id, VarargNode).fn = fn.ID
		fn.Vararg = id
	}
	g.functions = append(g.functions, fn)
	g.funcByName[name] = fn.ID
	return fn
}

// Function returns the function with ID id
func (g *Graph) Function(id memory.FuncID) *Function {
	if id < 0 || id >= len(g.functions) {
		invariant("unknown function %d", id)
	}
	return g.functions[id]
}

// FunctionByName returns the function named name
func (g *Graph) FunctionByName(name string) (*Function, bool) {
	id, ok := g.funcByName[name]
	if !ok {
		return nil, false
	}
	return g.functions[id], true
}

// Functions returns all the functions in ID order
func (g *Graph) Functions() []*Function {
	return g.functions
}

// FunctionOfObj returns the function of the function object o, or nil if o is not a function object
func (g *Graph) FunctionOfObj(o memory.NodeID) *Function {
	n := g.Node(o)
	if n.obj == nil || !n.obj.IsFunction() || n.obj.Func() == memory.NoFunc {
		return nil
	}
	return g.functions[n.obj.Func()]
}

// AddCallSite registers a call site. It panics if the label is already used by another call site or if a node of the
// call site is not in the graph. Edges of direct calls are added by the builder.
func (g *Graph) AddCallSite(cs *CallSite) *CallSite {
	if cs.ID == NoLabel {
		invariant("call site has no label")
	}
	if _, ok := g.callSites[cs.ID]; ok {
		invariant("duplicate call site %d", cs.ID)
	}
	g.Function(cs.Caller)
	if cs.IsDirect() {
		g.Function(cs.Callee)
	} else if cs.VTablePtr != memory.InvalidID {
		g.Node(cs.VTablePtr)
	} else {
		g.Node(cs.FunPtr)
	}
	for _, a := range cs.Actuals {
		g.Node(a)
	}
	if cs.Ret != memory.InvalidID {
		g.Node(cs.Ret)
	}
	g.callSites[cs.ID] = cs
	g.siteOrder = append(g.siteOrder, cs.ID)
	return cs
}

// CallSite returns the call site with label id
func (g *Graph) CallSite(id Label) (*CallSite, bool) {
	cs, ok := g.callSites[id]
	return cs, ok
}

// CallSites returns all the call sites ordered by label
func (g *Graph) CallSites() []*CallSite {
	labels := make([]Label, len(g.siteOrder))
	copy(labels, g.siteOrder)
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	res := make([]*CallSite, len(labels))
	for i, l := range labels {
		res[i] = g.callSites[l]
	}
	return res
}

// IndirectCallSites returns the call sites whose callees are resolved by the analysis, ordered by label
func (g *Graph) IndirectCallSites() []*CallSite {
	var res []*CallSite
	for _, cs := range g.CallSites() {
		if !cs.IsDirect() {
			res = append(res, cs)
		}
	}
	return res
}

// NewDirectCallSite returns a call site of caller calling callee
func NewDirectCallSite(id Label, caller, callee memory.FuncID, actuals []memory.NodeID,
	ret memory.NodeID) *CallSite {
	return &CallSite{ID: id, Caller: caller, Callee: callee, FunPtr: memory.InvalidID,
		VTablePtr: memory.InvalidID, Actuals: actuals, Ret: ret}
}

// NewIndirectCallSite returns a call site of caller calling the function pointer fptr
func NewIndirectCallSite(id Label, caller memory.FuncID, fptr memory.NodeID, actuals []memory.NodeID,
	ret memory.NodeID) *CallSite {
	return &CallSite{ID: id, Caller: caller, Callee: memory.NoFunc, FunPtr: fptr,
		VTablePtr: memory.InvalidID, Actuals: actuals, Ret: ret}
}

// NewVirtualCallSite returns a call site of caller calling the virtual function at slot of the vtables pointed to
// by vtptr
func NewVirtualCallSite(id Label, caller memory.FuncID, vtptr memory.NodeID, slot int, name string,
	actuals []memory.NodeID, ret memory.NodeID) *CallSite {
	return &CallSite{ID: id, Caller: caller, Callee: memory.NoFunc, FunPtr: memory.InvalidID,
		VTablePtr: vtptr, VSlot: slot, VName: name, Actuals: actuals, Ret: ret}
}
