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
	"sort"
	"strings"

	"github.com/awslabs/ar-go-pta/analysis/memory"
	"github.com/awslabs/ar-go-pta/analysis/pag"
)

// A ClassHierarchy resolves virtual calls
type ClassHierarchy interface {
	// VirtualFunctions returns the functions a virtual call site may call when its receiver points to vtables.
	// The result is in increasing order.
	VirtualFunctions(cs *pag.CallSite, vtables []memory.NodeID) []memory.FuncID
}

// abiSuffix is appended by some compilers to the demangled names of virtual functions
const abiSuffix = "[abi:cxx11]"

// VTableIndex is a ClassHierarchy listing the virtual functions of every vtable object
type VTableIndex struct {
	pag *pag.Graph
	// slots maps a vtable object to its virtual functions, memory.NoFunc marking empty slots
	slots map[memory.NodeID][]memory.FuncID
}

// NewVTableIndex returns an empty vtable index for the functions of p
func NewVTableIndex(p *pag.Graph) *VTableIndex {
	return &VTableIndex{pag: p, slots: map[memory.NodeID][]memory.FuncID{}}
}

// AddVTable registers the virtual functions of the vtable object vtbl
func (v *VTableIndex) AddVTable(vtbl memory.NodeID, slots []memory.FuncID) {
	v.slots[v.pag.BaseObjNode(vtbl)] = slots
}

// IsVTable returns true if o is an object, or a field of an object, registered as a vtable
func (v *VTableIndex) IsVTable(o memory.NodeID) bool {
	if !v.pag.HasNode(o) || v.pag.Node(o).Obj() == nil {
		return false
	}
	_, ok := v.slots[v.pag.BaseObjNode(o)]
	return ok
}

// VirtualFunctions returns the functions at the slot of cs in vtables whose arity and name match the call site
func (v *VTableIndex) VirtualFunctions(cs *pag.CallSite, vtables []memory.NodeID) []memory.FuncID {
	found := map[memory.FuncID]bool{}
	for _, vt := range vtables {
		if !v.IsVTable(vt) {
			continue
		}
		slots := v.slots[v.pag.BaseObjNode(vt)]
		if cs.VSlot < 0 || cs.VSlot >= len(slots) || slots[cs.VSlot] == memory.NoFunc {
			continue
		}
		callee := v.pag.Function(slots[cs.VSlot])
		if !matchesArity(cs, callee) || !matchesName(cs.VName, callee.Name) {
			continue
		}
		found[callee.ID] = true
	}
	res := make([]memory.FuncID, 0, len(found))
	for f := range found {
		res = append(res, f)
	}
	sort.Ints(res)
	return res
}

func matchesArity(cs *pag.CallSite, callee *pag.Function) bool {
	return len(cs.Actuals) == callee.NumParams() || (cs.Variadic && callee.Variadic)
}

// matchesName returns true if the function named callee may be the target of a virtual call to name. An empty name
// matches every function and a destructor matches every destructor.
func matchesName(name, callee string) bool {
	if name == "" {
		return true
	}
	name = methodName(name)
	callee = methodName(callee)
	if strings.HasPrefix(name, "~") {
		return strings.HasPrefix(callee, "~")
	}
	return name == callee
}

// methodName strips the class qualifier and the abi suffix of a function name
func methodName(name string) string {
	if i := strings.LastIndex(name, abiSuffix); i >= 0 {
		name = name[:i] + name[i+len(abiSuffix):]
	}
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	return name
}
