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
	"sort"

	"github.com/awslabs/ar-go-pta/analysis/memory"
	"github.com/awslabs/ar-go-pta/analysis/pag"
)

type newCallEdge struct {
	cs     *pag.CallSite
	callee *pag.Function
}

// updateCallGraph resolves the indirect and virtual call sites with the current points-to sets, connects the new
// callees to their call sites and returns true if a new call edge was found
func (a *Analysis) updateCallGraph() bool {
	if a.budgetExceeded {
		return false
	}
	var newEdges []newCallEdge
	for _, cs := range a.pag.IndirectCallSites() {
		var callees []memory.FuncID
		if cs.IsVirtual() {
			callees = a.virtualCallees(cs)
		} else {
			callees = a.indirectCallees(cs)
		}
		for _, f := range callees {
			if a.callGraph.NumIndirectEdges() >= a.config.IndirectCallLimit {
				a.logger.Warnf("Resolved Indirect Call Edges are Out-Of-Budget, please increase the limit")
				a.budgetExceeded = true
				break
			}
			if a.callGraph.AddIndirect(cs, f) {
				a.logger.Debugf("resolved call site %d in %s to %s", cs.ID, a.pag.Function(cs.Caller).Name,
					a.pag.Function(f).Name)
				newEdges = append(newEdges, newCallEdge{cs: cs, callee: a.pag.Function(f)})
			}
		}
		if a.budgetExceeded {
			break
		}
	}
	var srcs []memory.NodeID
	for _, e := range newEdges {
		srcs = a.connectCallerToCallee(e.cs, e.callee, srcs)
	}
	for _, s := range srcs {
		a.push(s)
	}
	return len(newEdges) > 0
}

// indirectCallees returns the functions pointed to by the function pointer of cs whose parameters match the
// arguments of cs
func (a *Analysis) indirectCallees(cs *pag.CallSite) []memory.FuncID {
	var res []memory.FuncID
	for _, o := range a.PointsTo(cs.FunPtr).Slice() {
		fn := a.pag.FunctionOfObj(o)
		if fn == nil || !matchArgs(cs, fn) {
			continue
		}
		res = append(res, fn.ID)
	}
	sort.Ints(res)
	return res
}

// virtualCallees returns the virtual functions the class hierarchy resolves for the vtables pointed to by cs
func (a *Analysis) virtualCallees(cs *pag.CallSite) []memory.FuncID {
	if a.cha == nil {
		return nil
	}
	vtables := a.PointsTo(cs.VTablePtr).Slice()
	if len(vtables) == 0 {
		return nil
	}
	return a.cha.VirtualFunctions(cs, vtables)
}

// matchArgs returns true if fn can be called at cs: fn is variadic, cs spawns a thread or the numbers of arguments
// and parameters are equal
func matchArgs(cs *pag.CallSite, fn *pag.Function) bool {
	if fn.Variadic || cs.Fork {
		return true
	}
	return len(cs.Actuals) == fn.NumParams()
}

// connectCallerToCallee adds the copy edges binding the return value and the parameters of fn at cs. The sources of
// the new edges are appended to srcs.
func (a *Analysis) connectCallerToCallee(cs *pag.CallSite, fn *pag.Function, srcs []memory.NodeID) []memory.NodeID {
	rep := a.consCG.RepOf
	if fn.HeapAlloc && cs.Ret != memory.InvalidID {
		srcs = a.heapAllocViaIndirectCall(cs, srcs)
	}
	if !cs.Fork && fn.Ret != memory.InvalidID && cs.Ret != memory.InvalidID {
		if a.addCopyEdge(fn.Ret, cs.Ret) {
			srcs = append(srcs, rep(fn.Ret))
		}
	}
	i := 0
	for ; i < len(cs.Actuals) && i < len(fn.Formals); i++ {
		if a.addCopyEdge(cs.Actuals[i], fn.Formals[i]) {
			srcs = append(srcs, rep(cs.Actuals[i]))
		}
	}
	if i < len(cs.Actuals) {
		if fn.Variadic {
			for ; i < len(cs.Actuals); i++ {
				if a.addCopyEdge(cs.Actuals[i], fn.Vararg) {
					srcs = append(srcs, rep(cs.Actuals[i]))
				}
			}
		} else {
			a.logger.Warnf("too many args to non-vararg func %s at call site %d", fn.Name, cs.ID)
		}
	}
	return srcs
}

// heapAllocViaIndirectCall makes the return value of cs point to a heap object allocated at cs
func (a *Analysis) heapAllocViaIndirectCall(cs *pag.CallSite, srcs []memory.NodeID) []memory.NodeID {
	val, ok := a.heapDummies[cs.ID]
	if !ok {
		val = a.pag.AddDummyValNode()
		obj := a.pag.AddDummyObjNode(nil)
		a.consCG.AddNode(val)
		a.consCG.AddNode(obj)
		a.pts.Add(val, obj)
		a.heapDummies[cs.ID] = val
	}
	if a.addCopyEdge(val, cs.Ret) {
		srcs = append(srcs, a.consCG.RepOf(val))
	}
	return srcs
}
