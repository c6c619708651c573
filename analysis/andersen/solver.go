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

	"github.com/awslabs/ar-go-pta/analysis/config"
	"github.com/awslabs/ar-go-pta/analysis/consgraph"
	"github.com/awslabs/ar-go-pta/analysis/memory"
	"github.com/awslabs/ar-go-pta/analysis/pag"
	"github.com/awslabs/ar-go-pta/analysis/pts"
	"golang.org/x/exp/slices"
)

// solveWorklist collapses the cycles of the constraint graph and processes the worklist until it is empty, and
// starts over as long as processing added copy or gep edges that may have created new cycles.
func (a *Analysis) solveWorklist() {
	for {
		a.consCG.ResetDirectChanged()
		a.stats.SCCDetections++
		a.mergeSCCs(a.consCG.DetectSCCs())
		for !a.wl.isEmpty() {
			if a.lazyCycles {
				a.mergeLazyCycles()
			}
			n, ok := a.wl.pop()
			if !ok {
				break
			}
			a.processNode(n)
			if a.afterProcess != nil {
				a.afterProcess(n)
			}
		}
		if !a.consCG.DirectChanged() {
			return
		}
	}
}

// processNode propagates the points-to set of n along its edges
func (a *Analysis) processNode(n memory.NodeID) {
	if !a.consCG.IsRep(n) {
		return
	}
	a.stats.ProcessedNodes++
	if a.logger.Enabled(config.TraceLevel) {
		a.logger.Tracef("processing node %d (%s): %s", n, a.pag.Name(n), a.pts.Get(n))
	}
	a.collapsePWCNode(n)
	if !a.consCG.IsRep(n) {
		// merged during the collapse; the rep has been queued
		return
	}
	a.handleLoadStore(n)
	a.handleCopyGep(n)
	a.collapseFields()
}

// handleLoadStore adds a copy edge o -> v for every load n -> v, and a copy edge s -> o for every store s -> n, for
// every object o pointed to by n
func (a *Analysis) handleLoadStore(n memory.NodeID) {
	ptsN := a.pts.Get(n)
	if ptsN.IsEmpty() {
		return
	}
	for _, e := range slices.Clone(a.consCG.OutEdges(n, consgraph.Load)) {
		for _, o := range a.prop.Delta(e.ID, ptsN).Slice() {
			if a.isNonDereferenceable(o) {
				continue
			}
			if a.addCopyEdge(o, e.Dst) {
				a.push(o)
			}
		}
	}
	for _, e := range slices.Clone(a.consCG.InEdges(n, consgraph.Store)) {
		for _, o := range a.prop.Delta(e.ID, ptsN).Slice() {
			if a.isNonDereferenceable(o) {
				continue
			}
			if a.addCopyEdge(e.Src, o) {
				a.push(e.Src)
			}
		}
	}
}

// isNonDereferenceable returns true for the objects that loads and stores ignore
func (a *Analysis) isNonDereferenceable(o memory.NodeID) bool {
	if o == memory.ConstantObj {
		return true
	}
	obj := a.pag.Node(o).Obj()
	return obj != nil && obj.IsConstant()
}

// handleCopyGep propagates the points-to set of n along its copy and gep edges
func (a *Analysis) handleCopyGep(n memory.NodeID) {
	ptsN := a.pts.Get(n)
	if ptsN.IsEmpty() {
		return
	}
	for _, e := range slices.Clone(a.consCG.OutEdges(n, consgraph.Copy)) {
		a.processCopy(e, ptsN)
	}
	for _, kind := range []consgraph.EdgeKind{consgraph.NormalGep, consgraph.VariantGep} {
		for _, e := range slices.Clone(a.consCG.OutEdges(n, kind)) {
			a.processGep(e, a.prop.Delta(e.ID, ptsN))
		}
	}
}

func (a *Analysis) processCopy(e *consgraph.Edge, ptsSrc *pts.Set) {
	if a.lazyCycles && !a.lcdChecked[e.ID] && ptsSrc.Equals(a.pts.Get(e.Dst)) {
		a.lcdChecked[e.ID] = true
		a.lcdCandidates[e.Dst] = true
	}
	if a.pts.Union(e.Dst, a.prop.Delta(e.ID, ptsSrc)) {
		a.push(e.Dst)
	}
}

// processGep adds to the destination of e the field objects of the objects in delta
func (a *Analysis) processGep(e *consgraph.Edge, delta *pts.Set) {
	res := pts.NewSet()
	for _, o := range delta.Slice() {
		if memory.IsBlackHoleOrConstant(o) {
			res.Add(o)
			continue
		}
		node := a.pag.Node(o)
		obj := node.Obj()
		if obj == nil {
			invariant("gep edge %s propagates non-object node %d", e, o)
		}
		switch e.Kind {
		case consgraph.VariantGep:
			if !obj.IsFieldInsensitive() {
				obj.SetFieldInsensitive()
				a.enqueueCollapse(obj.ID())
			}
			res.Add(obj.ID())
		case consgraph.NormalGep:
			if obj.IsFieldInsensitive() {
				res.Add(obj.ID())
				continue
			}
			if node.Kind() == pag.DummyObjNode {
				res.Add(o)
				continue
			}
			res.Add(a.fieldObject(o, e.Offset))
		default:
			invariant("unexpected gep edge kind %s", e.Kind)
		}
	}
	if a.pts.Union(e.Dst, res) {
		a.push(e.Dst)
	}
}

// fieldObject returns the field object at offset of o, adding it to the constraint graph if it is new
func (a *Analysis) fieldObject(o memory.NodeID, offset int) memory.NodeID {
	before := a.pag.MaxID()
	f := a.pag.GepObjNode(o, offset)
	if f >= before {
		a.stats.FieldObjects++
		a.logger.Tracef("new field object %d (%s)", f, a.pag.Name(f))
	}
	if !a.consCG.HasNode(f) {
		a.consCG.AddNode(f)
	}
	return f
}

// mergeSCCs merges each cycle into its smallest node, which becomes the representative of the cycle
func (a *Analysis) mergeSCCs(sccs [][]memory.NodeID) {
	for _, scc := range sccs {
		rep := scc[0]
		for _, m := range scc[1:] {
			a.pts.UnionFrom(rep, m)
		}
		if a.consCG.MergeSCC(scc, rep) {
			a.logger.Debugf("merged positive weight cycle %v into %d", scc, rep)
		} else {
			a.logger.Debugf("merged cycle %v into %d", scc, rep)
		}
		a.stats.MergedNodes += len(scc) - 1
		a.push(rep)
	}
}

// mergeLazyCycles collapses the cycles that go through the destinations of copy edges whose endpoints had equal
// points-to sets
func (a *Analysis) mergeLazyCycles() {
	if len(a.lcdCandidates) == 0 {
		return
	}
	roots := make([]memory.NodeID, 0, len(a.lcdCandidates))
	for n := range a.lcdCandidates {
		roots = append(roots, n)
	}
	sort.Ints(roots)
	a.lcdCandidates = map[memory.NodeID]bool{}
	a.stats.SCCDetections++
	a.mergeSCCs(a.consCG.DetectSCCsFrom(roots))
}
