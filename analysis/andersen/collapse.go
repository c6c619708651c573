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
	"github.com/awslabs/ar-go-pta/analysis/memory"
)

func (a *Analysis) enqueueCollapse(base memory.NodeID) {
	if a.toCollapseQueued[base] {
		return
	}
	a.toCollapseQueued[base] = true
	a.toCollapse = append(a.toCollapse, base)
}

// collapseFields collapses the objects that have been set field-insensitive by variant gep edges
func (a *Analysis) collapseFields() {
	for len(a.toCollapse) > 0 {
		base := a.toCollapse[0]
		a.toCollapse = a.toCollapse[1:]
		delete(a.toCollapseQueued, base)
		if a.collapseField(base) {
			a.reanalyze = true
		}
	}
}

// collapsePWCNode collapses every object pointed to by n when n represents a positive weight cycle. Propagating
// field objects around such a cycle would create a new field object on every turn.
func (a *Analysis) collapsePWCNode(n memory.NodeID) {
	if a.consCG.IsPWC(n) && a.collapseNodePts(n) {
		a.reanalyze = true
	}
}

// collapseNodePts collapses the objects pointed to by n that are still field-sensitive
func (a *Analysis) collapseNodePts(n memory.NodeID) bool {
	changed := false
	for _, o := range a.pts.Get(n).Slice() {
		if a.pag.IsFieldInsensitive(o) {
			continue
		}
		if a.collapseField(o) {
			changed = true
		}
	}
	return changed
}

// collapseField makes the object of o field-insensitive. Every pointer to a field of the object is made to point to
// the base object instead, and the field nodes are merged into the base node.
func (a *Analysis) collapseField(o memory.NodeID) bool {
	if memory.IsBlackHoleOrConstant(o) {
		return false
	}
	node := a.pag.Node(o)
	obj := node.Obj()
	if obj == nil {
		invariant("collapsing node %d, which is not an object", o)
	}
	obj.SetFieldInsensitive()
	base := obj.ID()
	a.stats.CollapsedObjs++
	a.logger.Debugf("collapsing fields of object %d (%s)", base, a.pag.Name(base))

	changed := false
	baseRep := a.consCG.RepOf(base)
	for _, f := range a.pag.FieldObjNodes(base) {
		if f == base {
			continue
		}
		for _, p := range a.pts.Rev(f).Slice() {
			a.pts.Remove(p, f)
			a.pts.Add(p, base)
			a.push(p)
			changed = true
		}
		if !a.consCG.HasNode(f) {
			continue
		}
		fieldRep := a.consCG.RepOf(f)
		if fieldRep != baseRep {
			if a.pts.UnionFrom(baseRep, fieldRep) {
				changed = true
			}
			a.consCG.MergeNode(fieldRep, baseRep)
			a.stats.MergedNodes++
			a.push(baseRep)
		}
	}
	if a.consCG.IsPWC(baseRep) && a.collapseNodePts(baseRep) {
		changed = true
	}
	return changed
}
