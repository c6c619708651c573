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

	"github.com/awslabs/ar-go-pta/analysis/memory"
)

// EdgeKind is the kind of an assignment edge
type EdgeKind int

const (
	// Addr is dst = &src, where src is an object
	Addr EdgeKind = iota
	// Copy is dst = src
	Copy
	// Load is dst = *src
	Load
	// Store is *dst = src
	Store
	// NormalGep is dst = &src->f for a constant field f
	NormalGep
	// VariantGep is dst = &src[i] for an unknown offset i
	VariantGep
	// Call binds an actual argument (src) to a formal parameter (dst)
	Call
	// Ret binds the return value of a function (src) to the value of a call site (dst)
	Ret
	// ThreadFork binds an argument of a thread spawn site to a formal parameter of the spawned routine
	ThreadFork
	// ThreadJoin binds the return value of a spawned routine to the value of a join site
	ThreadJoin

	numEdgeKinds
)

// AllEdgeKinds lists the edge kinds in order
var AllEdgeKinds = []EdgeKind{Addr, Copy, Load, Store, NormalGep, VariantGep, Call, Ret, ThreadFork, ThreadJoin}

func (k EdgeKind) String() string {
	switch k {
	case Addr:
		return "addr"
	case Copy:
		return "copy"
	case Load:
		return "load"
	case Store:
		return "store"
	case NormalGep:
		return "gep"
	case VariantGep:
		return "variant-gep"
	case Call:
		return "call"
	case Ret:
		return "ret"
	case ThreadFork:
		return "fork"
	case ThreadJoin:
		return "join"
	default:
		return fmt.Sprintf("edgekind(%d)", int(k))
	}
}

// ParseEdgeKind returns the edge kind named s
func ParseEdgeKind(s string) (EdgeKind, bool) {
	for _, k := range AllEdgeKinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// NeedsLabel returns true for the kinds whose edges must be labelled by their program point
func (k EdgeKind) NeedsLabel() bool {
	switch k {
	case Store, Call, Ret, ThreadFork, ThreadJoin:
		return true
	}
	return false
}

// IsCopyLike returns true for the kinds that the solver treats as copies
func (k EdgeKind) IsCopyLike() bool {
	switch k {
	case Copy, Call, Ret, ThreadFork, ThreadJoin:
		return true
	}
	return false
}

// Label identifies a program point: a call site, a store instruction, a spawn site...
// Labels are positive; NoLabel marks unlabelled edges.
type Label int

// NoLabel is the label of unlabelled edges
const NoLabel Label = 0

// Edge is an edge of the assignment graph
type Edge struct {
	id    int
	kind  EdgeKind
	src   memory.NodeID
	dst   memory.NodeID
	label Label

	// ap is the access path of NormalGep and VariantGep edges
	ap memory.AccessPath
}

// ID returns the index of the edge in creation order
func (e *Edge) ID() int { return e.id }

// Kind returns the kind of the edge
func (e *Edge) Kind() EdgeKind { return e.kind }

// Src returns the source node ID
func (e *Edge) Src() memory.NodeID { return e.src }

// Dst returns the destination node ID
func (e *Edge) Dst() memory.NodeID { return e.dst }

// Label returns the label of the edge, or NoLabel
func (e *Edge) Label() Label { return e.label }

// AccessPath returns the access path of a gep edge
func (e *Edge) AccessPath() memory.AccessPath { return e.ap }

func (e *Edge) String() string {
	s := fmt.Sprintf("%d -%s-> %d", e.src, e.kind, e.dst)
	if e.kind == NormalGep || e.kind == VariantGep {
		s += fmt.Sprintf(" [%s]", e.ap)
	}
	if e.label != NoLabel {
		s += fmt.Sprintf(" @%d", e.label)
	}
	return s
}

type edgeKey struct {
	kind   EdgeKind
	src    memory.NodeID
	dst    memory.NodeID
	label  Label
	offset int
}

func keyOf(kind EdgeKind, src, dst memory.NodeID, label Label, ap memory.AccessPath) edgeKey {
	k := edgeKey{kind: kind, src: src, dst: dst, label: label}
	if kind == NormalGep {
		k.offset = ap.Offset()
	}
	return k
}
