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
	"golang.org/x/tools/container/intsets"
)

// NodeState is the state of a node of the constraint graph with respect to the worklist
type NodeState int

const (
	// Unprocessed nodes have never been queued
	Unprocessed NodeState = iota
	// Queued nodes are in the worklist
	Queued
	// Stable nodes have been processed and are not in the worklist
	Stable
)

func (s NodeState) String() string {
	switch s {
	case Unprocessed:
		return "unprocessed"
	case Queued:
		return "queued"
	case Stable:
		return "stable"
	default:
		return "unknown"
	}
}

// worklist is a set of nodes popped in increasing ID order, which makes the solver deterministic
type worklist struct {
	queued intsets.Sparse
	states map[memory.NodeID]NodeState
}

func newWorklist() *worklist {
	return &worklist{states: map[memory.NodeID]NodeState{}}
}

func (w *worklist) push(n memory.NodeID) {
	if w.queued.Insert(n) {
		w.states[n] = Queued
	}
}

func (w *worklist) pop() (memory.NodeID, bool) {
	var n int
	if !w.queued.TakeMin(&n) {
		return 0, false
	}
	w.states[n] = Stable
	return n, true
}

func (w *worklist) isEmpty() bool {
	return w.queued.IsEmpty()
}

func (w *worklist) len() int {
	return w.queued.Len()
}

func (w *worklist) state(n memory.NodeID) NodeState {
	return w.states[n]
}
