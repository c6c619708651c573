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

// Package graphutil contains the strongly connected component algorithms used by the constraint graph and the call
// graph.
package graphutil

import (
	"sort"

	"github.com/yourbasic/graph"
)

// StronglyConnectedComponents is an implementation of Tarjan's strongly connected component (SCC) algorithm
// for generic nodes T, starting from the given roots only: nodes that are not reachable from a root are never visited.
// Successors returns a slice containing the targets of directed edges out from the given node.
// The order of SCCs is toposorted so that successors appear first.
//
// The traversal is iterative, so deep graphs do not grow the goroutine stack.
func StronglyConnectedComponents[T comparable](roots []T, successors func(T) []T) (sccs [][]T) {
	type frame struct {
		node  T
		succs []T
		next  int
	}
	stack := make([]T, 0)
	onStack := make(map[T]bool)
	index := make(map[T]int)
	lowlink := make(map[T]int)
	nextIndex := 0

	push := func(v T, frames []frame) []frame {
		index[v] = nextIndex
		lowlink[v] = nextIndex
		nextIndex++
		stack = append(stack, v)
		onStack[v] = true
		return append(frames, frame{node: v, succs: successors(v)})
	}

	for _, root := range roots {
		if _, ok := index[root]; ok {
			continue
		}
		frames := push(root, nil)
		for len(frames) > 0 {
			top := &frames[len(frames)-1]
			v := top.node
			if top.next < len(top.succs) {
				w := top.succs[top.next]
				top.next++
				if _, ok := index[w]; !ok {
					frames = push(w, frames)
				} else if onStack[w] && index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
				continue
			}
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].node
				if lowlink[v] < lowlink[parent] {
					lowlink[parent] = lowlink[v]
				}
			}
			if lowlink[v] == index[v] {
				scc := make([]T, 0)
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					scc = append(scc, w)
					if w == v {
						break
					}
				}
				sccs = append(sccs, scc)
			}
		}
	}
	return sccs
}

// Iterator adapts a graph over the integer nodes [0, order) to the yourbasic graph.Iterator interface.
// Nodes for which include returns false have no edges, and edges towards them are ignored.
type Iterator struct {
	order      int
	successors func(int) []int
	include    func(int) bool
}

// NewIterator returns an iterator over the nodes [0, order). include may be nil, in which case all nodes are part of
// the graph.
func NewIterator(order int, successors func(int) []int, include func(int) bool) *Iterator {
	if include == nil {
		include = func(int) bool { return true }
	}
	return &Iterator{order: order, successors: successors, include: include}
}

// Order implements graph.Iterator
func (it *Iterator) Order() int {
	return it.order
}

// Visit implements graph.Iterator
func (it *Iterator) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if v < 0 || v >= it.order || !it.include(v) {
		return false
	}
	for _, w := range it.successors(v) {
		if w < 0 || w >= it.order || !it.include(w) {
			continue
		}
		if do(w, 1) {
			return true
		}
	}
	return false
}

// CyclicComponents returns the strongly connected components of the graph of it that contain more than one node.
// Each component is sorted, and the components are sorted by their smallest node.
func CyclicComponents(it *Iterator) [][]int {
	var res [][]int
	for _, c := range graph.StrongComponents(it) {
		if len(c) < 2 {
			continue
		}
		sort.Ints(c)
		res = append(res, c)
	}
	SortComponents(res)
	return res
}

// SortComponents sorts components, whose nodes are already sorted, by their smallest node
func SortComponents(components [][]int) {
	sort.Slice(components, func(i, j int) bool { return components[i][0] < components[j][0] })
}
