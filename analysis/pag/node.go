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

// NodeKind is the kind of a node of the assignment graph
type NodeKind int

const (
	// ValNode is a top-level pointer value
	ValNode NodeKind = iota
	// ObjNode is the base node of an abstract object, which also represents the whole object when it is
	// field-insensitive
	ObjNode
	// GepObjNode is the node of a field of an object
	GepObjNode
	// FIObjNode is the base node of an object that is field-insensitive from its creation
	FIObjNode
	// DummyObjNode is a placeholder object
	DummyObjNode
	// RetNode is the unique return value of a function
	RetNode
	// VarargNode receives all the variadic arguments of a function
	VarargNode
)

func (k NodeKind) String() string {
	switch k {
	case ValNode:
		return "value"
	case ObjNode:
		return "object"
	case GepObjNode:
		return "field"
	case FIObjNode:
		return "fi-object"
	case DummyObjNode:
		return "dummy"
	case RetNode:
		return "ret"
	case VarargNode:
		return "vararg"
	default:
		return fmt.Sprintf("nodekind(%d)", int(k))
	}
}

// IsObject returns true for the kinds of address-taken nodes
func (k NodeKind) IsObject() bool {
	switch k {
	case ObjNode, GepObjNode, FIObjNode, DummyObjNode:
		return true
	}
	return false
}

// Node is a node of the assignment graph
type Node struct {
	id   memory.NodeID
	kind NodeKind

	// obj is the memory object of object nodes. Field objects share the object of their base.
	obj *memory.MemObj

	// offset is the field index of field objects
	offset int

	// fn is the function of return and vararg nodes
	fn memory.FuncID

	in  [numEdgeKinds][]*Edge
	out [numEdgeKinds][]*Edge
}

// ID returns the ID of the node
func (n *Node) ID() memory.NodeID { return n.id }

// Kind returns the kind of the node
func (n *Node) Kind() NodeKind { return n.kind }

// IsTopLevel returns true if the node is a pointer whose points-to set is computed by propagation. The other nodes
// are address-taken: they only appear in points-to sets (their own points-to set is the content of the object).
func (n *Node) IsTopLevel() bool { return !n.kind.IsObject() }

// Obj returns the memory object of an object node, or nil
func (n *Node) Obj() *memory.MemObj { return n.obj }

// Offset returns the field index of a field object; it is 0 for every other node
func (n *Node) Offset() int { return n.offset }

// Func returns the function of return and vararg nodes, or memory.NoFunc
func (n *Node) Func() memory.FuncID { return n.fn }

// BaseID returns the ID of the base object of an object node
func (n *Node) BaseID() memory.NodeID {
	if n.obj == nil {
		invariant("node %d of kind %s has no base object", n.id, n.kind)
	}
	return n.obj.ID()
}
