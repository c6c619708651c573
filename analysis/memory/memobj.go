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

package memory

import "fmt"

// ObjKind is the origin of an abstract memory object
type ObjKind int

const (
	// HeapObj is an object allocated on the heap
	HeapObj ObjKind = iota
	// StackObj is a local variable whose address is taken
	StackObj
	// GlobalObj is a global variable
	GlobalObj
	// StaticObj is a static variable local to a function
	StaticObj
	// FunctionObj is the object of a function, the target of function pointers
	FunctionObj
	// ConstObj is constant data
	ConstObj
	// DummyObj is a placeholder for entities that are not modeled, or synthesized by the analysis
	DummyObj
	// BlackHoleObj is the black hole object, which aliases everything
	BlackHoleObj
)

func (k ObjKind) String() string {
	switch k {
	case HeapObj:
		return "heap"
	case StackObj:
		return "stack"
	case GlobalObj:
		return "global"
	case StaticObj:
		return "static"
	case FunctionObj:
		return "function"
	case ConstObj:
		return "constant"
	case DummyObj:
		return "dummy"
	case BlackHoleObj:
		return "blackhole"
	default:
		return fmt.Sprintf("objkind(%d)", int(k))
	}
}

// MemObj holds the metadata of an abstract memory object. Its ID is the ID of the base object node; the field
// objects created by the solver share the same MemObj.
type MemObj struct {
	id        NodeID
	name      string
	kind      ObjKind
	typ       *Type
	maxFields int
	constant  bool
	fn        FuncID

	// fieldInsensitive is monotone: once set, it is never unset
	fieldInsensitive bool
}

// ID returns the node ID of the base object
func (o *MemObj) ID() NodeID { return o.id }

// Name returns the name of the entity the object was created for
func (o *MemObj) Name() string { return o.name }

// Kind returns the kind of the object
func (o *MemObj) Kind() ObjKind { return o.kind }

// Type returns the type of the object, possibly nil
func (o *MemObj) Type() *Type { return o.typ }

// MaxFieldOffsetLimit returns the number of field slots of the object. Offsets of field objects are taken modulo
// this limit.
func (o *MemObj) MaxFieldOffsetLimit() int { return o.maxFields }

// IsFieldInsensitive returns true if all the fields of the object are represented by the base object
func (o *MemObj) IsFieldInsensitive() bool { return o.fieldInsensitive }

// SetFieldInsensitive makes the object field-insensitive. This cannot be undone.
func (o *MemObj) SetFieldInsensitive() { o.fieldInsensitive = true }

// IsConstant returns true if the object holds constant data
func (o *MemObj) IsConstant() bool { return o.constant || o.kind == ConstObj }

// IsFunction returns true if the object is the object of a function
func (o *MemObj) IsFunction() bool { return o.kind == FunctionObj }

// IsHeap returns true if the object is heap allocated
func (o *MemObj) IsHeap() bool { return o.kind == HeapObj }

// IsBlackHoleOrConstant returns true for the two reserved objects
func (o *MemObj) IsBlackHoleOrConstant() bool { return IsBlackHoleOrConstant(o.id) }

// Func returns the function of a function object, or NoFunc
func (o *MemObj) Func() FuncID { return o.fn }

// BindFunc binds a function object to its function
func (o *MemObj) BindFunc(fn FuncID) {
	if o.kind != FunctionObj {
		invariant("cannot bind function %d to %s object %s", fn, o.kind, o)
	}
	o.fn = fn
}

func (o *MemObj) String() string {
	if o.name != "" {
		return o.name
	}
	return idString(o.id)
}
