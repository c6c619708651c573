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

import (
	"fmt"
	"strings"
)

// TypeKind is the shape of a Type
type TypeKind int

const (
	// ScalarType is any non-pointer leaf type (integers, floats, ...)
	ScalarType TypeKind = iota
	// PointerType is a pointer leaf type
	PointerType
	// StructType is an aggregate with an ordered list of fields
	StructType
	// ArrayType is an aggregate of Len elements of type Elem
	ArrayType
	// FunctionType is the type of function objects
	FunctionType
	// OpaqueType is a type whose layout is unknown. Opaque types have size zero.
	OpaqueType
)

func (k TypeKind) String() string {
	switch k {
	case ScalarType:
		return "scalar"
	case PointerType:
		return "pointer"
	case StructType:
		return "struct"
	case ArrayType:
		return "array"
	case FunctionType:
		return "function"
	case OpaqueType:
		return "opaque"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Type is the type model used to flatten objects into fields. The builder that produces the assignment graph is
// responsible for translating the types of the analyzed program into this model.
type Type struct {
	Name string
	Kind TypeKind

	// Size is the byte size of scalar and pointer types. It is ignored for other kinds.
	Size int

	// Fields are the fields of a struct type, in declaration order
	Fields []*Type

	// Elem and Len describe an array type
	Elem *Type
	Len  int
}

// NewScalar returns a scalar type of the given byte size
func NewScalar(name string, size int) *Type {
	return &Type{Name: name, Kind: ScalarType, Size: size}
}

// NewPointer returns a pointer type of the given byte size
func NewPointer(name string, size int) *Type {
	return &Type{Name: name, Kind: PointerType, Size: size}
}

// NewStruct returns a struct type with the given fields
func NewStruct(name string, fields ...*Type) *Type {
	return &Type{Name: name, Kind: StructType, Fields: fields}
}

// NewArray returns an array type of n elements of type elem
func NewArray(name string, elem *Type, n int) *Type {
	return &Type{Name: name, Kind: ArrayType, Elem: elem, Len: n}
}

// IsAggregate returns true for structs and arrays
func (t *Type) IsAggregate() bool {
	return t != nil && (t.Kind == StructType || t.Kind == ArrayType)
}

// ByteSize returns the size of the type in bytes. Fields are laid out without padding. Opaque and function types, as
// well as a nil type, have size zero.
func (t *Type) ByteSize() int {
	if t == nil {
		return 0
	}
	switch t.Kind {
	case ScalarType, PointerType:
		return t.Size
	case StructType:
		s := 0
		for _, f := range t.Fields {
			s += f.ByteSize()
		}
		return s
	case ArrayType:
		return t.Len * t.Elem.ByteSize()
	case FunctionType, OpaqueType:
		return 0
	default:
		invariant("cannot compute the size of type %s of unknown kind %s", t, t.Kind)
		return 0
	}
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Name != "" {
		return t.Name
	}
	switch t.Kind {
	case StructType:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case ArrayType:
		return fmt.Sprintf("[%d]%s", t.Len, t.Elem)
	default:
		return t.Kind.String()
	}
}
