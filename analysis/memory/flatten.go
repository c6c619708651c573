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

// FieldInfo describes one slot of a flattened type.
type FieldInfo struct {
	// Index is the flattened index of the field
	Index int

	// ByteOffset is the offset of the field from the start of the object, for the first element of every enclosing
	// array
	ByteOffset int

	// Type is the leaf type stored in the field
	Type *Type

	// Strides lists the (element count, stride) pairs of the arrays enclosing the field, innermost first
	Strides []NumStride
}

// TypeInfo is the flattened layout of a type
type TypeInfo struct {
	// Fields are the flattened leaf fields
	Fields []FieldInfo

	// FieldIndex maps the index of a direct field of a struct to the flattened index of its first leaf. For
	// arrays, it contains a single entry, 0.
	FieldIndex []int
}

// NumFields returns the number of flattened fields
func (ti *TypeInfo) NumFields() int {
	return len(ti.Fields)
}

// flatten computes the layout of t. Arrays are not expanded: every element of an array shares the fields of the
// first element, with one additional (count, stride) pair recording the array shape.
func flatten(t *Type) *TypeInfo {
	if t == nil {
		return &TypeInfo{Fields: []FieldInfo{{Index: 0}}, FieldIndex: []int{0}}
	}
	switch t.Kind {
	case ScalarType, PointerType, FunctionType, OpaqueType:
		return &TypeInfo{Fields: []FieldInfo{{Index: 0, Type: t}}, FieldIndex: []int{0}}
	case StructType:
		info := &TypeInfo{FieldIndex: make([]int, len(t.Fields))}
		byteOffset := 0
		for i, ft := range t.Fields {
			info.FieldIndex[i] = len(info.Fields)
			sub := flatten(ft)
			for _, sf := range sub.Fields {
				info.Fields = append(info.Fields, FieldInfo{
					Index:      len(info.Fields),
					ByteOffset: byteOffset + sf.ByteOffset,
					Type:       sf.Type,
					Strides:    sf.Strides,
				})
			}
			byteOffset += ft.ByteSize()
		}
		return info
	case ArrayType:
		if t.Elem == nil {
			invariant("array type %s has no element type", t)
		}
		info := &TypeInfo{FieldIndex: []int{0}}
		sub := flatten(t.Elem)
		pair := NumStride{Num: t.Len, Stride: t.Elem.ByteSize()}
		for _, sf := range sub.Fields {
			strides := make([]NumStride, 0, len(sf.Strides)+1)
			strides = append(strides, sf.Strides...)
			strides = append(strides, pair)
			info.Fields = append(info.Fields, FieldInfo{
				Index:      sf.Index,
				ByteOffset: sf.ByteOffset,
				Type:       sf.Type,
				Strides:    strides,
			})
		}
		return info
	default:
		invariant("cannot flatten type %s of unknown kind %s", t, t.Kind)
		return nil
	}
}

// matchesOffset returns true if byteOffset designates the field f in some element of its enclosing arrays.
func (f FieldInfo) matchesOffset(byteOffset int) bool {
	delta := byteOffset - f.ByteOffset
	if delta < 0 {
		return false
	}
	// outermost arrays have the largest strides
	for i := len(f.Strides) - 1; i >= 0 && delta > 0; i-- {
		p := f.Strides[i]
		if p.Stride <= 0 {
			continue
		}
		k := delta / p.Stride
		if k >= p.Num {
			return false
		}
		delta -= k * p.Stride
	}
	return delta == 0
}
