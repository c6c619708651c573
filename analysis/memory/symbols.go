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

	"github.com/awslabs/ar-go-pta/analysis/config"
)

// SymbolTable maps the entities of the analyzed program to node IDs and abstract objects. It is the only allocator
// of node IDs.
type SymbolTable struct {
	config *config.Config
	logger *config.LogGroup

	nextID NodeID

	// values and objects map entity names to node IDs
	values  map[string]NodeID
	objects map[string]NodeID

	objs  map[NodeID]*MemObj
	names map[NodeID]string

	typeInfos map[*Type]*TypeInfo
}

// NewSymbolTable returns a symbol table containing only the reserved symbols.
func NewSymbolTable(cfg *config.Config, logger *config.LogGroup) *SymbolTable {
	st := &SymbolTable{
		config:    cfg,
		logger:    logger,
		nextID:    firstFreeID,
		values:    map[string]NodeID{},
		objects:   map[string]NodeID{},
		objs:      map[NodeID]*MemObj{},
		names:     map[NodeID]string{},
		typeInfos: map[*Type]*TypeInfo{},
	}
	st.values["nullptr"] = NullPtr
	st.names[NullPtr] = "nullptr"
	st.values["blkptr"] = BlkPtr
	st.names[BlkPtr] = "blkptr"
	st.addObj(&MemObj{id: BlackHole, name: "blackhole", kind: BlackHoleObj, fn: NoFunc, fieldInsensitive: true})
	st.addObj(&MemObj{id: ConstantObj, name: "constobj", kind: ConstObj, fn: NoFunc, constant: true,
		fieldInsensitive: true})
	return st
}

func (st *SymbolTable) addObj(obj *MemObj) {
	st.objs[obj.id] = obj
	st.names[obj.id] = obj.name
	if obj.name != "" {
		st.objects[obj.name] = obj.id
	}
}

// NewID allocates a fresh node ID
func (st *SymbolTable) NewID() NodeID {
	id := st.nextID
	st.nextID++
	return id
}

// NumIDs returns the number of node IDs allocated so far. All IDs are in [0, NumIDs()).
func (st *SymbolTable) NumIDs() int {
	return st.nextID
}

// IDFor returns the ID of the value of entity, allocating one if the entity has not been seen yet. If entity names
// an object, the object's ID is returned.
func (st *SymbolTable) IDFor(entity string) NodeID {
	if id, ok := st.Lookup(entity); ok {
		return id
	}
	id := st.NewID()
	st.values[entity] = id
	st.names[id] = entity
	return id
}

// Lookup returns the ID of the value or object named entity
func (st *SymbolTable) Lookup(entity string) (NodeID, bool) {
	if id, ok := st.values[entity]; ok {
		return id, true
	}
	id, ok := st.objects[entity]
	return id, ok
}

// Name returns the name of the entity of node id, or a synthesized name for anonymous nodes.
func (st *SymbolTable) Name(id NodeID) string {
	if n, ok := st.names[id]; ok && n != "" {
		return n
	}
	return idString(id)
}

// SetName names an anonymous node, e.g. a field object
func (st *SymbolTable) SetName(id NodeID, name string) {
	st.names[id] = name
}

// CreateObject creates the abstract object of entity. The object is field-insensitive if field-sensitivity is
// disabled, or if its type has more flattened fields than the field limit.
func (st *SymbolTable) CreateObject(entity string, kind ObjKind, t *Type) *MemObj {
	if entity != "" {
		if _, ok := st.Lookup(entity); ok {
			invariant("entity %q already has an identity", entity)
		}
	}
	obj := &MemObj{id: st.NewID(), name: entity, kind: kind, typ: t, fn: NoFunc}
	st.initFields(obj)
	st.addObj(obj)
	return obj
}

// CreateDummyObject creates an anonymous placeholder object.
func (st *SymbolTable) CreateDummyObject(t *Type) *MemObj {
	obj := &MemObj{id: st.NewID(), kind: DummyObj, typ: t, fn: NoFunc}
	obj.name = fmt.Sprintf("dummy#%d", obj.id)
	st.initFields(obj)
	st.addObj(obj)
	return obj
}

func (st *SymbolTable) initFields(obj *MemObj) {
	if obj.kind == FunctionObj || obj.typ == nil {
		obj.maxFields = 0
		obj.fieldInsensitive = obj.kind == FunctionObj
		return
	}
	n := st.FlattenedFields(obj.typ)
	limit := st.config.FieldLimit
	switch {
	case !st.config.FieldSensitive:
		obj.maxFields = min(len(n), limit)
		obj.fieldInsensitive = true
	case len(n) > limit:
		st.logger.Warnf("type %s has %d flattened fields, over the field limit %d: objects are field-insensitive",
			obj.typ, len(n), limit)
		obj.maxFields = limit
		obj.fieldInsensitive = true
	default:
		obj.maxFields = len(n)
	}
}

// ObjectFor returns the object of entity. It panics if entity is not an object.
func (st *SymbolTable) ObjectFor(entity string) *MemObj {
	id, ok := st.objects[entity]
	if !ok {
		invariant("entity %q is not an object", entity)
	}
	return st.objs[id]
}

// Object returns the object with base ID id. It panics if id is not the ID of a base object.
func (st *SymbolTable) Object(id NodeID) *MemObj {
	obj, ok := st.objs[id]
	if !ok {
		invariant("node %s is not an object", st.Name(id))
	}
	return obj
}

// HasObject returns true if id is the ID of a base object
func (st *SymbolTable) HasObject(id NodeID) bool {
	_, ok := st.objs[id]
	return ok
}

// TypeInfo returns the flattened layout of t, computing it once per type.
func (st *SymbolTable) TypeInfo(t *Type) *TypeInfo {
	if ti, ok := st.typeInfos[t]; ok {
		return ti
	}
	ti := flatten(t)
	st.typeInfos[t] = ti
	return ti
}

// FlattenedFields returns the flattened fields of t
func (st *SymbolTable) FlattenedFields(t *Type) []FieldInfo {
	return st.TypeInfo(t).Fields
}

// FieldTypeAtOffset returns the type of the field at byteOffset in t, or nil if no field starts at that offset.
func (st *SymbolTable) FieldTypeAtOffset(t *Type, byteOffset int) *Type {
	for _, f := range st.FlattenedFields(t) {
		if f.matchesOffset(byteOffset) {
			return f.Type
		}
	}
	return nil
}

// FieldOffset returns the flattened index of the field reached by following indices from type t, as a
// get-element-pointer instruction does: a struct index selects a field, an array index selects an element (all
// elements share the same fields). The second result is false if an index is out of range.
func (st *SymbolTable) FieldOffset(t *Type, indices []int) (int, bool) {
	offset := 0
	cur := t
	for _, idx := range indices {
		if cur == nil {
			return 0, false
		}
		switch cur.Kind {
		case StructType:
			if idx < 0 || idx >= len(cur.Fields) {
				return 0, false
			}
			offset += st.TypeInfo(cur).FieldIndex[idx]
			cur = cur.Fields[idx]
		case ArrayType:
			cur = cur.Elem
		default:
			return 0, false
		}
	}
	return offset, true
}

// ModulusOffset maps an offset of a field of obj into the range of the object's field slots.
func (st *SymbolTable) ModulusOffset(obj *MemObj, offset int) int {
	if offset < 0 {
		st.logger.Warnf("try to create a gep node with negative offset")
		offset = -offset
	}
	maxOffset := obj.MaxFieldOffsetLimit()
	if maxOffset == 0 {
		return 0
	}
	return offset % maxOffset
}
