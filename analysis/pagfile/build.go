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

package pagfile

import (
	"fmt"

	"github.com/awslabs/ar-go-pta/analysis/callgraph"
	"github.com/awslabs/ar-go-pta/analysis/config"
	"github.com/awslabs/ar-go-pta/analysis/memory"
	"github.com/awslabs/ar-go-pta/analysis/pag"
)

// Program is an assignment graph built from a graph file, with the vtables of its classes
type Program struct {
	Graph   *pag.Graph
	VTables *callgraph.VTableIndex
}

var objKinds = map[string]memory.ObjKind{
	"heap":     memory.HeapObj,
	"stack":    memory.StackObj,
	"global":   memory.GlobalObj,
	"static":   memory.StaticObj,
	"function": memory.FunctionObj,
	"constant": memory.ConstObj,
	"dummy":    memory.DummyObj,
}

var typeKinds = map[string]memory.TypeKind{
	"scalar":   memory.ScalarType,
	"pointer":  memory.PointerType,
	"struct":   memory.StructType,
	"array":    memory.ArrayType,
	"function": memory.FunctionType,
	"opaque":   memory.OpaqueType,
}

// builder holds the state of the construction of a graph from a file
type builder struct {
	file    *File
	g       *pag.Graph
	types   map[string]*memory.Type
	decls   map[string]*TypeDecl
	objects map[string]*memory.MemObj
	resolve map[string]bool
}

// Build builds the assignment graph described by f with configuration cfg
func Build(f *File, cfg *config.Config, logger *config.LogGroup) (*Program, error) {
	b := &builder{
		file:    f,
		g:       pag.NewGraph(cfg, logger),
		types:   map[string]*memory.Type{},
		decls:   map[string]*TypeDecl{},
		objects: map[string]*memory.MemObj{},
		resolve: map[string]bool{},
	}
	steps := []func() error{b.buildTypes, b.buildObjects, b.buildValues, b.buildFunctions, b.buildEdges}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	if err := b.buildCallSites(); err != nil {
		return nil, err
	}
	vt, err := b.buildVTables()
	if err != nil {
		return nil, err
	}
	logger.Debugf("built graph with %d nodes, %d edges, %d functions and %d call sites", b.g.NumNodes(),
		len(b.g.Edges()), len(b.g.Functions()), len(b.g.CallSites()))
	return &Program{Graph: b.g, VTables: vt}, nil
}

// LoadProgram reads the graph file at path and builds its program
func LoadProgram(path string, cfg *config.Config, logger *config.LogGroup) (*Program, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	p, err := Build(f, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("graph file %s: %w", path, err)
	}
	return p, nil
}

func (b *builder) buildTypes() error {
	for i := range b.file.Types {
		d := &b.file.Types[i]
		if d.Name == "" {
			return fmt.Errorf("type %d has no name", i)
		}
		if _, dup := b.decls[d.Name]; dup {
			return fmt.Errorf("duplicate type %q", d.Name)
		}
		b.decls[d.Name] = d
	}
	for _, d := range b.file.Types {
		if _, err := b.typeNamed(d.Name); err != nil {
			return err
		}
	}
	return nil
}

// typeNamed returns the type declared with name, building it and the types it contains first
func (b *builder) typeNamed(name string) (*memory.Type, error) {
	if t, ok := b.types[name]; ok {
		return t, nil
	}
	d, ok := b.decls[name]
	if !ok {
		return nil, fmt.Errorf("unknown type %q", name)
	}
	if b.resolve[name] {
		return nil, fmt.Errorf("type %q contains itself", name)
	}
	b.resolve[name] = true
	defer delete(b.resolve, name)

	kind, ok := typeKinds[d.Kind]
	if !ok {
		return nil, fmt.Errorf("type %q has unknown kind %q", name, d.Kind)
	}
	var t *memory.Type
	switch kind {
	case memory.ScalarType:
		t = memory.NewScalar(name, d.Size)
	case memory.PointerType:
		t = memory.NewPointer(name, d.Size)
	case memory.StructType:
		var fields []*memory.Type
		for _, fname := range d.Fields {
			ft, err := b.typeNamed(fname)
			if err != nil {
				return nil, fmt.Errorf("field of %q: %w", name, err)
			}
			fields = append(fields, ft)
		}
		t = memory.NewStruct(name, fields...)
	case memory.ArrayType:
		if d.Len < 0 {
			return nil, fmt.Errorf("array type %q has negative length %d", name, d.Len)
		}
		elem, err := b.typeNamed(d.Elem)
		if err != nil {
			return nil, fmt.Errorf("element of %q: %w", name, err)
		}
		t = memory.NewArray(name, elem, d.Len)
	default:
		t = &memory.Type{Name: name, Kind: kind}
	}
	b.types[name] = t
	return t, nil
}

// optionalType returns the type named name, or nil if name is empty
func (b *builder) optionalType(name string) (*memory.Type, error) {
	if name == "" {
		return nil, nil
	}
	return b.typeNamed(name)
}

func (b *builder) buildObjects() error {
	for _, d := range b.file.Objects {
		if err := b.checkNewName(d.Name); err != nil {
			return fmt.Errorf("object: %w", err)
		}
		kind, ok := objKinds[d.Kind]
		if !ok {
			return fmt.Errorf("object %q has unknown kind %q", d.Name, d.Kind)
		}
		t, err := b.optionalType(d.Type)
		if err != nil {
			return fmt.Errorf("object %q: %w", d.Name, err)
		}
		obj := b.g.Symbols.CreateObject(d.Name, kind, t)
		b.g.AddObjNode(obj)
		b.objects[d.Name] = obj
	}
	return nil
}

func (b *builder) buildValues() error {
	for _, v := range b.file.Values {
		if err := b.checkNewName(v); err != nil {
			return fmt.Errorf("value: %w", err)
		}
		b.g.AddValNode(v)
	}
	return nil
}

func (b *builder) checkNewName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name")
	}
	if _, ok := b.g.Symbols.Lookup(name); ok {
		return fmt.Errorf("duplicate name %q", name)
	}
	return nil
}

// valueOrNew returns the node named name, adding a value node if there is none
func (b *builder) valueOrNew(name string) memory.NodeID {
	if id, ok := b.g.Symbols.Lookup(name); ok {
		return id
	}
	return b.g.AddValNode(name)
}

// node returns the node named name
func (b *builder) node(name string) (memory.NodeID, error) {
	id, ok := b.g.Symbols.Lookup(name)
	if !ok || !b.g.HasNode(id) {
		return memory.InvalidID, fmt.Errorf("unknown node %q", name)
	}
	return id, nil
}

// value returns the top-level node named name
func (b *builder) value(name string) (memory.NodeID, error) {
	id, err := b.node(name)
	if err != nil {
		return id, err
	}
	if !b.g.Node(id).IsTopLevel() {
		return memory.InvalidID, fmt.Errorf("%q is an object, not a value", name)
	}
	return id, nil
}

func (b *builder) function(name string) (*pag.Function, error) {
	fn, ok := b.g.FunctionByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	return fn, nil
}

func (b *builder) buildFunctions() error {
	for _, d := range b.file.Functions {
		if d.Name == "" {
			return fmt.Errorf("function with no name")
		}
		if _, ok := b.g.FunctionByName(d.Name); ok {
			return fmt.Errorf("duplicate function %q", d.Name)
		}
		var obj *memory.MemObj
		if d.Object != "" {
			o, ok := b.objects[d.Object]
			if !ok {
				return fmt.Errorf("function %q: unknown object %q", d.Name, d.Object)
			}
			if !o.IsFunction() {
				return fmt.Errorf("function %q: object %q is a %s object", d.Name, d.Object, o.Kind())
			}
			if o.Func() != memory.NoFunc {
				return fmt.Errorf("function %q: object %q is already bound", d.Name, d.Object)
			}
			obj = o
		}
		var formals []memory.NodeID
		for _, p := range d.Params {
			id := b.valueOrNew(p)
			if !b.g.Node(id).IsTopLevel() {
				return fmt.Errorf("function %q: parameter %q is an object", d.Name, p)
			}
			formals = append(formals, id)
		}
		ret := memory.InvalidID
		if d.Ret != "" {
			ret = b.valueOrNew(d.Ret)
			if !b.g.Node(ret).IsTopLevel() {
				return fmt.Errorf("function %q: return value %q is an object", d.Name, d.Ret)
			}
		}
		if d.Variadic {
			if _, ok := b.g.Symbols.Lookup(d.Name + ".vararg"); ok {
				return fmt.Errorf("function %q: name %q is reserved for its variadic arguments", d.Name,
					d.Name+".vararg")
			}
		}
		fn := b.g.AddFunction(d.Name, obj, formals, ret, d.Variadic)
		fn.HeapAlloc = d.HeapAlloc
	}
	return nil
}

func (b *builder) buildEdges() error {
	for i, d := range b.file.Edges {
		if err := b.buildEdge(d); err != nil {
			return fmt.Errorf("edge %d (%s %s -> %s): %w", i, d.Kind, d.Src, d.Dst, err)
		}
	}
	return nil
}

func (b *builder) buildEdge(d EdgeDecl) error {
	kind, ok := pag.ParseEdgeKind(d.Kind)
	if !ok {
		return fmt.Errorf("unknown edge kind %q", d.Kind)
	}
	src, err := b.node(d.Src)
	if err != nil {
		return err
	}
	dst, err := b.node(d.Dst)
	if err != nil {
		return err
	}
	if kind.NeedsLabel() && d.Label == 0 {
		return fmt.Errorf("%s edges need a label", kind)
	}
	if kind == pag.Addr && b.g.Node(src).IsTopLevel() {
		return fmt.Errorf("source of an addr edge must be an object")
	}
	switch kind {
	case pag.NormalGep, pag.VariantGep:
		ap, err := b.accessPath(d)
		if err != nil {
			return err
		}
		b.g.AddGepEdge(src, dst, ap, kind == pag.VariantGep)
	default:
		b.g.AddEdge(kind, src, dst, pag.Label(d.Label))
	}
	return nil
}

func (b *builder) accessPath(d EdgeDecl) (memory.AccessPath, error) {
	offset := d.Offset
	if len(d.Path) > 0 {
		if d.Type == "" {
			return memory.AccessPath{}, fmt.Errorf("a field path needs a type")
		}
		t, err := b.typeNamed(d.Type)
		if err != nil {
			return memory.AccessPath{}, err
		}
		off, ok := b.g.Symbols.FieldOffset(t, d.Path)
		if !ok {
			return memory.AccessPath{}, fmt.Errorf("invalid field path %v in type %s", d.Path, t)
		}
		offset += off
	}
	var pairs []memory.NumStride
	for _, s := range d.Strides {
		pairs = append(pairs, memory.NumStride{Num: s[0], Stride: s[1]})
	}
	return memory.NewAccessPath(offset, pairs...), nil
}

func (b *builder) buildCallSites() error {
	for _, d := range b.file.CallSites {
		if err := b.buildCallSite(d); err != nil {
			return fmt.Errorf("call site %d: %w", d.ID, err)
		}
	}
	return nil
}

func (b *builder) buildCallSite(d CallSiteDecl) error {
	if d.ID <= 0 {
		return fmt.Errorf("call site IDs must be positive")
	}
	if _, dup := b.g.CallSite(pag.Label(d.ID)); dup {
		return fmt.Errorf("duplicate call site")
	}
	caller, err := b.function(d.Caller)
	if err != nil {
		return err
	}
	var args []memory.NodeID
	for _, a := range d.Args {
		id, err := b.value(a)
		if err != nil {
			return err
		}
		args = append(args, id)
	}
	ret := memory.InvalidID
	if d.Ret != "" {
		if ret, err = b.value(d.Ret); err != nil {
			return err
		}
	}
	label := pag.Label(d.ID)
	var cs *pag.CallSite
	switch {
	case d.Callee != "":
		callee, err := b.function(d.Callee)
		if err != nil {
			return err
		}
		cs = pag.NewDirectCallSite(label, caller.ID, callee.ID, args, ret)
	case d.VTable != "":
		vt, err := b.value(d.VTable)
		if err != nil {
			return err
		}
		cs = pag.NewVirtualCallSite(label, caller.ID, vt, d.Slot, d.VName, args, ret)
	case d.FunPtr != "":
		fp, err := b.value(d.FunPtr)
		if err != nil {
			return err
		}
		cs = pag.NewIndirectCallSite(label, caller.ID, fp, args, ret)
	default:
		return fmt.Errorf("call site needs a callee, a function pointer or a vtable")
	}
	cs.Variadic = d.Variadic
	cs.Fork = d.Fork
	b.g.AddCallSite(cs)
	if cs.IsDirect() {
		return b.connectDirectCall(cs)
	}
	return nil
}

// connectDirectCall adds the call and return edges of a direct call site. A call to an allocator makes the return
// value point to a new heap object.
func (b *builder) connectDirectCall(cs *pag.CallSite) error {
	callee := b.g.Function(cs.Callee)
	argKind := pag.Call
	if cs.Fork {
		argKind = pag.ThreadFork
	}
	for i, a := range cs.Actuals {
		switch {
		case i < len(callee.Formals):
			b.g.AddEdge(argKind, a, callee.Formals[i], cs.ID)
		case callee.Variadic:
			b.g.AddEdge(argKind, a, callee.Vararg, cs.ID)
		default:
			b.g.Logger().Warnf("too many args to non-vararg func %s at call site %d", callee.Name, cs.ID)
		}
	}
	if cs.Fork || cs.Ret == memory.InvalidID {
		return nil
	}
	if callee.HeapAlloc {
		name := fmt.Sprintf("heap@%d", cs.ID)
		if err := b.checkNewName(name); err != nil {
			return fmt.Errorf("heap object of allocator %s: %w", callee.Name, err)
		}
		obj := b.g.Symbols.CreateObject(name, memory.HeapObj, nil)
		b.g.AddObjNode(obj)
		b.g.AddEdge(pag.Addr, obj.ID(), cs.Ret, pag.NoLabel)
	}
	if callee.Ret != memory.InvalidID {
		b.g.AddEdge(pag.Ret, callee.Ret, cs.Ret, cs.ID)
	}
	return nil
}

func (b *builder) buildVTables() (*callgraph.VTableIndex, error) {
	vt := callgraph.NewVTableIndex(b.g)
	for _, d := range b.file.VTables {
		obj, ok := b.objects[d.Object]
		if !ok {
			return nil, fmt.Errorf("vtable: unknown object %q", d.Object)
		}
		slots := make([]memory.FuncID, len(d.Functions))
		for i, name := range d.Functions {
			if name == "" {
				slots[i] = memory.NoFunc
				continue
			}
			fn, err := b.function(name)
			if err != nil {
				return nil, fmt.Errorf("vtable %q: %w", d.Object, err)
			}
			slots[i] = fn.ID
		}
		vt.AddVTable(obj.ID(), slots)
	}
	return vt, nil
}
