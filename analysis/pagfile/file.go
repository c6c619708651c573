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

// Package pagfile reads assignment graphs from YAML files.
//
// A graph file lists the types, objects, values, functions, edges, call sites and vtables of a program, referring to
// each entity by name:
//
//	types:
//	  - {name: pair, kind: struct, fields: [ptr, ptr]}
//	  - {name: ptr, kind: pointer, size: 8}
//	objects:
//	  - {name: o, kind: stack, type: pair}
//	values: [p, q]
//	edges:
//	  - {kind: addr, src: o, dst: p}
//	  - {kind: gep, src: p, dst: q, offset: 1}
//
// Direct call sites are expanded into call and return edges labelled by the call site. Names that do not resolve are
// reported as errors.
package pagfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the content of a graph file
type File struct {
	Types     []TypeDecl     `yaml:"types"`
	Objects   []ObjectDecl   `yaml:"objects"`
	Values    []string       `yaml:"values"`
	Functions []FunctionDecl `yaml:"functions"`
	Edges     []EdgeDecl     `yaml:"edges"`
	CallSites []CallSiteDecl `yaml:"callsites"`
	VTables   []VTableDecl   `yaml:"vtables"`
}

// TypeDecl declares a named type. Fields and Elem refer to other types by name.
type TypeDecl struct {
	Name   string   `yaml:"name"`
	Kind   string   `yaml:"kind"`
	Size   int      `yaml:"size"`
	Fields []string `yaml:"fields"`
	Elem   string   `yaml:"elem"`
	Len    int      `yaml:"len"`
}

// ObjectDecl declares an abstract object
type ObjectDecl struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	Type string `yaml:"type"`
}

// FunctionDecl declares a function. Params and Ret name value nodes, which are created if they are not declared in
// the values of the file. Object names the function object, if the function is address-taken.
type FunctionDecl struct {
	Name      string   `yaml:"name"`
	Object    string   `yaml:"object"`
	Params    []string `yaml:"params"`
	Ret       string   `yaml:"ret"`
	Variadic  bool     `yaml:"variadic"`
	HeapAlloc bool     `yaml:"heap-alloc"`
}

// EdgeDecl declares an edge. The offset of a gep edge is either Offset, or the flattened offset of the field reached
// by Path in Type.
type EdgeDecl struct {
	Kind    string   `yaml:"kind"`
	Src     string   `yaml:"src"`
	Dst     string   `yaml:"dst"`
	Label   int      `yaml:"label"`
	Offset  int      `yaml:"offset"`
	Type    string   `yaml:"type"`
	Path    []int    `yaml:"path"`
	Strides [][2]int `yaml:"strides"`
}

// CallSiteDecl declares a call site, which is direct if Callee is set, virtual if VTable is set, and indirect through
// FunPtr otherwise
type CallSiteDecl struct {
	ID       int      `yaml:"id"`
	Caller   string   `yaml:"caller"`
	Callee   string   `yaml:"callee"`
	FunPtr   string   `yaml:"fptr"`
	VTable   string   `yaml:"vtable"`
	Slot     int      `yaml:"slot"`
	VName    string   `yaml:"vname"`
	Args     []string `yaml:"args"`
	Ret      string   `yaml:"ret"`
	Variadic bool     `yaml:"variadic"`
	Fork     bool     `yaml:"fork"`
}

// VTableDecl lists the virtual functions of a vtable object. An empty function name is an empty slot.
type VTableDecl struct {
	Object    string   `yaml:"object"`
	Functions []string `yaml:"functions"`
}

// Load reads and parses the graph file at path
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read graph file: %w", err)
	}
	f, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("graph file %s: %w", path, err)
	}
	return f, nil
}

// Parse parses the content of a graph file
func Parse(b []byte) (*File, error) {
	f := &File{}
	if err := yaml.Unmarshal(b, f); err != nil {
		return nil, fmt.Errorf("could not unmarshal graph: %w", err)
	}
	return f, nil
}
