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

// Package pag implements the assignment graph of the pointer analysis. Nodes are program values and abstract
// objects identified by the IDs of a memory.SymbolTable. Edges are typed assignments (address-of, copy, load, store,
// field address, call and thread parameter bindings) that may carry a label identifying the program point they
// come from.
//
// The graph is built by an external builder that translates the analyzed program (see the pagfile package for a
// builder reading YAML descriptions). Apart from field objects, which the solver creates lazily, the graph is not
// modified once the analysis starts. Violations of the construction contract panic.
package pag
