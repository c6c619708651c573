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

// Package memory contains the symbol model of the pointer analysis: the dense node identities shared by program
// values and abstract objects, the memory objects with their field-sensitivity state, the type model and its
// flattening into field slots, and access paths used to compute field offsets.
package memory

import (
	"fmt"

	"github.com/pkg/errors"
)

// NodeID is the identity of a node of the assignment graph. Values and abstract objects share the same ID space and
// IDs are never reused.
type NodeID = int

// FuncID identifies a function of the analyzed program.
type FuncID = int

// Reserved node identities. Every symbol table starts with these four symbols.
const (
	// NullPtr is the value of the null pointer
	NullPtr NodeID = iota
	// BlkPtr is the value that points to the black hole object
	BlkPtr
	// BlackHole is the object that aliases every other object
	BlackHole
	// ConstantObj is the object representing all constant data
	ConstantObj

	firstFreeID
)

// InvalidID is used for absent nodes, e.g. the return node of a function that does not return a pointer.
const InvalidID NodeID = -1

// NoFunc is used for absent functions
const NoFunc FuncID = -1

// IsReserved returns true if id is one of the reserved symbols.
func IsReserved(id NodeID) bool {
	return id >= 0 && id < firstFreeID
}

// IsBlackHoleOrConstant returns true when id is the black hole or the constant object. Those objects have no fields
// and are never dereferenced.
func IsBlackHoleOrConstant(id NodeID) bool {
	return id == BlackHole || id == ConstantObj
}

// invariant panics with an error carrying a stack trace. It is used for violations of the graph construction
// contract, which cannot be recovered from.
func invariant(format string, args ...any) {
	panic(errors.Errorf("memory: "+format, args...))
}

func idString(id NodeID) string {
	switch id {
	case NullPtr:
		return "nullptr"
	case BlkPtr:
		return "blkptr"
	case BlackHole:
		return "blackhole"
	case ConstantObj:
		return "constobj"
	case InvalidID:
		return "<invalid>"
	default:
		return fmt.Sprintf("%d", id)
	}
}
