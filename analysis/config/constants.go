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

package config

const (
	// DefaultFieldLimit is the default maximum number of field slots of an object
	DefaultFieldLimit = 512

	// DefaultIndirectCallLimit is the default maximum number of indirect call edges resolved during one analysis
	DefaultIndirectCallLimit = 50000

	// DisciplinePlain propagates the full points-to set along an edge every time its source changes
	DisciplinePlain = "plain"

	// DisciplineDiff propagates only the elements that have not yet been propagated along an edge
	DisciplineDiff = "diff"
)
