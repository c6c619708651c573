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

package formatutil

import "testing"

func TestStyles(t *testing.T) {
	defer SetColors(ColorsEnabled())

	SetColors(false)
	if s := Red("x", 1); s != "x1" {
		t.Errorf("expected plain output, got %q", s)
	}
	SetColors(true)
	if s := Red("x"); s != "\033[1;31mx\033[0m" {
		t.Errorf("expected colored output, got %q", s)
	}
}

func TestSet(t *testing.T) {
	defer SetColors(ColorsEnabled())
	SetColors(false)
	if s := Set(nil, Bold); s != "{}" {
		t.Errorf("expected an empty set, got %q", s)
	}
	if s := Set([]string{"a", "b\n"}, Bold); s != `{a, b\n}` {
		t.Errorf("unexpected set %q", s)
	}
}
