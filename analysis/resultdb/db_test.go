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

package resultdb

import (
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/awslabs/ar-go-pta/analysis/andersen"
	"github.com/awslabs/ar-go-pta/analysis/config"
	"github.com/awslabs/ar-go-pta/analysis/pagfile"
)

const program = `
objects:
  - {name: x, kind: stack}
  - {name: Fobj, kind: function}
values: [p, q, fp]
functions:
  - {name: main}
  - {name: F, object: Fobj, params: [F.a]}
edges:
  - {kind: addr, src: x, dst: p}
  - {kind: copy, src: p, dst: q}
  - {kind: addr, src: Fobj, dst: fp}
callsites:
  - {id: 1, caller: main, fptr: fp, args: [q]}
  - {id: 2, caller: main, callee: F, args: [p]}
`

func solve(t *testing.T) *andersen.Analysis {
	t.Helper()
	f, err := pagfile.Parse([]byte(program))
	if err != nil {
		t.Fatalf("failed to parse program: %v", err)
	}
	cfg := config.NewDefault()
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(io.Discard)
	p, err := pagfile.Build(f, cfg, logger)
	if err != nil {
		t.Fatalf("failed to build program: %v", err)
	}
	a := andersen.New(p.Graph, p.VTables)
	if err := a.Analyze(); err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	return a
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveRun(t *testing.T) {
	a := solve(t)
	db := openTestDB(t)
	id, err := db.SaveRun(a, "program.yaml")
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	run, err := db.Run(id)
	if err != nil {
		t.Fatalf("failed to read run: %v", err)
	}
	if run.Source != "program.yaml" || run.Discipline != a.Discipline() || run.Fingerprint != a.Fingerprint() {
		t.Errorf("unexpected run %+v", run)
	}
	if run.Nodes != a.PAG().NumNodes() {
		t.Errorf("expected %d nodes, got %d", a.PAG().NumNodes(), run.Nodes)
	}

	for _, name := range []string{"p", "q", "F.a"} {
		n, err := db.NodeByName(id, name)
		if err != nil {
			t.Fatalf("failed to find node %s: %v", name, err)
		}
		got, err := db.PointsTo(id, n)
		if err != nil {
			t.Fatalf("failed to read points-to set: %v", err)
		}
		if expected := a.PointsTo(n).Slice(); !reflect.DeepEqual(got, expected) {
			t.Errorf("pts(%s): expected %v, got %v", name, expected, got)
		}
	}

	edges, err := db.CallEdges(id)
	if err != nil {
		t.Fatalf("failed to read call edges: %v", err)
	}
	if expected := a.CallGraphEdges(); !reflect.DeepEqual(edges, expected) {
		t.Errorf("expected call edges %v, got %v", expected, edges)
	}
	if len(edges) != 2 || edges[0].Direct || !edges[1].Direct {
		t.Errorf("expected an indirect and a direct edge, got %v", edges)
	}
}

func TestRuns(t *testing.T) {
	a := solve(t)
	db := openTestDB(t)
	first, err := db.SaveRun(a, "first")
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	second, err := db.SaveRun(a, "second")
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	if first == second {
		t.Fatalf("runs must have distinct IDs")
	}
	runs, err := db.Runs()
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	if err := db.DeleteRun(first); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}
	if _, err := db.PointsTo(first, 0); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if err := db.DeleteRun(first); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := db.NodeByName(second, "nothing"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestReopen(t *testing.T) {
	a := solve(t)
	path := filepath.Join(t.TempDir(), "results.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	id, err := db.SaveRun(a, "program.yaml")
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer db.Close()
	if _, err := db.Run(id); err != nil {
		t.Errorf("run was not persisted: %v", err)
	}
}
