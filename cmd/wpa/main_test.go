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

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-pta/internal/formatutil"
)

const program = "testdata/program.yaml"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	formatutil.SetColors(false)
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func expectLines(t *testing.T, out string, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if !strings.Contains(out, line+"\n") {
			t.Errorf("expected line %q in output:\n%s", line, out)
		}
	}
}

func TestSolve(t *testing.T) {
	out, err := run(t, "solve", program)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	expectLines(t, out, "p -> {x}", "q -> {x}", "r -> {y}", "fp -> {recObj}", "rec.a -> {x}")
	if strings.Contains(out, "x -> ") {
		t.Errorf("objects are only printed with --all:\n%s", out)
	}

	for _, discipline := range []string{"plain", "diff"} {
		all, err := run(t, "solve", "--all", "--discipline", discipline, "--lazy-cycle", program)
		if err != nil {
			t.Fatalf("solve failed: %v", err)
		}
		expectLines(t, all, "p -> {x}", "x -> {}", "blkptr -> {blackhole}")
	}
}

func TestSolveWithConfig(t *testing.T) {
	out, err := run(t, "solve", "--config", "testdata/report.yaml", program)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if out != "rec.a -> {x}\n" {
		t.Errorf("expected only the reported entities, got:\n%s", out)
	}
}

func TestSolveInvalidOptions(t *testing.T) {
	if _, err := run(t, "solve", "--discipline", "fast", program); err == nil ||
		!strings.Contains(err.Error(), "pts-discipline") {
		t.Errorf("expected an error about the discipline, got %v", err)
	}
	if _, err := run(t, "solve", "testdata/missing.yaml"); err == nil {
		t.Errorf("expected an error for a missing file")
	}
	if _, err := run(t, "solve"); err == nil {
		t.Errorf("expected an error for missing arguments")
	}
}

func TestAlias(t *testing.T) {
	out, err := run(t, "alias", program, "p", "q")
	if err != nil {
		t.Fatalf("alias failed: %v", err)
	}
	expectLines(t, out, "p q: MayAlias")

	out, err = run(t, "alias", program, "p", "r")
	if err != nil {
		t.Fatalf("alias failed: %v", err)
	}
	expectLines(t, out, "p r: NoAlias")

	if _, err := run(t, "alias", program, "p", "nothing"); err == nil ||
		!strings.Contains(err.Error(), "unknown entity") {
		t.Errorf("expected an unknown entity error, got %v", err)
	}
}

func TestCallGraph(t *testing.T) {
	out, err := run(t, "callgraph", program)
	if err != nil {
		t.Fatalf("callgraph failed: %v", err)
	}
	expectLines(t, out,
		"@1 main -> rec (recursive) [direct]",
		"@2 rec -> rec (recursive) [indirect]",
		"recursive functions: {rec}")
}

func TestCallGraphEscapesNames(t *testing.T) {
	out, err := run(t, "callgraph", "testdata/escapes.yaml")
	if err != nil {
		t.Fatalf("callgraph failed: %v", err)
	}
	expectLines(t, out, `@1 main\tloop -> handler\x1b[31m [indirect]`)
	if strings.ContainsAny(out, "\t\x1b") {
		t.Errorf("control characters must be escaped:\n%q", out)
	}
}

func TestCaches(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "pts.cache.zst")
	first, err := run(t, "solve", "--all", "--write-cache", cache, program)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	second, err := run(t, "solve", "--all", "--read-cache", cache, program)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if first != second {
		t.Errorf("results loaded from the cache differ:\n%s\n%s", first, second)
	}
}

func TestResultDB(t *testing.T) {
	db := filepath.Join(t.TempDir(), "results.db")
	out, err := run(t, "solve", "--db", db, program)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if !strings.Contains(out, "saved run ") {
		t.Errorf("expected the ID of the saved run:\n%s", out)
	}

	out, err = run(t, "runs", "--db", db)
	if err != nil {
		t.Fatalf("runs failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], program+" diff") {
		t.Errorf("expected one run, got:\n%s", out)
	}

	if _, err := run(t, "runs"); err == nil {
		t.Errorf("runs requires --db")
	}
}
