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

package andersen

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-pta/analysis/callgraph"
	"github.com/awslabs/ar-go-pta/analysis/config"
	"github.com/awslabs/ar-go-pta/analysis/consgraph"
	"github.com/awslabs/ar-go-pta/analysis/memory"
	"github.com/awslabs/ar-go-pta/analysis/pag"
	"github.com/awslabs/ar-go-pta/analysis/pagfile"
	"github.com/awslabs/ar-go-pta/analysis/pts"
)

//go:embed testdata
var testfsys embed.FS

var fixtures = []string{
	"scenario_a.yaml",
	"scenario_b.yaml",
	"scenario_c.yaml",
	"scenario_d.yaml",
	"scenario_e.yaml",
	"cycle.yaml",
	"alias.yaml",
	"fork.yaml",
	"mixed.yaml",
	"gepcycle.yaml",
}

// newTestAnalysis builds the graph of the test file filename, with the options set by opts. The log output of the
// analysis is written to the returned buffer.
func newTestAnalysis(t *testing.T, filename string, opts func(*config.Config)) (*Analysis, *bytes.Buffer) {
	t.Helper()
	b, err := testfsys.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("failed to read file %v: %v", filename, err)
	}
	f, err := pagfile.Parse(b)
	if err != nil {
		t.Fatalf("failed to parse %v: %v", filename, err)
	}
	cfg := config.NewDefault()
	if opts != nil {
		opts(cfg)
	}
	logger := config.NewLogGroup(cfg)
	buf := &bytes.Buffer{}
	logger.SetAllOutput(buf)
	p, err := pagfile.Build(f, cfg, logger)
	if err != nil {
		t.Fatalf("failed to build %v: %v", filename, err)
	}
	var cha callgraph.ClassHierarchy
	if p.VTables != nil {
		cha = p.VTables
	}
	return New(p.Graph, cha), buf
}

func solveTestFile(t *testing.T, filename string, opts func(*config.Config)) *Analysis {
	t.Helper()
	a, _ := newTestAnalysis(t, filename, opts)
	if err := a.Analyze(); err != nil {
		t.Fatalf("analysis of %s failed: %v", filename, err)
	}
	return a
}

func node(t *testing.T, a *Analysis, name string) memory.NodeID {
	t.Helper()
	id, ok := a.PAG().Symbols.Lookup(name)
	if !ok {
		t.Fatalf("no node named %q", name)
	}
	return id
}

// canonicalName names the node id independently of the order in which the solver created it
func canonicalName(a *Analysis, id memory.NodeID) string {
	for cs, val := range a.heapDummies {
		if val == id {
			return fmt.Sprintf("heapval@%d", cs)
		}
		if obj, ok := a.HeapObjectAt(cs); ok && obj == id {
			return fmt.Sprintf("heapobj@%d", cs)
		}
	}
	return a.PAG().Name(id)
}

func ptsNames(a *Analysis, id memory.NodeID) []string {
	res := []string{}
	for _, o := range a.PointsTo(id).Slice() {
		res = append(res, canonicalName(a, o))
	}
	sort.Strings(res)
	return res
}

// results returns the points-to sets of every node, except the fields of collapsed objects, whose existence
// depends on the order in which the solver processed the nodes
func results(a *Analysis) map[string][]string {
	res := map[string][]string{}
	for _, n := range a.PAG().Nodes() {
		if n.Kind() == pag.GepObjNode && a.PAG().IsFieldInsensitive(n.ID()) {
			continue
		}
		res[canonicalName(a, n.ID())] = ptsNames(a, n.ID())
	}
	return res
}

func expectPts(t *testing.T, a *Analysis, name string, expected ...string) {
	t.Helper()
	got := ptsNames(a, node(t, a, name))
	if expected == nil {
		expected = []string{}
	}
	sort.Strings(expected)
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("pts(%s) = %v, expected %v", name, got, expected)
	}
}

func isSubset(s, x *pts.Set) bool {
	return s.Minus(x).IsEmpty()
}

func TestScenarioCopyLoad(t *testing.T) {
	a := solveTestFile(t, "scenario_a.yaml", nil)
	expectPts(t, a, "p", "x")
	expectPts(t, a, "q", "x")
	expectPts(t, a, "x", "y")
	expectPts(t, a, "v", "y")
}

func TestScenarioTwoSeeds(t *testing.T) {
	a := solveTestFile(t, "scenario_b.yaml", nil)
	expectPts(t, a, "p", "x", "y")
	expectPts(t, a, "t1", "x")
	expectPts(t, a, "t2", "y")
}

func TestScenarioIndirectCall(t *testing.T) {
	a := solveTestFile(t, "scenario_c.yaml", nil)
	g := a.PAG()
	main, _ := g.FunctionByName("main")
	f, _ := g.FunctionByName("F")
	gf, _ := g.FunctionByName("G")
	edges := a.CallGraphEdges()
	expected := []callgraph.Edge{
		{CallSite: 1, Caller: main.ID, Callee: f.ID, Direct: false},
		{CallSite: 1, Caller: main.ID, Callee: gf.ID, Direct: false},
	}
	if !reflect.DeepEqual(edges, expected) {
		t.Errorf("expected call edges %v, got %v", expected, edges)
	}
	arg := node(t, a, "a")
	cg := a.ConstraintGraph()
	for _, fn := range []*pag.Function{f, gf} {
		if !cg.HasEdge(consgraph.Copy, cg.RepOf(arg), cg.RepOf(fn.Formals[0]), 0) {
			t.Errorf("expected a copy edge from a to the parameter of %s", fn.Name)
		}
	}
	expectPts(t, a, "F.a", "x")
	expectPts(t, a, "G.a", "x")
	if callees := a.ResolvedCallees(1); !reflect.DeepEqual(callees, []memory.FuncID{f.ID, gf.ID}) {
		t.Errorf("expected callees F and G, got %v", callees)
	}
}

func TestScenarioPureCycle(t *testing.T) {
	a := solveTestFile(t, "scenario_d.yaml", nil)
	p := node(t, a, "p")
	q := node(t, a, "q")
	cg := a.ConstraintGraph()
	if cg.RepOf(p) != cg.RepOf(q) {
		t.Fatalf("p and q must be merged")
	}
	if rep := cg.RepOf(q); rep != p {
		t.Errorf("the representative must be the smallest node, got %d", rep)
	}
	expectPts(t, a, "p")
	expectPts(t, a, "q")
	if a.Stats().MergedNodes != 1 {
		t.Errorf("expected 1 merged node, got %d", a.Stats().MergedNodes)
	}
}

func TestScenarioFieldCollapse(t *testing.T) {
	for _, discipline := range []string{config.DisciplinePlain, config.DisciplineDiff} {
		t.Run(discipline, func(t *testing.T) {
			a := solveTestFile(t, "scenario_e.yaml", func(c *config.Config) { c.PtsDiscipline = discipline })
			g := a.PAG()
			obj := node(t, a, "obj")
			fields := g.FieldObjNodes(obj)
			if len(fields) != 2 || fields[0] == fields[1] {
				t.Fatalf("expected two distinct field objects, got %v", fields)
			}
			if !g.IsFieldInsensitive(obj) {
				t.Fatalf("obj must be field-insensitive")
			}
			for _, v := range []string{"v1", "v2", "v3", "p"} {
				expectPts(t, a, v, "obj")
			}
			for _, off := range []int{0, 1, 5} {
				if f := g.GepObjNode(obj, off); f != obj {
					t.Errorf("field %d of a collapsed object must be the object, got %d", off, f)
				}
			}
			if a.Stats().CollapsedObjs == 0 {
				t.Errorf("expected a collapsed object")
			}
		})
	}
}

func TestGepDeterminism(t *testing.T) {
	a := solveTestFile(t, "mixed.yaml", nil)
	g := a.PAG()
	obj := node(t, a, "a")
	f1 := g.GepObjNode(obj, 1)
	if f1 == obj {
		t.Fatalf("a is field-sensitive")
	}
	if f := g.GepObjNode(obj, 1); f != f1 {
		t.Errorf("same field returned %d and %d", f1, f)
	}
	// offsets are taken modulo the number of fields of the object
	if f := g.GepObjNode(obj, 3); f != f1 {
		t.Errorf("expected field 3 of a pair to be field 1, got %d", f)
	}
	if f := g.GepObjNode(f1, 1); f != g.GepObjNode(obj, 0) {
		t.Errorf("offsets of a field object must be composed with its own offset")
	}
	expectPts(t, a, "f1", "a.1", "b")
	expectPts(t, a, "f2", "a.0", "b")
}

func TestCycleCollapse(t *testing.T) {
	a := solveTestFile(t, "cycle.yaml", nil)
	cg := a.ConstraintGraph()
	p := node(t, a, "p")
	q := node(t, a, "q")
	r := node(t, a, "r")
	s := node(t, a, "s")
	if cg.RepOf(q) != p {
		t.Fatalf("q must be merged into p")
	}
	expectPts(t, a, "p", "x", "y")
	expectPts(t, a, "r", "x", "y")
	if !cg.HasEdge(consgraph.Copy, p, r, 0) {
		t.Errorf("the outgoing edge of q must be moved to p")
	}
	if !cg.HasEdge(consgraph.Copy, s, p, 0) {
		t.Errorf("the incoming edge of p must survive")
	}
	if n := len(cg.InEdges(q, consgraph.Addr)); n != 0 {
		t.Errorf("address edges of merged nodes must be dropped, got %d", n)
	}
	if sub := cg.SubNodes(p); !reflect.DeepEqual(sub, []memory.NodeID{q}) {
		t.Errorf("expected q to be the only sub node of p, got %v", sub)
	}
}

func TestPositiveWeightCycle(t *testing.T) {
	a := solveTestFile(t, "mixed.yaml", nil)
	cg := a.ConstraintGraph()
	cur := node(t, a, "cur")
	nxt := node(t, a, "nxt")
	if cg.RepOf(cur) != cg.RepOf(nxt) {
		t.Fatalf("cur and nxt must be merged")
	}
	if !cg.IsPWC(cg.RepOf(cur)) {
		t.Errorf("the cycle through a gep edge must be a positive weight cycle")
	}
	if !a.PAG().IsFieldInsensitive(node(t, a, "node")) {
		t.Errorf("objects pointed to by a positive weight cycle must be collapsed")
	}
	expectPts(t, a, "cur", "node")
	expectPts(t, a, "y", "d")
}

func TestZeroOffsetGepCycle(t *testing.T) {
	a := solveTestFile(t, "gepcycle.yaml", nil)
	cg := a.ConstraintGraph()
	p := node(t, a, "p")
	if cg.RepOf(node(t, a, "q")) != p {
		t.Fatalf("q must be merged into p")
	}
	if !cg.IsPWC(p) {
		t.Errorf("a cycle through a gep edge with offset 0 must be a positive weight cycle")
	}
	if !a.PAG().IsFieldInsensitive(node(t, a, "o")) {
		t.Errorf("o must be collapsed")
	}
	expectPts(t, a, "q", "o")

	a = solveTestFile(t, "gepcycle.yaml", func(c *config.Config) { c.FirstFieldEqBase = true })
	if a.ConstraintGraph().IsPWC(a.ConstraintGraph().RepOf(node(t, a, "p"))) {
		t.Errorf("offset 0 is the base object when the first field is the base")
	}
	if a.PAG().IsFieldInsensitive(node(t, a, "o")) {
		t.Errorf("o must stay field-sensitive")
	}
	expectPts(t, a, "q", "o")
}

func TestZeroOffsetGepWithoutCycle(t *testing.T) {
	a := newGraphAnalysis(nil, func(g *pag.Graph) {
		ptr := memory.NewPointer("ptr", 8)
		o := g.AddObjNode(g.Symbols.CreateObject("o", memory.StackObj, memory.NewStruct("triple", ptr, ptr, ptr)))
		p := g.AddValNode("p")
		q := g.AddValNode("q")
		g.AddEdge(pag.Addr, o, p, pag.NoLabel)
		g.AddGepEdge(p, q, memory.NewAccessPath(0), false)
	})
	if err := a.Analyze(); err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	expectPts(t, a, "q", "o.0")
	checkSoundness(t, a)
}

// newGraphAnalysis returns an analysis of the graph built by build
func newGraphAnalysis(opts func(*config.Config), build func(g *pag.Graph)) *Analysis {
	cfg := config.NewDefault()
	if opts != nil {
		opts(cfg)
	}
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(io.Discard)
	g := pag.NewGraph(cfg, logger)
	build(g)
	return New(g, nil)
}

// randomGraph adds to g a random program over values values and objects three-field objects, with edges edges
func randomGraph(values, objects, edges int, seed int64) func(*pag.Graph) {
	return func(g *pag.Graph) {
		r := rand.New(rand.NewSource(seed))
		ptr := memory.NewPointer("ptr", 8)
		typ := memory.NewStruct("triple", ptr, ptr, ptr)
		var objs, vals []memory.NodeID
		for i := 0; i < objects; i++ {
			objs = append(objs, g.AddObjNode(g.Symbols.CreateObject(fmt.Sprintf("o%d", i), memory.StackObj, typ)))
		}
		for i := 0; i < values; i++ {
			vals = append(vals, g.AddValNode(fmt.Sprintf("v%d", i)))
		}
		label := pag.Label(1)
		for i := 0; i < edges; i++ {
			src, dst := vals[r.Intn(values)], vals[r.Intn(values)]
			kind := r.Intn(6)
			if kind == 0 {
				g.AddEdge(pag.Addr, objs[r.Intn(objects)], dst, pag.NoLabel)
				continue
			}
			if src == dst {
				continue
			}
			switch kind {
			case 1:
				g.AddEdge(pag.Copy, src, dst, pag.NoLabel)
			case 2:
				g.AddEdge(pag.Load, src, dst, pag.NoLabel)
			case 3:
				g.AddEdge(pag.Store, src, dst, label)
				label++
			case 4:
				g.AddGepEdge(src, dst, memory.NewAccessPath(r.Intn(3)), false)
			case 5:
				g.AddGepEdge(src, dst, memory.NewAccessPath(0), true)
			}
		}
	}
}

func TestRandomGraphsAgree(t *testing.T) {
	for i := 0; i < 200; i++ {
		seed := 7364 + int64(i)
		var reference map[string][]string
		for j, s := range strategies {
			a := newGraphAnalysis(func(c *config.Config) {
				c.PtsDiscipline = s.discipline
				c.LazyCycleDetection = s.lazy
			}, randomGraph(8, 4, 25, seed))
			if err := a.Analyze(); err != nil {
				t.Fatalf("seed %d: %s analysis failed: %v", seed, s.name, err)
			}
			checkSoundness(t, a)
			res := results(a)
			if j == 0 {
				reference = res
				continue
			}
			if !reflect.DeepEqual(res, reference) {
				t.Errorf("seed %d: %s and %s disagree:\n%v\n%v", seed, strategies[0].name, s.name, reference, res)
			}
		}
	}
}

func TestMixedProgram(t *testing.T) {
	a := solveTestFile(t, "mixed.yaml", nil)
	g := a.PAG()
	expectPts(t, a, "p1", "a", "b")
	expectPts(t, a, "r1", "a", "b")
	expectPts(t, a, "r2")
	expectPts(t, a, "thread.arg", "b")
	expectPts(t, a, "vr", "c")
	expectPts(t, a, "x", "c")
	expectPts(t, a, "vg", "b")
	// constant objects are never loaded from or stored to
	expectPts(t, a, "z")
	expectPts(t, a, "k")
	expectPts(t, a, "sum.vararg", "b", "c")

	id, _ := g.FunctionByName("id")
	alloc, _ := g.FunctionByName("alloc")
	get, _ := g.FunctionByName("B::get")
	tests := []struct {
		cs      pag.Label
		callees []memory.FuncID
	}{
		{1, []memory.FuncID{id.ID}},
		{2, []memory.FuncID{alloc.ID}},
		{4, []memory.FuncID{get.ID}},
		{6, nil},
	}
	for _, test := range tests {
		got := a.ResolvedCallees(test.cs)
		if len(got) != len(test.callees) || (len(got) > 0 && !reflect.DeepEqual(got, test.callees)) {
			t.Errorf("call site %d: expected callees %v, got %v", test.cs, test.callees, got)
		}
	}

	heap, ok := a.HeapObjectAt(2)
	if !ok {
		t.Fatalf("expected a heap object at call site 2")
	}
	if g.Node(heap).Kind() != pag.DummyObjNode {
		t.Errorf("expected a dummy object, got %s", g.Node(heap).Kind())
	}
	expectPts(t, a, "hp", "heapobj@2")
	if _, ok := a.HeapObjectAt(1); ok {
		t.Errorf("call site 1 does not call an allocator")
	}
}

func TestSoundness(t *testing.T) {
	for _, file := range fixtures {
		t.Run(file, func(t *testing.T) {
			a := solveTestFile(t, file, nil)
			checkSoundness(t, a)
		})
	}
}

func checkSoundness(t *testing.T, a *Analysis) {
	t.Helper()
	for _, e := range a.PAG().Edges() {
		src, dst := e.Src(), e.Dst()
		switch e.Kind() {
		case pag.Addr:
			if !a.PointsTo(dst).Has(src) && !a.PAG().IsFieldInsensitive(src) {
				t.Errorf("%s: pts(%d) must contain %d", e, dst, src)
			}
		case pag.Copy, pag.Call, pag.Ret, pag.ThreadFork, pag.ThreadJoin:
			if !isSubset(a.PointsTo(src), a.PointsTo(dst)) {
				t.Errorf("%s: pts(%d) = %s is not included in pts(%d) = %s", e, src, a.PointsTo(src), dst,
					a.PointsTo(dst))
			}
		case pag.Load:
			for _, o := range a.PointsTo(src).Slice() {
				if a.isNonDereferenceable(o) {
					continue
				}
				if !isSubset(a.PointsTo(o), a.PointsTo(dst)) {
					t.Errorf("%s: pts(%d) is not included in pts(%d)", e, o, dst)
				}
			}
		case pag.Store:
			for _, o := range a.PointsTo(dst).Slice() {
				if a.isNonDereferenceable(o) {
					continue
				}
				if !isSubset(a.PointsTo(src), a.PointsTo(o)) {
					t.Errorf("%s: pts(%d) is not included in pts(%d)", e, src, o)
				}
			}
		case pag.NormalGep, pag.VariantGep:
			for _, o := range a.PointsTo(src).Slice() {
				f := expectedField(a, o, e)
				if !a.PointsTo(dst).Has(f) {
					t.Errorf("%s: pts(%d) = %s must contain %d, the field of %d", e, dst, a.PointsTo(dst), f, o)
				}
				if e.Kind() == pag.VariantGep && !memory.IsBlackHoleOrConstant(o) && !a.PAG().IsFieldInsensitive(o) {
					t.Errorf("%s: object %d must be field-insensitive", e, o)
				}
			}
		}
	}
	for _, ce := range a.CallGraphEdges() {
		if ce.Direct {
			continue
		}
		cs, _ := a.PAG().CallSite(ce.CallSite)
		fn := a.PAG().Function(ce.Callee)
		for i := 0; i < len(cs.Actuals) && i < len(fn.Formals); i++ {
			if !isSubset(a.PointsTo(cs.Actuals[i]), a.PointsTo(fn.Formals[i])) {
				t.Errorf("call site %d: argument %d does not flow to %s", cs.ID, i, fn.Name)
			}
		}
	}
}

// expectedField returns the object that the gep edge e must propagate for the object o
func expectedField(a *Analysis, o memory.NodeID, e *pag.Edge) memory.NodeID {
	if memory.IsBlackHoleOrConstant(o) {
		return o
	}
	n := a.PAG().Node(o)
	switch {
	case e.Kind() == pag.VariantGep || n.Obj().IsFieldInsensitive():
		return n.Obj().ID()
	case n.Kind() == pag.DummyObjNode:
		return o
	default:
		return a.PAG().GepObjNode(o, e.AccessPath().Offset())
	}
}

var strategies = []struct {
	name       string
	discipline string
	lazy       bool
}{
	{"plain", config.DisciplinePlain, false},
	{"diff", config.DisciplineDiff, false},
	{"diff+lcd", config.DisciplineDiff, true},
	{"plain+lcd", config.DisciplinePlain, true},
}

func TestDisciplinesAgree(t *testing.T) {
	for _, file := range fixtures {
		t.Run(file, func(t *testing.T) {
			var reference map[string][]string
			var referenceEdges []callgraph.Edge
			for i, s := range strategies {
				a := solveTestFile(t, file, func(c *config.Config) {
					c.PtsDiscipline = s.discipline
					c.LazyCycleDetection = s.lazy
				})
				if a.Discipline() != s.discipline {
					t.Errorf("expected discipline %s, got %s", s.discipline, a.Discipline())
				}
				res := results(a)
				edges := a.CallGraphEdges()
				if i == 0 {
					reference, referenceEdges = res, edges
					continue
				}
				if !reflect.DeepEqual(res, reference) {
					t.Errorf("%s and %s disagree:\n%v\n%v", strategies[0].name, s.name, reference, res)
				}
				if !reflect.DeepEqual(edges, referenceEdges) {
					t.Errorf("%s and %s disagree on the call graph:\n%v\n%v", strategies[0].name, s.name,
						referenceEdges, edges)
				}
			}
		})
	}
}

func TestMonotonicity(t *testing.T) {
	for _, file := range fixtures {
		t.Run(file, func(t *testing.T) {
			a, _ := newTestAnalysis(t, file, nil)
			prev := map[memory.NodeID]*pts.Set{}
			a.afterProcess = func(_ memory.NodeID) {
				for _, n := range a.PAG().Nodes() {
					cur := a.PointsTo(n.ID())
					if old, ok := prev[n.ID()]; ok {
						if !isSubset(collapsedFields(a, old), cur) {
							t.Errorf("pts(%d) decreased from %s to %s", n.ID(), old, cur)
						}
					}
					prev[n.ID()] = cur.Clone()
				}
			}
			if err := a.Analyze(); err != nil {
				t.Fatalf("analysis failed: %v", err)
			}
		})
	}
}

// collapsedFields replaces the fields of collapsed objects in s by their base object
func collapsedFields(a *Analysis, s *pts.Set) *pts.Set {
	res := pts.NewSet()
	for _, o := range s.Slice() {
		if n := a.PAG().Node(o); n.Kind() == pag.GepObjNode && a.PAG().IsFieldInsensitive(o) {
			res.Add(n.BaseID())
		} else {
			res.Add(o)
		}
	}
	return res
}

func TestCallResolutionIdempotent(t *testing.T) {
	a := solveTestFile(t, "mixed.yaml", nil)
	before := a.CallGraph().NumIndirectEdges()
	if a.updateCallGraph() {
		t.Errorf("resolving call sites again must not find new edges")
	}
	if after := a.CallGraph().NumIndirectEdges(); after != before {
		t.Errorf("expected %d indirect edges, got %d", before, after)
	}
	if before != 3 {
		t.Errorf("expected 3 indirect edges, got %d", before)
	}
}

func TestIndirectCallBudget(t *testing.T) {
	a, buf := newTestAnalysis(t, "scenario_c.yaml", func(c *config.Config) { c.IndirectCallLimit = 1 })
	if err := a.Analyze(); err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	if n := a.CallGraph().NumIndirectEdges(); n != 1 {
		t.Errorf("expected 1 indirect edge, got %d", n)
	}
	msg := "Resolved Indirect Call Edges are Out-Of-Budget, please increase the limit"
	if c := strings.Count(buf.String(), msg); c != 1 {
		t.Errorf("expected the budget warning once, got %d times in:\n%s", c, buf.String())
	}
	// the edge that was added is still connected
	expectPts(t, a, "F.a", "x")
	expectPts(t, a, "G.a")
}

func TestForkThroughFunctionPointer(t *testing.T) {
	a, buf := newTestAnalysis(t, "fork.yaml", nil)
	if err := a.Analyze(); err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	worker, _ := a.PAG().FunctionByName("worker")
	if callees := a.ResolvedCallees(1); !reflect.DeepEqual(callees, []memory.FuncID{worker.ID}) {
		t.Errorf("fork sites match any number of arguments, got callees %v", callees)
	}
	expectPts(t, a, "worker.arg", "x")
	expectPts(t, a, "t")
	if !strings.Contains(buf.String(), "too many args to non-vararg func worker at call site 1") {
		t.Errorf("expected a warning for the extra argument, got:\n%s", buf.String())
	}
}

func TestAlias(t *testing.T) {
	a := solveTestFile(t, "alias.yaml", nil)
	tests := []struct {
		p, q     string
		expected AliasResult
	}{
		{"p", "p2", MayAlias},
		{"p", "f", MayAlias},
		{"f", "f2", MayAlias},
		{"f", "g", NoAlias},
		{"f", "q", NoAlias},
		{"p", "q", NoAlias},
		{"q", "blkptr", MayAlias},
		{"e", "q", NoAlias},
	}
	for _, test := range tests {
		if got := a.IsAlias(node(t, a, test.p), node(t, a, test.q)); got != test.expected {
			t.Errorf("IsAlias(%s, %s) = %s, expected %s", test.p, test.q, got, test.expected)
		}
	}
}

func TestNodeStates(t *testing.T) {
	a := solveTestFile(t, "scenario_b.yaml", nil)
	if s := a.State(node(t, a, "p")); s != Stable {
		t.Errorf("expected p to be stable, got %s", s)
	}
	if s := a.State(memory.NullPtr); s != Unprocessed {
		t.Errorf("expected the null pointer to be unprocessed, got %s", s)
	}
	if a.wl.len() != 0 {
		t.Errorf("the worklist must be empty after solving")
	}
}

func TestAnalyzeTwice(t *testing.T) {
	a := solveTestFile(t, "scenario_b.yaml", nil)
	stats := a.Stats()
	if err := a.Analyze(); err != nil {
		t.Fatalf("second analysis failed: %v", err)
	}
	if a.Stats() != stats {
		t.Errorf("analyzing a solved graph must not do any work")
	}
}
