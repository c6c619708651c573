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

// Package andersen implements an inclusion-based (Andersen-style) whole-program pointer analysis over the
// assignment graph of the pag package.
//
// The analysis solves the constraint graph derived from the assignment graph with a worklist algorithm:
//   - points-to sets are seeded by address edges, then propagated along copy and gep edges;
//   - load and store edges are resolved into new copy edges as the points-to sets of their pointers grow;
//   - cycles of copy and gep edges are detected and collapsed into a single representative node;
//   - field objects are created on demand, and objects accessed with unknown offsets are collapsed;
//   - indirect and virtual calls are resolved on the fly, and the new call edges are fed back into the solver.
//
// The points-to sets can be propagated in full along every edge, or as differences (see config.Options), and cycles
// can be detected lazily; every combination computes the same result.
package andersen

import (
	"fmt"
	"time"

	"github.com/awslabs/ar-go-pta/analysis/callgraph"
	"github.com/awslabs/ar-go-pta/analysis/config"
	"github.com/awslabs/ar-go-pta/analysis/consgraph"
	"github.com/awslabs/ar-go-pta/analysis/memory"
	"github.com/awslabs/ar-go-pta/analysis/pag"
	"github.com/awslabs/ar-go-pta/analysis/pts"
	"github.com/pkg/errors"
)

// Stats counts the work done by the solver
type Stats struct {
	Iterations     int
	ProcessedNodes int
	SCCDetections  int
	MergedNodes    int
	CollapsedObjs  int
	IndirectEdges  int
	FieldObjects   int
	Duration       time.Duration
}

// Analysis holds the state of the pointer analysis of one assignment graph
type Analysis struct {
	config *config.Config
	logger *config.LogGroup

	pag       *pag.Graph
	consCG    *consgraph.Graph
	pts       *pts.Map
	prop      pts.Propagator
	callGraph *callgraph.Graph
	cha       callgraph.ClassHierarchy

	wl *worklist

	// toCollapse are the base objects set field-insensitive whose fields have not been merged yet
	toCollapse       []memory.NodeID
	toCollapseQueued map[memory.NodeID]bool

	// heapDummies maps an indirect call site to the value pointing to the heap object it allocates
	heapDummies map[pag.Label]memory.NodeID

	lazyCycles    bool
	lcdChecked    map[int]bool
	lcdCandidates map[memory.NodeID]bool

	reanalyze      bool
	budgetExceeded bool
	solved         bool

	fingerprint string
	stats       Stats

	// afterProcess is called after each node is processed
	afterProcess func(n memory.NodeID)
}

func invariant(format string, args ...any) {
	panic(errors.Errorf("andersen: "+format, args...))
}

// New returns an analysis of g. The configuration and logger are the ones of g. cha resolves virtual calls; it may
// be nil if the program has none.
func New(g *pag.Graph, cha callgraph.ClassHierarchy) *Analysis {
	cfg := g.Config()
	a := &Analysis{
		config:           cfg,
		logger:           g.Logger(),
		pag:              g,
		pts:              pts.NewMap(),
		prop:             pts.NewPropagator(cfg.PtsDiscipline),
		callGraph:        callgraph.New(g),
		cha:              cha,
		wl:               newWorklist(),
		toCollapseQueued: map[memory.NodeID]bool{},
		heapDummies:      map[pag.Label]memory.NodeID{},
		lazyCycles:       cfg.LazyCycleDetection,
		lcdChecked:       map[int]bool{},
		lcdCandidates:    map[memory.NodeID]bool{},
	}
	// The fingerprint describes the graph before the solver adds nodes to it
	a.fingerprint = Fingerprint(g)
	a.consCG = consgraph.New(g)
	return a
}

// PAG returns the assignment graph of the analysis
func (a *Analysis) PAG() *pag.Graph { return a.pag }

// ConstraintGraph returns the constraint graph of the analysis
func (a *Analysis) ConstraintGraph() *consgraph.Graph { return a.consCG }

// CallGraph returns the call graph built by the analysis
func (a *Analysis) CallGraph() *callgraph.Graph { return a.callGraph }

// Stats returns the statistics of the last call to Analyze
func (a *Analysis) Stats() Stats { return a.stats }

// Discipline returns the name of the propagation discipline used by the analysis
func (a *Analysis) Discipline() string { return a.prop.Name() }

// Fingerprint returns the fingerprint of the graph, which identifies the caches it can be loaded from
func (a *Analysis) Fingerprint() string { return a.fingerprint }

// State returns the worklist state of node n
func (a *Analysis) State(n memory.NodeID) NodeState { return a.wl.state(n) }

// Analyze runs the analysis to a fixpoint. When the configuration has a read-cache, the results are loaded from the
// cache if it matches the graph; on any cache error the analysis is solved from scratch. When the configuration has
// a write-cache, the results are written to it after solving. The returned error is an error writing the cache; the
// results of the analysis are complete even when it is not nil.
func (a *Analysis) Analyze() error {
	if a.solved {
		return nil
	}
	start := time.Now()
	loaded := false
	if a.config.ReadCache != "" {
		path := a.config.RelPath(a.config.ReadCache)
		if err := a.ReadCache(path); err != nil {
			a.logger.Warnf("could not read points-to cache %s, solving from scratch: %v", path, err)
		} else {
			a.logger.Infof("loaded points-to cache %s", path)
			loaded = true
		}
	}
	if !loaded {
		a.processAllAddr()
	}
	a.solve()
	a.solved = true
	a.stats.Duration = time.Since(start)
	a.stats.IndirectEdges = a.callGraph.NumIndirectEdges()
	a.logger.Infof("pointer analysis (%s) done in %.2fs: %d iterations, %d nodes processed, %d merged, "+
		"%d indirect call edges", a.prop.Name(), a.stats.Duration.Seconds(), a.stats.Iterations,
		a.stats.ProcessedNodes, a.stats.MergedNodes, a.stats.IndirectEdges)

	if a.config.WriteCache != "" {
		path := a.config.RelPath(a.config.WriteCache)
		if err := a.WriteCache(path); err != nil {
			return fmt.Errorf("failed to write points-to cache: %w", err)
		}
		a.logger.Infof("wrote points-to cache %s", path)
	}
	return nil
}

// solve alternates between solving the worklist and resolving indirect calls until no new call edge is found
func (a *Analysis) solve() {
	for {
		a.stats.Iterations++
		a.reanalyze = false
		a.logger.Debugf("solver iteration %d, %d nodes in worklist", a.stats.Iterations, a.wl.len())
		a.solveWorklist()
		if a.updateCallGraph() {
			a.reanalyze = true
		}
		if !a.reanalyze {
			return
		}
	}
}

// processAllAddr seeds the points-to sets with the address edges
func (a *Analysis) processAllAddr() {
	for id := 0; id < a.consCG.MaxID(); id++ {
		if !a.consCG.HasNode(id) {
			continue
		}
		for _, e := range a.consCG.InEdges(id, consgraph.Addr) {
			if a.pts.Add(e.Dst, e.Src) {
				a.push(e.Dst)
			}
		}
	}
}

// push adds the representative of n to the worklist
func (a *Analysis) push(n memory.NodeID) {
	a.wl.push(a.consCG.RepOf(n))
}

// addCopyEdge adds a copy edge between the representatives of src and dst and returns true if it is new
func (a *Analysis) addCopyEdge(src, dst memory.NodeID) bool {
	return a.consCG.AddCopyEdge(a.consCG.RepOf(src), a.consCG.RepOf(dst)) != nil
}
