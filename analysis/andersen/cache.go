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
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/awslabs/ar-go-pta/analysis/memory"
	"github.com/awslabs/ar-go-pta/analysis/pag"
	"github.com/awslabs/ar-go-pta/analysis/pts"
	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"
)

// The cache is a text file:
//
//	# wpa-cache v1 <fingerprint>
//	<node> -> { <obj> ... }
//	------
//	<field object> <base object> <offset>
//	------
//	<call site> <dummy value> <dummy heap object>
//	------
//	<base object> <0|1>
//
// The second and third sections list the nodes created by the solver, which are recreated in ID order when the cache
// is read. The last section lists the field-insensitivity of every base object.
const (
	cacheHeader    = "# wpa-cache v1 "
	cacheSeparator = "------"
	zstdSuffix     = ".zst"
)

// Fingerprint returns a hash of the assignment graph and of the options that change the results of the analysis
func Fingerprint(g *pag.Graph) string {
	h := blake3.New(32, nil)
	cfg := g.Config()
	fmt.Fprintf(h, "options %d %d %t %t\n", cfg.FieldLimit, cfg.IndirectCallLimit, cfg.FieldSensitive,
		cfg.FirstFieldEqBase)
	for _, n := range g.Nodes() {
		fmt.Fprintf(h, "node %d %s %q", n.ID(), n.Kind(), g.Name(n.ID()))
		if obj := n.Obj(); obj != nil {
			fmt.Fprintf(h, " %s %d %t %t", obj.Kind(), obj.MaxFieldOffsetLimit(), obj.IsConstant(),
				obj.IsFieldInsensitive())
		}
		fmt.Fprintln(h)
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(h, "edge %s\n", e)
	}
	for _, f := range g.Functions() {
		fmt.Fprintf(h, "func %q %d %v %d %d %t %t\n", f.Name, f.Obj, f.Formals, f.Ret, f.Vararg, f.Variadic,
			f.HeapAlloc)
	}
	for _, cs := range g.CallSites() {
		fmt.Fprintf(h, "callsite %d %d %d %d %d %d %q %v %d %t %t\n", cs.ID, cs.Caller, cs.Callee, cs.FunPtr,
			cs.VTablePtr, cs.VSlot, cs.VName, cs.Actuals, cs.Ret, cs.Variadic, cs.Fork)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// WriteCache writes the points-to sets and the nodes created by the solver to path. The file is compressed with
// zstd when path ends with .zst.
func (a *Analysis) WriteCache(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create cache file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	var w io.Writer = f
	if strings.HasSuffix(path, zstdSuffix) {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("creating zstd encoder: %w", err)
		}
		defer func() {
			if cerr := enc.Close(); err == nil && cerr != nil {
				err = cerr
			}
		}()
		w = enc
	}
	return a.writeCacheTo(w)
}

func (a *Analysis) writeCacheTo(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s%s\n", cacheHeader, a.fingerprint)
	for _, n := range a.pag.Nodes() {
		s := a.PointsTo(n.ID())
		if !s.IsEmpty() {
			fmt.Fprintf(bw, "%d -> %s\n", n.ID(), s)
		}
	}
	fmt.Fprintln(bw, cacheSeparator)
	for _, gep := range a.pag.GepObjects() {
		fmt.Fprintf(bw, "%d %d %d\n", gep[0], gep[1], gep[2])
	}
	fmt.Fprintln(bw, cacheSeparator)
	for _, cs := range a.heapCallSites() {
		val := a.heapDummies[cs]
		obj, _ := a.HeapObjectAt(cs)
		fmt.Fprintf(bw, "%d %d %d\n", cs, val, obj)
	}
	fmt.Fprintln(bw, cacheSeparator)
	for _, n := range a.pag.Nodes() {
		if n.Obj() != nil && n.BaseID() == n.ID() {
			fi := 0
			if n.Obj().IsFieldInsensitive() {
				fi = 1
			}
			fmt.Fprintf(bw, "%d %d\n", n.ID(), fi)
		}
	}
	return bw.Flush()
}

func (a *Analysis) heapCallSites() []pag.Label {
	res := make([]pag.Label, 0, len(a.heapDummies))
	for cs := range a.heapDummies {
		res = append(res, cs)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// cacheContents is the parsed content of a cache file
type cacheContents struct {
	fingerprint string
	pts         map[memory.NodeID][]memory.NodeID
	ptsOrder    []memory.NodeID
	geps        [][3]int
	heaps       [][3]int
	insensitive map[memory.NodeID]bool
}

// ReadCache loads the results of a previous analysis of the same graph from path. The cache is rejected if its
// fingerprint does not match the graph, or if the field objects it records cannot be recreated with the same IDs.
// Call sites are resolved again with the loaded points-to sets, and the worklist is drained by the next solve.
func (a *Analysis) ReadCache(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open cache file: %w", err)
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(path, zstdSuffix) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	}
	c, err := parseCache(r)
	if err != nil {
		return err
	}
	return a.applyCache(c)
}

func parseCache(r io.Reader) (*cacheContents, error) {
	c := &cacheContents{
		pts:         map[memory.NodeID][]memory.NodeID{},
		insensitive: map[memory.NodeID]bool{},
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading cache: %w", err)
		}
		return nil, fmt.Errorf("empty cache file")
	}
	header := sc.Text()
	if !strings.HasPrefix(header, cacheHeader) {
		return nil, fmt.Errorf("invalid cache header %q", header)
	}
	c.fingerprint = strings.TrimPrefix(header, cacheHeader)

	section := 0
	lineNum := 1
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == cacheSeparator {
			section++
			continue
		}
		var err error
		switch section {
		case 0:
			err = c.parsePtsLine(line)
		case 1:
			var t [3]int
			t, err = parseInts3(line)
			c.geps = append(c.geps, t)
		case 2:
			var t [3]int
			t, err = parseInts3(line)
			c.heaps = append(c.heaps, t)
		case 3:
			err = c.parseInsensitiveLine(line)
		default:
			err = fmt.Errorf("unexpected section")
		}
		if err != nil {
			return nil, fmt.Errorf("cache line %d: %w", lineNum, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}
	if section != 3 {
		return nil, fmt.Errorf("truncated cache: %d sections", section+1)
	}
	return c, nil
}

func (c *cacheContents) parsePtsLine(line string) error {
	lhs, rhs, ok := strings.Cut(line, "->")
	if !ok {
		return fmt.Errorf("expected \"->\" in %q", line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(lhs))
	if err != nil {
		return fmt.Errorf("invalid node ID: %w", err)
	}
	rhs = strings.TrimSpace(rhs)
	if !strings.HasPrefix(rhs, "{") || !strings.HasSuffix(rhs, "}") {
		return fmt.Errorf("expected a set in %q", line)
	}
	var objs []memory.NodeID
	for _, field := range strings.Fields(rhs[1 : len(rhs)-1]) {
		o, err := strconv.Atoi(field)
		if err != nil {
			return fmt.Errorf("invalid object ID: %w", err)
		}
		objs = append(objs, o)
	}
	if _, dup := c.pts[n]; dup {
		return fmt.Errorf("duplicate points-to set for node %d", n)
	}
	c.pts[n] = objs
	c.ptsOrder = append(c.ptsOrder, n)
	return nil
}

func (c *cacheContents) parseInsensitiveLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return fmt.Errorf("expected \"<object> <0|1>\", got %q", line)
	}
	o, err := strconv.Atoi(fields[0])
	if err != nil {
		return fmt.Errorf("invalid object ID: %w", err)
	}
	switch fields[1] {
	case "0":
	case "1":
		c.insensitive[o] = true
	default:
		return fmt.Errorf("invalid field-insensitivity flag %q", fields[1])
	}
	return nil
}

func parseInts3(line string) ([3]int, error) {
	var res [3]int
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return res, fmt.Errorf("expected 3 integers, got %q", line)
	}
	for i, f := range fields {
		x, err := strconv.Atoi(f)
		if err != nil {
			return res, err
		}
		res[i] = x
	}
	return res, nil
}

// cachedNode is a node created by the solver and recorded in a cache. kind is 0 for field objects and 1 for heap
// dummies.
type cachedNode struct {
	id   memory.NodeID
	gep  [3]int
	heap [3]int
	kind int
}

// createdNodes returns the nodes recorded in c in the order in which their IDs were allocated
func (c *cacheContents) createdNodes() []cachedNode {
	var res []cachedNode
	for _, g := range c.geps {
		res = append(res, cachedNode{id: g[0], gep: g})
	}
	for _, h := range c.heaps {
		res = append(res, cachedNode{id: min(h[1], h[2]), heap: h, kind: 1})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].id < res[j].id })
	return res
}

// checkCache checks every section of c against the graph without modifying it. The IDs of the nodes created when
// loading c are predicted from the next ID of the symbol table.
func (a *Analysis) checkCache(c *cacheContents) error {
	if c.fingerprint != a.fingerprint {
		return fmt.Errorf("cache fingerprint %s does not match graph fingerprint %s", c.fingerprint, a.fingerprint)
	}
	first := a.pag.Symbols.NumIDs()
	next := first
	createdObjs := map[memory.NodeID]bool{}
	fields := map[[2]int]bool{}
	for _, t := range c.createdNodes() {
		if t.kind == 1 {
			if t.heap[1] != next || t.heap[2] != next+1 {
				return fmt.Errorf("heap object of call site %d has IDs (%d, %d), expected (%d, %d)", t.heap[0],
					next, next+1, t.heap[1], t.heap[2])
			}
			createdObjs[t.heap[2]] = true
			next += 2
			continue
		}
		id, base, offset := t.gep[0], t.gep[1], t.gep[2]
		if id != next {
			return fmt.Errorf("field object (%d, %d) has ID %d, expected %d", base, offset, next, id)
		}
		if offset < 0 || fields[[2]int{base, offset}] {
			return fmt.Errorf("invalid field object (%d, %d)", base, offset)
		}
		if !createdObjs[base] {
			if err := a.checkFieldBase(base, offset); err != nil {
				return fmt.Errorf("field object %d: %w", id, err)
			}
		}
		fields[[2]int{base, offset}] = true
		createdObjs[id] = true
		next++
	}
	for o := range c.insensitive {
		if !createdObjs[o] && (!a.pag.HasNode(o) || a.pag.Node(o).Obj() == nil) {
			return fmt.Errorf("node %d is not an object", o)
		}
	}
	exists := func(n memory.NodeID) bool {
		return a.pag.HasNode(n) || (n >= first && n < next)
	}
	for _, n := range c.ptsOrder {
		if !exists(n) {
			return fmt.Errorf("unknown node %d", n)
		}
		for _, o := range c.pts[n] {
			if !exists(o) {
				return fmt.Errorf("unknown object %d in the points-to set of %d", o, n)
			}
		}
	}
	return nil
}

// checkFieldBase returns an error if the field at offset of base is not a new field object
func (a *Analysis) checkFieldBase(base memory.NodeID, offset int) error {
	if !a.pag.HasNode(base) {
		return fmt.Errorf("unknown base %d", base)
	}
	n := a.pag.Node(base)
	obj := n.Obj()
	if obj == nil || n.Kind() == pag.GepObjNode || obj.IsFieldInsensitive() {
		return fmt.Errorf("invalid base %d", base)
	}
	if a.pag.Symbols.ModulusOffset(obj, offset) != offset || (a.config.FirstFieldEqBase && offset == 0) {
		return fmt.Errorf("invalid offset %d of base %d", offset, base)
	}
	if _, ok := a.pag.LookupGepObjNode(base, offset); ok {
		return fmt.Errorf("field %d of base %d already exists", offset, base)
	}
	return nil
}

// applyCache checks c against the graph and loads it. Nothing is modified when any section of c does not match the
// graph.
func (a *Analysis) applyCache(c *cacheContents) error {
	if err := a.checkCache(c); err != nil {
		return err
	}
	for _, t := range c.createdNodes() {
		if t.kind == 0 {
			base, offset := t.gep[1], t.gep[2]
			if got := a.fieldObject(base, offset); got != t.gep[0] {
				invariant("field object (%d, %d) has ID %d, expected %d", base, offset, got, t.gep[0])
			}
			continue
		}
		val := a.pag.AddDummyValNode()
		obj := a.pag.AddDummyObjNode(nil)
		if val != t.heap[1] || obj != t.heap[2] {
			invariant("heap object of call site %d has IDs (%d, %d), expected (%d, %d)", t.heap[0], val, obj,
				t.heap[1], t.heap[2])
		}
		a.consCG.AddNode(val)
		a.consCG.AddNode(obj)
		a.heapDummies[pag.Label(t.heap[0])] = val
	}
	for o := range c.insensitive {
		a.pag.Node(o).Obj().SetFieldInsensitive()
	}
	for _, n := range c.ptsOrder {
		a.pts.Union(n, pts.NewSet(c.pts[n]...))
	}
	return nil
}
