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

// Package resultdb exports the results of pointer analyses to an SQLite database.
//
// Every call to SaveRun stores one run: the nodes of the analyzed graph, their points-to sets and the call graph.
// Runs are identified by a UUID and can be read back with PointsTo and CallEdges.
package resultdb

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/awslabs/ar-go-pta/analysis/callgraph"
	"github.com/awslabs/ar-go-pta/analysis/memory"
	"github.com/awslabs/ar-go-pta/analysis/pag"
	"github.com/awslabs/ar-go-pta/analysis/pts"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

//go:embed pragmas.sql
var pragmasSQL string

var (
	// ErrRunNotFound is returned when reading a run that is not in the database
	ErrRunNotFound = errors.New("run not found")
	// ErrNodeNotFound is returned when looking up a node name that is not in a run
	ErrNodeNotFound = errors.New("node not found")
)

// Results is the part of an analysis that is saved in the database
type Results interface {
	PAG() *pag.Graph
	PointsTo(id memory.NodeID) *pts.Set
	CallGraphEdges() []callgraph.Edge
	Discipline() string
	Fingerprint() string
}

// Run describes a saved run
type Run struct {
	ID          string
	CreatedMs   int64
	Source      string
	Discipline  string
	Nodes       int
	Fingerprint string
}

// DB wraps a SQLite connection
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the database at path
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// pragmas are set per connection
	conn.SetMaxOpenConns(1)
	for _, pragma := range strings.Split(pragmasSQL, "\n") {
		pragma = strings.TrimSpace(pragma)
		if pragma == "" || strings.HasPrefix(pragma, "--") {
			continue
		}
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the path of the database file
func (db *DB) Path() string { return db.path }

// SaveRun saves the results of an analysis of the graph read from source, and returns the ID of the new run
func (db *DB) SaveRun(r Results, source string) (string, error) {
	id := uuid.New().String()
	g := r.PAG()
	tx, err := db.conn.Begin()
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, created_ms, source, discipline, nodes, fingerprint) VALUES (?, ?, ?, ?, ?, ?)`,
		id, time.Now().UnixMilli(), source, r.Discipline(), g.NumNodes(), r.Fingerprint(),
	); err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	nodeStmt, err := tx.Prepare(`INSERT INTO nodes (run_id, node, name, kind) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing node insert: %w", err)
	}
	defer nodeStmt.Close()
	ptsStmt, err := tx.Prepare(`INSERT INTO points_to (run_id, node, obj) VALUES (?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing points-to insert: %w", err)
	}
	defer ptsStmt.Close()

	for _, n := range g.Nodes() {
		if _, err := nodeStmt.Exec(id, n.ID(), g.Name(n.ID()), n.Kind().String()); err != nil {
			return "", fmt.Errorf("inserting node %d: %w", n.ID(), err)
		}
		for _, o := range r.PointsTo(n.ID()).Slice() {
			if _, err := ptsStmt.Exec(id, n.ID(), o); err != nil {
				return "", fmt.Errorf("inserting points-to set of %d: %w", n.ID(), err)
			}
		}
	}

	for _, e := range r.CallGraphEdges() {
		if _, err := tx.Exec(
			`INSERT INTO call_edges (run_id, callsite, caller, callee, direct) VALUES (?, ?, ?, ?, ?)`,
			id, int(e.CallSite), e.Caller, e.Callee, e.Direct,
		); err != nil {
			return "", fmt.Errorf("inserting call edge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// Run returns the run with ID id
func (db *DB) Run(id string) (*Run, error) {
	var r Run
	err := db.conn.QueryRow(
		`SELECT id, created_ms, source, discipline, nodes, fingerprint FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.CreatedMs, &r.Source, &r.Discipline, &r.Nodes, &r.Fingerprint)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return &r, nil
}

// Runs returns all the runs, oldest first
func (db *DB) Runs() ([]Run, error) {
	rows, err := db.conn.Query(
		`SELECT id, created_ms, source, discipline, nodes, fingerprint FROM runs ORDER BY created_ms, id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()
	var res []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CreatedMs, &r.Source, &r.Discipline, &r.Nodes, &r.Fingerprint); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return res, nil
}

// NodeByName returns the ID of the node named name in run runID
func (db *DB) NodeByName(runID, name string) (memory.NodeID, error) {
	var id memory.NodeID
	err := db.conn.QueryRow(`SELECT node FROM nodes WHERE run_id = ? AND name = ?`, runID, name).Scan(&id)
	if err == sql.ErrNoRows {
		return memory.InvalidID, ErrNodeNotFound
	}
	if err != nil {
		return memory.InvalidID, fmt.Errorf("querying node: %w", err)
	}
	return id, nil
}

// PointsTo returns the points-to set of node in run runID, in increasing order
func (db *DB) PointsTo(runID string, node memory.NodeID) ([]memory.NodeID, error) {
	if _, err := db.Run(runID); err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(`SELECT obj FROM points_to WHERE run_id = ? AND node = ? ORDER BY obj`, runID, node)
	if err != nil {
		return nil, fmt.Errorf("querying points-to set: %w", err)
	}
	defer rows.Close()
	var res []memory.NodeID
	for rows.Next() {
		var o memory.NodeID
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("scanning points-to set: %w", err)
		}
		res = append(res, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating points-to set: %w", err)
	}
	return res, nil
}

// CallEdges returns the call edges of run runID, ordered by call site then callee
func (db *DB) CallEdges(runID string) ([]callgraph.Edge, error) {
	if _, err := db.Run(runID); err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(
		`SELECT callsite, caller, callee, direct FROM call_edges WHERE run_id = ? ORDER BY callsite, callee`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying call edges: %w", err)
	}
	defer rows.Close()
	var res []callgraph.Edge
	for rows.Next() {
		var cs int
		var e callgraph.Edge
		if err := rows.Scan(&cs, &e.Caller, &e.Callee, &e.Direct); err != nil {
			return nil, fmt.Errorf("scanning call edge: %w", err)
		}
		e.CallSite = pag.Label(cs)
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating call edges: %w", err)
	}
	return res, nil
}

// DeleteRun removes a run and its results
func (db *DB) DeleteRun(runID string) error {
	res, err := db.conn.Exec(`DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}
