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
	"fmt"
	"time"

	"github.com/awslabs/ar-go-pta/analysis/andersen"
	"github.com/awslabs/ar-go-pta/analysis/resultdb"
	"github.com/awslabs/ar-go-pta/internal/formatutil"
	"github.com/spf13/cobra"
)

func newSolveCmd(opts *options) *cobra.Command {
	var all bool
	var dbPath string
	cmd := &cobra.Command{
		Use:   "solve <graph.yaml>",
		Short: "Solve the pointer analysis and print points-to sets",
		Long: `Solve the pointer analysis of the graph and print the points-to sets of the values, or of the entities
selected by the report section of the config file. With --all, every node is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, err := analyze(cmd, opts, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			g := a.PAG()
			for _, n := range g.Nodes() {
				name := g.Name(n.ID())
				if !all && !cfg.IsReported(name, n.Kind().String()) {
					continue
				}
				fmt.Fprintf(out, "%s -> %s\n", formatutil.Bold(formatutil.Sanitize(name)),
					formatutil.Set(nodeNames(a, a.PointsTo(n.ID())), formatutil.Cyan))
			}

			if dbPath == "" && cfg.ResultDB != "" {
				dbPath = cfg.RelPath(cfg.ResultDB)
			}
			if dbPath == "" {
				return nil
			}
			db, err := resultdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			id, err := db.SaveRun(a, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s run %s to %s\n", formatutil.Green("saved"), id, db.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Print the points-to sets of all nodes")
	cmd.Flags().StringVar(&dbPath, "db", "", "Save the results to an SQLite database")
	return cmd
}

func newAliasCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "alias <graph.yaml> <p> <q>",
		Short: "Print whether two pointers may alias",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := analyze(cmd, opts, args[0])
			if err != nil {
				return err
			}
			p, err := lookupNode(a, args[1])
			if err != nil {
				return err
			}
			q, err := lookupNode(a, args[2])
			if err != nil {
				return err
			}
			res := a.IsAlias(p, q)
			style := formatutil.Green
			if res == andersen.MayAlias {
				style = formatutil.Yellow
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", formatutil.Sanitize(args[1]),
				formatutil.Sanitize(args[2]), style(res))
			return nil
		},
	}
}

func newCallGraphCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "callgraph <graph.yaml>",
		Short: "Print the call graph resolved by the analysis",
		Long: `Print one line per call edge: the call site, the caller and the callee. Indirect edges are the ones
resolved by the analysis. Functions that are part of a cycle of the call graph are marked as recursive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := analyze(cmd, opts, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			g := a.PAG()
			recursive := a.CallGraph().RecursiveFunctions()
			isRecursive := map[int]bool{}
			for _, f := range recursive {
				isRecursive[f] = true
			}
			for _, e := range a.CallGraphEdges() {
				kind := formatutil.Faint("direct")
				if !e.Direct {
					kind = formatutil.Purple("indirect")
				}
				callee := formatutil.Sanitize(g.Function(e.Callee).Name)
				if isRecursive[e.Callee] {
					callee += " " + formatutil.Yellow("(recursive)")
				}
				fmt.Fprintf(out, "@%d %s -> %s [%s]\n", e.CallSite, formatutil.Sanitize(g.Function(e.Caller).Name),
					callee, kind)
			}
			if len(recursive) > 0 {
				fmt.Fprintf(out, "recursive functions: %s\n", formatutil.Set(funcNames(a, recursive), formatutil.Yellow))
			}
			return nil
		},
	}
}

func newRunsCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the runs saved in a results database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := resultdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			runs, err := db.Runs()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				fmt.Fprintf(out, "%s %s %s %s (%d nodes)\n", formatutil.Bold(r.ID),
					time.UnixMilli(r.CreatedMs).UTC().Format(time.RFC3339), r.Source, r.Discipline, r.Nodes)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Results database")
	cmd.MarkFlagRequired("db")
	return cmd
}
