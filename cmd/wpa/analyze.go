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
	"sort"

	"github.com/awslabs/ar-go-pta/analysis/andersen"
	"github.com/awslabs/ar-go-pta/analysis/config"
	"github.com/awslabs/ar-go-pta/analysis/memory"
	"github.com/awslabs/ar-go-pta/analysis/pagfile"
	"github.com/awslabs/ar-go-pta/analysis/pts"
	"github.com/spf13/cobra"
)

// loadConfig reads the config file, if any, and applies the flags that have been set on the command line
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg := config.NewDefault()
	if opts.configPath != "" {
		c, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	flags := cmd.Flags()
	if flags.Changed("discipline") {
		cfg.PtsDiscipline = opts.discipline
	}
	if flags.Changed("lazy-cycle") {
		cfg.LazyCycleDetection = opts.lazyCycle
	}
	if flags.Changed("field-limit") {
		cfg.FieldLimit = opts.fieldLimit
	}
	if flags.Changed("ind-call-limit") {
		cfg.IndirectCallLimit = opts.indCallLimit
	}
	if flags.Changed("read-cache") {
		cfg.ReadCache = opts.readCache
	}
	if flags.Changed("write-cache") {
		cfg.WriteCache = opts.writeCache
	}
	if opts.verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// analyze builds the assignment graph described in the file at path and solves it
func analyze(cmd *cobra.Command, opts *options, path string) (*andersen.Analysis, *config.Config, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, nil, err
	}
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(cmd.ErrOrStderr())

	prog, err := pagfile.LoadProgram(path, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	a := andersen.New(prog.Graph, prog.VTables)
	if err := a.Analyze(); err != nil {
		return nil, nil, fmt.Errorf("analysis of %s failed: %w", path, err)
	}
	return a, cfg, nil
}

// lookupNode returns the node of the value or object called name
func lookupNode(a *andersen.Analysis, name string) (memory.NodeID, error) {
	id, ok := a.PAG().Symbols.Lookup(name)
	if !ok || !a.PAG().HasNode(id) {
		return memory.InvalidID, fmt.Errorf("unknown entity %q", name)
	}
	return id, nil
}

func nodeNames(a *andersen.Analysis, s *pts.Set) []string {
	ids := s.Slice()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = a.PAG().Name(id)
	}
	return names
}

func funcNames(a *andersen.Analysis, ids []memory.FuncID) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = a.PAG().Function(id).Name
	}
	sort.Strings(names)
	return names
}
