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

// Package main provides the wpa CLI, which runs the whole-program pointer analysis on assignment graphs described
// in YAML files.
package main

import (
	"fmt"
	"os"

	"github.com/awslabs/ar-go-pta/internal/formatutil"
	"github.com/spf13/cobra"
)

// Version is the current wpa version
var Version = "0.3.0"

// options holds the flags shared by the analysis commands
type options struct {
	configPath   string
	discipline   string
	lazyCycle    bool
	fieldLimit   int
	indCallLimit int
	readCache    string
	writeCache   string
	verbose      bool
	noColor      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "wpa",
		Short: "wpa - whole-program pointer analysis",
		Long: `wpa runs an inclusion-based pointer analysis on an assignment graph described in a YAML file, and
reports points-to sets, aliases and the resolved call graph.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				formatutil.SetColors(false)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (YAML)")
	flags.StringVar(&opts.discipline, "discipline", "", "Points-to propagation discipline: plain or diff")
	flags.BoolVar(&opts.lazyCycle, "lazy-cycle", false, "Enable lazy cycle detection")
	flags.IntVar(&opts.fieldLimit, "field-limit", 0, "Maximum number of field slots of an object")
	flags.IntVar(&opts.indCallLimit, "ind-call-limit", 0, "Maximum number of resolved indirect call edges")
	flags.StringVar(&opts.readCache, "read-cache", "", "Load points-to sets from a cache file")
	flags.StringVar(&opts.writeCache, "write-cache", "", "Write points-to sets to a cache file (.zst to compress)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newSolveCmd(opts))
	rootCmd.AddCommand(newAliasCmd(opts))
	rootCmd.AddCommand(newCallGraphCmd(opts))
	rootCmd.AddCommand(newRunsCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", formatutil.Red("error:"), err)
		os.Exit(1)
	}
}
