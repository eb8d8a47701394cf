// Copyright Reflow Labs, Inc. or its affiliates. All Rights Reserved.
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

// Package render implements a tool for rendering visualizations of analyzed
// projects.
// -cgout Given a path for a .dot file, writes the cross-file call graph of
// the project in that file.
// -cfgout Given a path for a .dot file and -func a function name, writes
// that function's control flow graph annotated with its converged dataflow
// facts.
package render

import (
	"context"
	"fmt"
	"os"

	"github.com/reflowlabs/reflow/analysis"
	"github.com/reflowlabs/reflow/analysis/callgraph"
	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/coordinator"
	"github.com/reflowlabs/reflow/analysis/state"
	"github.com/reflowlabs/reflow/analysis/store"
	"github.com/reflowlabs/reflow/cmd/reflow/tools"
	"github.com/reflowlabs/reflow/internal/formatutil"
)

const usage = `Render graphviz views of your project.
Usage:
  reflow render [options] <project path>
Examples:
Render the cross-file call graph
  % reflow render -cgout callgraph.dot ./src
Render one function's control flow graph with its converged facts
  % reflow render -func parse_header -cfgout parse_header.dot ./src
`

// Flags represents the parsed render sub-command flags.
type Flags struct {
	tools.CommonFlags
	cgOut  string
	cfgOut string
	fn     string
}

// NewFlags returns the parsed render sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("render")
	cgOut := flags.FlagSet.String("cgout", "", "output file for the call graph (no output if not specified)")
	cfgOut := flags.FlagSet.String("cfgout", "", "output file for a function's control flow graph (no output if not specified)")
	fn := flags.FlagSet.String("func", "", "name of the function to render with -cfgout")
	tools.SetUsage(flags.FlagSet, usage)
	if err := flags.FlagSet.Parse(args); err != nil {
		return Flags{}, fmt.Errorf("failed to parse command render with args %v: %v", args, err)
	}

	return Flags{
		CommonFlags: tools.CommonFlags{
			FlagSet:    flags.FlagSet,
			ConfigPath: *flags.ConfigPath,
			Verbose:    *flags.Verbose,
		},
		cgOut:  *cgOut,
		cfgOut: *cfgOut,
		fn:     *fn,
	}, nil
}

// Run runs the render tool with flags.
func Run(flags Flags) error {
	if flags.cfgOut != "" && flags.fn == "" {
		return fmt.Errorf("-cfgout requires -func")
	}

	cfg, err := tools.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.Verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}
	if len(flags.FlagSet.Args()) != 1 {
		flags.FlagSet.Usage()
		return fmt.Errorf("render expects exactly one project path, got %d", len(flags.FlagSet.Args()))
	}

	lg := config.NewLogGroup(cfg)
	fmt.Fprintf(os.Stderr, formatutil.Faint("Reading sources")+"\n")

	proj, err := analysis.LoadProject(flags.FlagSet.Args()[0], lg)
	if err != nil {
		return fmt.Errorf("could not load project: %v", err)
	}

	// Rendering is a read-only view; it never touches the snapshot store.
	ctx := context.Background()
	coord := coordinator.New(ctx, cfg, state.NewState(nil), store.Nop{})
	futures := make([]*coordinator.Future, 0, len(proj.Files))
	for _, f := range proj.Files {
		futures = append(futures, coord.Request(f.Path, f.Content))
	}
	for _, fut := range futures {
		if _, err := fut.Wait(ctx); err != nil {
			lg.Warnf("analysis of %s failed: %v", fut.Path(), err)
		}
	}
	if err := coord.Close(ctx); err != nil {
		return fmt.Errorf("could not close coordinator: %v", err)
	}
	snap := coord.Snapshot()

	if flags.cgOut != "" {
		fmt.Fprintf(os.Stderr, "%s\n", formatutil.Faint("Writing call graph in "+flags.cgOut))
		if err := writeCallGraph(snap, flags.cgOut); err != nil {
			return fmt.Errorf("could not print call graph: %v", err)
		}
	}

	if flags.cfgOut != "" {
		fmt.Fprintf(os.Stderr, "%s\n", formatutil.Faint("Writing control flow graph in "+flags.cfgOut))
		if err := writeCFG(snap, flags.fn, flags.cfgOut); err != nil {
			return fmt.Errorf("could not print control flow graph: %v", err)
		}
	}

	return nil
}

func writeCallGraph(snap *state.Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create output file: %v", err)
	}
	defer f.Close()
	return callgraph.Build(snap).WriteGraphviz(f)
}

func writeCFG(snap *state.Snapshot, name, path string) error {
	info, ok := snap.Function(name)
	if !ok {
		return fmt.Errorf("no function %q in the analyzed project", name)
	}
	fs, ok := snap.File(info.File)
	if !ok {
		return fmt.Errorf("no artifacts for file %s", info.File)
	}
	fv := fs.Function(name)
	if fv == nil {
		return fmt.Errorf("no artifacts for function %q in %s", name, info.File)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create output file: %v", err)
	}
	defer f.Close()
	return callgraph.WriteCFGGraphviz(f, fv)
}
