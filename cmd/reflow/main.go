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

package main

import (
	"fmt"
	"os"

	"github.com/reflowlabs/reflow/analysis"
	"github.com/reflowlabs/reflow/cmd/reflow/analyze"
	"github.com/reflowlabs/reflow/cmd/reflow/cli"
	"github.com/reflowlabs/reflow/cmd/reflow/render"
	"github.com/reflowlabs/reflow/cmd/reflow/tools"
	"github.com/reflowlabs/reflow/cmd/reflow/watch"
)

const usage = `Reflow: incremental dataflow analysis service
Usage:
  reflow [tool] [options] <project path>
Tools:
  - analyze: analyzes a project once and reports vulnerability findings
  - watch: reads file update events from stdin and streams results as they commit
  - cli: interactive terminal-like interface over the analysis state
  - render: renders graphviz views of the call graph or a function's control flow graph
  - version: prints the version
Examples:
  Analyze a project: reflow analyze --config=config.yaml ./src
  Run the interactive CLI: reflow cli --config=config.yaml ./src`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "error: expected subcommand\n%s\n", usage)
		os.Exit(2)
	}

	// hardcode help flag
	if snd := os.Args[1]; snd == "-help" || snd == "--help" {
		fmt.Println(usage)
		return
	}

	// hardcode version flag
	if snd := os.Args[1]; snd == "-version" || snd == "--version" {
		fmt.Println(analysis.Version)
		return
	}

	args := os.Args[2:]
	switch cmd := os.Args[1]; cmd {
	case "analyze":
		flags, err := analyze.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := analyze.Run(flags); err != nil {
			errExit(err)
		}
	case "watch":
		flags, err := watch.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := watch.Run(flags); err != nil {
			errExit(err)
		}
	case "cli":
		flags, err := tools.NewCommonFlags("cli", args, cli.Usage)
		if err != nil {
			errExit(err)
		}
		if err := cli.Run(flags); err != nil {
			errExit(err)
		}
	case "render":
		flags, err := render.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := render.Run(flags); err != nil {
			errExit(err)
		}
	case "version":
		fmt.Println(analysis.Version)
	default:
		fmt.Fprintf(os.Stderr, "error: unexpected command: %v\n", cmd)
		fmt.Fprintf(os.Stderr, "usage:\n%s\n", usage)
		os.Exit(2)
	}
}

func errExit(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	hint := tools.HintForErrorMessage(err.Error())
	if hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	}
	os.Exit(2)
}
