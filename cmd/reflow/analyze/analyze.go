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

package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/reflowlabs/reflow/analysis"
	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/coordinator"
	"github.com/reflowlabs/reflow/analysis/lang"
	"github.com/reflowlabs/reflow/analysis/scanner"
	"github.com/reflowlabs/reflow/analysis/state"
	"github.com/reflowlabs/reflow/cmd/reflow/tools"
	"github.com/reflowlabs/reflow/internal/formatutil"
)

const usage = ` Analyze a project and report vulnerability findings.
Usage:
  reflow analyze [options] <project path>
Examples:
  % reflow analyze -config config.yaml ./src
  % reflow analyze -json -fail-on high project.txtar
The project path may be a directory, a single source file or a .txtar bundle.
`

// Flags represents the parsed flags for the analyze command.
type Flags struct {
	tools.CommonFlags
	jsonOut bool
	failOn  string
}

// NewFlags returns the parsed flags for the analyze command with args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("analyze")
	jsonOut := flags.FlagSet.Bool("json", false, "write the report as JSON instead of text")
	failOn := flags.FlagSet.String("fail-on", "", "exit non-zero on findings at or above this severity, overriding config")
	tools.SetUsage(flags.FlagSet, usage)
	if err := flags.FlagSet.Parse(args); err != nil {
		return Flags{}, fmt.Errorf("failed to parse command analyze with args %v: %v", args, err)
	}

	return Flags{
		CommonFlags: tools.CommonFlags{
			FlagSet:    flags.FlagSet,
			ConfigPath: *flags.ConfigPath,
			Verbose:    *flags.Verbose,
		},
		jsonOut: *jsonOut,
		failOn:  *failOn,
	}, nil
}

// Run runs the analysis with flags.
func Run(flags Flags) error {
	logger := log.New(os.Stdout, "", log.Flags())

	cfg, err := tools.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}

	// Override config parameters with command-line parameters
	if flags.Verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}
	if flags.failOn != "" {
		cfg.FailOn = flags.failOn
	}
	if len(flags.FlagSet.Args()) != 1 {
		flags.FlagSet.Usage()
		return fmt.Errorf("analyze expects exactly one project path, got %d", len(flags.FlagSet.Args()))
	}

	lg := config.NewLogGroup(cfg)
	if flags.jsonOut {
		// The report owns stdout in JSON mode.
		logger.SetOutput(os.Stderr)
		lg.SetAllOutput(os.Stderr)
	}

	logger.Printf(formatutil.Faint("Reflow analyze tool - " + analysis.Version))
	logger.Printf(formatutil.Faint("Reading sources") + "\n")

	proj, err := analysis.LoadProject(flags.FlagSet.Args()[0], lg)
	if err != nil {
		return fmt.Errorf("could not load project: %v", err)
	}

	db, err := tools.OpenStore(cfg, lg)
	if err != nil {
		return fmt.Errorf("could not open snapshot store: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	coord := coordinator.New(ctx, cfg, state.NewState(nil), db)

	start := time.Now()
	futures := make([]*coordinator.Future, 0, len(proj.Files))
	for _, f := range proj.Files {
		futures = append(futures, coord.Request(f.Path, f.Content))
	}
	failed := 0
	var firstErr error
	for _, fut := range futures {
		if _, err := fut.Wait(ctx); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			lg.Errorf("analysis of %s failed: %v", fut.Path(), err)
		}
	}
	duration := time.Since(start)
	if err := coord.Close(ctx); err != nil {
		return fmt.Errorf("could not close coordinator: %v", err)
	}

	snap := coord.Snapshot()
	findings := snap.AllFindings()

	if flags.jsonOut {
		if err := writeJSON(os.Stdout, snap); err != nil {
			return fmt.Errorf("could not write report: %v", err)
		}
	} else {
		Report(lg, snap)
		lg.Infof("")
		lg.Infof(strings.Repeat("*", 80))
		lg.Infof("Analysis took %3.4f s", duration.Seconds())
		lg.Infof("")
		if len(findings) == 0 {
			lg.Infof("RESULT:\n\t\t%s", formatutil.Green("No vulnerability findings ✓")) // safe %s
		} else {
			lg.Errorf("RESULT:\n\t\t%s", // safe %s
				formatutil.Red(fmt.Sprintf("%d vulnerability finding(s)!", len(findings))))
		}
	}

	if cfg.ReportsDir != "" {
		if err := writeReportFile(cfg, lg, snap); err != nil {
			lg.Errorf("could not write report file: %v", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("analysis failed on %d file(s): %v", failed, firstErr)
	}
	if cfg.FailOn != "" {
		threshold := scanner.ParseSeverity(cfg.FailOn)
		n := 0
		for _, f := range findings {
			if scanner.SeverityGTE(f.Severity, threshold) {
				n++
			}
		}
		if n > 0 {
			return fmt.Errorf("%d finding(s) at or above severity %s", n, threshold)
		}
	}
	return nil
}

// Report logs every finding the snapshot carries, in the stable report
// order, followed by the files whose latest update failed.
func Report(lg *config.LogGroup, snap *state.Snapshot) {
	for _, f := range snap.AllFindings() {
		label := ""
		if len(f.Labels) > 0 {
			label = " [" + strings.Join(f.Labels, ", ") + "]"
		}
		lg.Warnf("%s %s in function %s:\n\tSink: %s at %s:%d:%d%s\n\t%s",
			severityTag(f.Severity), f.RuleID, f.Function,
			f.Sink, f.File, f.Span.Start.Line, f.Span.Start.Col, label,
			f.Message)
	}
	for _, path := range snap.StalePaths() {
		info := snap.Stale[path]
		lg.Warnf("%s %s: %s (last good version still reported)",
			formatutil.Yellow("[STALE]"), path, info.Reason)
	}
}

func severityTag(s scanner.Severity) string {
	tag := "[" + strings.ToUpper(string(s)) + "]"
	switch s {
	case scanner.SeverityCritical, scanner.SeverityHigh:
		return formatutil.Red(tag)
	case scanner.SeverityMedium:
		return formatutil.Yellow(tag)
	default:
		return formatutil.Faint(tag)
	}
}

type staleEntry struct {
	Path   string   `json:"path"`
	Reason string   `json:"reason"`
	Pos    lang.Pos `json:"pos"`
}

type report struct {
	Generation uint64            `json:"generation"`
	Files      []string          `json:"files"`
	Findings   []scanner.Finding `json:"findings"`
	Stale      []staleEntry      `json:"stale,omitempty"`
}

func newReport(snap *state.Snapshot) report {
	r := report{
		Generation: snap.Generation,
		Files:      snap.Paths(),
		Findings:   snap.AllFindings(),
	}
	for _, path := range snap.StalePaths() {
		info := snap.Stale[path]
		r.Stale = append(r.Stale, staleEntry{Path: path, Reason: info.Reason, Pos: info.Pos})
	}
	return r
}

func writeJSON(w io.Writer, snap *state.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newReport(snap))
}

func writeReportFile(cfg *config.Config, lg *config.LogGroup, snap *state.Snapshot) error {
	dir := cfg.RelPath(cfg.ReportsDir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("could not create directory %s: %v", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "findings-*.json")
	if err != nil {
		return err
	}
	defer tmp.Close()
	if err := writeJSON(tmp, snap); err != nil {
		return err
	}
	lg.Infof("Full report in %s", tmp.Name())
	return nil
}
