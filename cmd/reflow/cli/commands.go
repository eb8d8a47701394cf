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

package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/reflowlabs/reflow/analysis"
	"github.com/reflowlabs/reflow/analysis/callgraph"
	"github.com/reflowlabs/reflow/analysis/dataflow"
	"github.com/reflowlabs/reflow/analysis/scanner"
	"github.com/reflowlabs/reflow/analysis/state"
	"github.com/reflowlabs/reflow/analysis/store"
	"github.com/reflowlabs/reflow/internal/funcutil"
	"golang.org/x/term"
)

const cmdLoadName = "load"

// cmdLoad pushes a file, directory or txtar bundle through the
// coordinator and waits for every update to settle.
func cmdLoad(tt *term.Terminal, s *session, command Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : load a file, directory or txtar bundle into the analysis\n",
			tt.Escape.Blue, cmdLoadName, tt.Escape.Reset)
		return false
	}
	if len(command.Args) != 1 {
		WriteErr(tt, "load expects one path argument")
		return false
	}
	proj, err := analysis.LoadProject(command.Args[0], s.lg)
	if err != nil {
		WriteErr(tt, "could not load %s: %v", command.Args[0], err)
		return false
	}
	server.ProjectPath = command.Args[0]
	committed := 0
	for _, f := range proj.Files {
		res, err := s.coord.Request(f.Path, f.Content).Wait(s.ctx)
		if err != nil {
			WriteErr(tt, "%s: %v", f.Path, err)
			continue
		}
		committed++
		writeFmt(tt, "committed %s at generation %d (%d findings)\n",
			res.Path, res.Generation, len(res.Findings))
	}
	WriteSuccess(tt, "Loaded %d/%d file(s), snapshot generation %d.",
		committed, len(proj.Files), s.coord.Snapshot().Generation)
	return false
}

const cmdRmName = "rm"

// cmdRm removes a file's artifacts from the analysis.
func cmdRm(tt *term.Terminal, s *session, command Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : remove a file from the analysis\n",
			tt.Escape.Blue, cmdRmName, tt.Escape.Reset)
		return false
	}
	if len(command.Args) != 1 {
		WriteErr(tt, "rm expects one path argument")
		return false
	}
	res, err := s.coord.Remove(command.Args[0]).Wait(s.ctx)
	if err != nil {
		WriteErr(tt, "could not remove %s: %v", command.Args[0], err)
		return false
	}
	WriteSuccess(tt, "Removed %s, snapshot generation %d.", res.Path, res.Generation)
	return false
}

const cmdListName = "list"

// cmdList lists the files of the current snapshot, stale ones in red.
func cmdList(tt *term.Terminal, s *session, _ Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : list analyzed files\n", tt.Escape.Blue, cmdListName, tt.Escape.Reset)
		return false
	}
	snap := s.coord.Snapshot()
	if len(snap.Files) == 0 && len(snap.Stale) == 0 {
		WriteSuccess(tt, "No files analyzed yet.")
		return false
	}
	for _, path := range snap.Paths() {
		fs, _ := snap.File(path)
		line := fmt.Sprintf("%s (%d functions, %d findings)", path, len(fs.Functions), len(fs.Findings))
		if _, stale := snap.Stale[path]; stale {
			writelnEscape(tt, tt.Escape.Red, "%s [stale]", line)
		} else {
			writeFmt(tt, "%s\n", line)
		}
	}
	for _, path := range snap.StalePaths() {
		if _, ok := snap.File(path); !ok {
			writelnEscape(tt, tt.Escape.Red, "%s [stale, no artifacts]", path)
		}
	}
	return false
}

const cmdFuncsName = "funcs"

// cmdFuncs lists functions matching an optional regex.
func cmdFuncs(tt *term.Terminal, s *session, command Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : list functions matching an optional regex (cyan = has finding)\n",
			tt.Escape.Blue, cmdFuncsName, tt.Escape.Reset)
		return false
	}
	snap := s.coord.Snapshot()
	match := func(string) bool { return true }
	if len(command.Args) > 0 {
		re, err := regexp.Compile(command.Args[0])
		if err != nil {
			WriteErr(tt, "could not compile regex %q: %v", command.Args[0], err)
			return false
		}
		match = re.MatchString
	}
	flagged := map[string]bool{}
	for _, f := range snap.AllFindings() {
		flagged[f.Function] = true
	}
	var entries []displayElement
	for _, name := range snap.FunctionNames() {
		if !match(name) {
			continue
		}
		var escape []byte
		if flagged[name] {
			escape = tt.Escape.Cyan
		}
		entries = append(entries, displayElement{content: name, escape: escape})
	}
	if len(entries) == 0 {
		WriteSuccess(tt, "No matching function found.")
		return false
	}
	WriteSuccess(tt, "Found %d matching function(s):", len(entries))
	writeEntries(tt, entries, "  ")
	return false
}

const cmdCallersName = "callers"

// cmdCallers prints the callers of a function.
func cmdCallers(tt *term.Terminal, s *session, command Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : print the callers of a function\n",
			tt.Escape.Blue, cmdCallersName, tt.Escape.Reset)
		return false
	}
	if len(command.Args) != 1 {
		WriteErr(tt, "callers expects one function name argument")
		return false
	}
	name := command.Args[0]
	snap := s.coord.Snapshot()
	if _, ok := snap.Function(name); !ok {
		WriteErr(tt, "no function %q in the current snapshot", name)
		return false
	}
	refs := snap.Callers(name)
	if len(refs) == 0 {
		WriteSuccess(tt, "%s has no callers.", name)
		return false
	}
	for _, ref := range refs {
		writeFmt(tt, "%s at %s\n", ref.Caller, ref.Site)
	}
	return false
}

const cmdCalleesName = "callees"

// cmdCallees prints the calls made by a function, dangling ones in red.
func cmdCallees(tt *term.Terminal, s *session, command Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : print the callees of a function (red = dangling)\n",
			tt.Escape.Blue, cmdCalleesName, tt.Escape.Reset)
		return false
	}
	if len(command.Args) != 1 {
		WriteErr(tt, "callees expects one function name argument")
		return false
	}
	name := command.Args[0]
	snap := s.coord.Snapshot()
	if _, ok := snap.Function(name); !ok {
		WriteErr(tt, "no function %q in the current snapshot", name)
		return false
	}
	refs := snap.Callees(name)
	if len(refs) == 0 {
		WriteSuccess(tt, "%s calls nothing.", name)
		return false
	}
	for _, ref := range refs {
		if ref.Resolved {
			writeFmt(tt, "%s at %s\n", ref.Callee, ref.Site)
		} else {
			writelnEscape(tt, tt.Escape.Red, "%s at %s [dangling]", ref.Callee, ref.Site)
		}
	}
	return false
}

const cmdFindingsName = "findings"

// cmdFindings prints the findings of the snapshot, or of one file.
func cmdFindings(tt *term.Terminal, s *session, command Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : print findings, optionally for one file\n",
			tt.Escape.Blue, cmdFindingsName, tt.Escape.Reset)
		return false
	}
	snap := s.coord.Snapshot()
	var findings []scanner.Finding
	if len(command.Args) == 1 {
		fs, ok := snap.File(command.Args[0])
		if !ok {
			WriteErr(tt, "no artifacts for %s", command.Args[0])
			return false
		}
		findings = fs.Findings
	} else {
		findings = snap.AllFindings()
	}
	if len(findings) == 0 {
		WriteSuccess(tt, "No findings ✓")
		return false
	}
	for _, f := range findings {
		writelnEscape(tt, escapeOfSeverity(tt, f.Severity), "[%s] %s %s:%s %s -> %s",
			strings.ToUpper(string(f.Severity)), f.RuleID, f.File, f.Span.Start, f.Function, f.Sink)
		writeFmt(tt, "        %s\n", f.Message)
	}
	writeFmt(tt, "%d finding(s)\n", len(findings))
	return false
}

func escapeOfSeverity(tt *term.Terminal, s scanner.Severity) []byte {
	switch s {
	case scanner.SeverityCritical, scanner.SeverityHigh:
		return tt.Escape.Red
	case scanner.SeverityMedium:
		return tt.Escape.Yellow
	default:
		return nil
	}
}

// funcView resolves a command's function name argument against the
// current snapshot, writing an error on the terminal when it cannot.
func funcView(tt *term.Terminal, s *session, command Command) *state.FuncView {
	if len(command.Args) != 1 {
		WriteErr(tt, "expected one function name argument")
		return nil
	}
	name := command.Args[0]
	snap := s.coord.Snapshot()
	info, ok := snap.Function(name)
	if !ok {
		WriteErr(tt, "no function %q in the current snapshot", name)
		return nil
	}
	fs, ok := snap.File(info.File)
	if !ok {
		WriteErr(tt, "no artifacts for file %s", info.File)
		return nil
	}
	fv := fs.Function(name)
	if fv == nil {
		WriteErr(tt, "no artifacts for function %q in %s", name, info.File)
	}
	return fv
}

const cmdCfgName = "cfg"

// cmdCfg prints the control flow graph of a function.
func cmdCfg(tt *term.Terminal, s *session, command Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : print the control flow graph of a function\n",
			tt.Escape.Blue, cmdCfgName, tt.Escape.Reset)
		return false
	}
	fv := funcView(tt, s, command)
	if fv == nil {
		return false
	}
	writeFmt(tt, "%s(%s) in %s\n", fv.Info.Name, strings.Join(fv.Info.Params, ", "), fv.Info.File)
	for _, blk := range fv.Blocks {
		writelnEscape(tt, tt.Escape.Cyan, "%s (%s) -> %v", blk.Label, blk.Span, blk.Succs)
		for _, st := range blk.Stmts {
			writeFmt(tt, "    %4d: %s\n", st.Span.Start.Line, st.Text)
		}
	}
	return false
}

const cmdLiveName = "live"

// cmdLive prints the live variables at each block boundary of a
// function, with the liveness diagnostics last.
func cmdLive(tt *term.Terminal, s *session, command Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : print live variables per block of a function\n",
			tt.Escape.Blue, cmdLiveName, tt.Escape.Reset)
		return false
	}
	fv := funcView(tt, s, command)
	if fv == nil {
		return false
	}
	for i, blk := range fv.Blocks {
		facts := fv.Facts[i]
		writelnEscape(tt, tt.Escape.Cyan, "%s", blk.Label)
		writeFmt(tt, "    in : {%s}\n", strings.Join(facts.LiveIn, ", "))
		writeFmt(tt, "    out: {%s}\n", strings.Join(facts.LiveOut, ", "))
	}
	for _, d := range fv.Diags {
		writelnEscape(tt, tt.Escape.Yellow, "%s of %s at %s", d.Kind, d.Var, d.Pos)
	}
	return false
}

const cmdReachName = "reach"

// cmdReach prints the reaching definitions at each block boundary of a
// function.
func cmdReach(tt *term.Terminal, s *session, command Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : print reaching definitions per block of a function\n",
			tt.Escape.Blue, cmdReachName, tt.Escape.Reset)
		return false
	}
	fv := funcView(tt, s, command)
	if fv == nil {
		return false
	}
	for i, blk := range fv.Blocks {
		facts := fv.Facts[i]
		writelnEscape(tt, tt.Escape.Cyan, "%s", blk.Label)
		writeFmt(tt, "    in : {%s}\n", defsString(facts.ReachIn))
		writeFmt(tt, "    out: {%s}\n", defsString(facts.ReachOut))
	}
	return false
}

func defsString(defs []dataflow.Def) string {
	parts := make([]string, len(defs))
	for i, d := range defs {
		parts[i] = fmt.Sprintf("%s@%s", d.Var, d.Pos)
	}
	return strings.Join(parts, ", ")
}

const cmdTaintName = "taint"

// cmdTaint prints the tainted variables and their labels at each block
// boundary of a function.
func cmdTaint(tt *term.Terminal, s *session, command Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : print tainted variables per block of a function\n",
			tt.Escape.Blue, cmdTaintName, tt.Escape.Reset)
		return false
	}
	fv := funcView(tt, s, command)
	if fv == nil {
		return false
	}
	for i, blk := range fv.Blocks {
		facts := fv.Facts[i]
		writelnEscape(tt, tt.Escape.Cyan, "%s", blk.Label)
		if len(facts.TaintOut) == 0 {
			writeFmt(tt, "    clean\n")
			continue
		}
		for _, v := range funcutil.SortedKeys(facts.TaintOut) {
			writeFmt(tt, "    %s <- {%s}\n", v, strings.Join(facts.TaintOut[v], ", "))
		}
	}
	return false
}

const cmdRecursionName = "recursion"

// cmdRecursion shows the recursive functions and elementary call cycles
// of the cross-file call graph.
func cmdRecursion(tt *term.Terminal, s *session, _ Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : show recursive functions and call cycles\n",
			tt.Escape.Blue, cmdRecursionName, tt.Escape.Reset)
		return false
	}
	g := callgraph.Build(s.coord.Snapshot())
	rec := g.Recursive()
	if len(rec) == 0 {
		WriteSuccess(tt, "No recursion in the call graph.")
		return false
	}
	WriteSuccess(tt, "%d function(s) on call cycles:", len(rec))
	entries := funcutil.Map(rec, func(name string) displayElement {
		return displayElement{content: name, escape: tt.Escape.Magenta}
	})
	writeEntries(tt, entries, "  ")
	for _, cyc := range g.Cycles() {
		writeFmt(tt, "  %s\n", strings.Join(cyc, " -> "))
	}
	return false
}

const cmdStaleName = "stale"

// cmdStale lists the files whose latest update failed.
func cmdStale(tt *term.Terminal, s *session, _ Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : list files whose latest update failed\n",
			tt.Escape.Blue, cmdStaleName, tt.Escape.Reset)
		return false
	}
	snap := s.coord.Snapshot()
	paths := snap.StalePaths()
	if len(paths) == 0 {
		WriteSuccess(tt, "No stale files.")
		return false
	}
	for _, p := range paths {
		info := snap.Stale[p]
		if info.Pos.IsValid() {
			writelnEscape(tt, tt.Escape.Red, "%s: %s at %s", p, info.Reason, info.Pos)
		} else {
			writelnEscape(tt, tt.Escape.Red, "%s: %s", p, info.Reason)
		}
	}
	return false
}

const cmdSaveName = "save"

// cmdSave writes the current snapshot to the configured store.
func cmdSave(tt *term.Terminal, s *session, _ Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : save the current snapshot to the store\n",
			tt.Escape.Blue, cmdSaveName, tt.Escape.Reset)
		return false
	}
	if _, nop := s.db.(store.Nop); nop {
		WriteErr(tt, "no snapshot store configured (set state-dir in the config)")
		return false
	}
	snap := s.coord.Snapshot()
	if err := s.db.Save(s.ctx, snap); err != nil {
		WriteErr(tt, "could not save snapshot: %v", err)
		return false
	}
	WriteSuccess(tt, "Saved snapshot generation %d.", snap.Generation)
	return false
}

const cmdClearName = "clear"

// cmdClear removes the saved snapshot from the store.
func cmdClear(tt *term.Terminal, s *session, _ Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : remove the saved snapshot from the store\n",
			tt.Escape.Blue, cmdClearName, tt.Escape.Reset)
		return false
	}
	if err := s.db.Clear(s.ctx); err != nil {
		WriteErr(tt, "could not clear the store: %v", err)
		return false
	}
	WriteSuccess(tt, "Cleared the snapshot store.")
	return false
}

const cmdExitName = "exit"

func cmdExit(tt *term.Terminal, s *session, _ Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : exit the program\n", tt.Escape.Blue, cmdExitName, tt.Escape.Reset)
		return false
	}
	writelnEscape(tt, tt.Escape.Magenta, "Exiting...")
	return true
}
