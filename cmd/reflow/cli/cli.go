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
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/reflowlabs/reflow/analysis"
	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/coordinator"
	"github.com/reflowlabs/reflow/analysis/state"
	"github.com/reflowlabs/reflow/cmd/reflow/tools"
	"github.com/reflowlabs/reflow/internal/formatutil"
	"golang.org/x/term"
)

// Usage for CLI
const Usage = `Interactive CLI for exploring the analysis state and submitting updates.
Usage:
  reflow cli [options] [project path]`

var commands = map[string]func(tt *term.Terminal, s *session, command Command) bool{
	cmdCalleesName:   cmdCallees,
	cmdCallersName:   cmdCallers,
	cmdCfgName:       cmdCfg,
	cmdClearName:     cmdClear,
	cmdExitName:      cmdExit,
	cmdFindingsName:  cmdFindings,
	cmdFuncsName:     cmdFuncs,
	cmdListName:      cmdList,
	cmdLiveName:      cmdLive,
	cmdLoadName:      cmdLoad,
	cmdReachName:     cmdReach,
	cmdRecursionName: cmdRecursion,
	cmdRmName:        cmdRm,
	cmdSaveName:      cmdSave,
	cmdStaleName:     cmdStale,
	cmdStatsName:     cmdStats,
	cmdTaintName:     cmdTaint,
}

// Run starts a simple CLI-based stdin-stdout server to explore and update
// the analysis state.
func Run(flags tools.CommonFlags) error {
	logger := log.New(os.Stdout, "", log.Flags())

	cfg, err := tools.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}

	// Override config parameters with command-line parameters
	if flags.Verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}
	server.ConfigPath = flags.ConfigPath

	lg := config.NewLogGroup(cfg)
	db, err := tools.OpenStore(cfg, lg)
	if err != nil {
		return fmt.Errorf("could not open snapshot store: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	s := &session{
		ctx:   ctx,
		cfg:   cfg,
		lg:    lg,
		db:    db,
		coord: coordinator.New(ctx, cfg, state.NewState(nil), db),
	}
	defer s.coord.Close(ctx)

	logger.Printf(formatutil.Faint("Reflow interactive CLI - " + analysis.Version))

	args := flags.FlagSet.Args()
	if len(args) > 1 {
		return fmt.Errorf("cli expects at most one project path, got %d", len(args))
	}
	if len(args) == 1 {
		logger.Printf(formatutil.Faint("Reading sources") + "\n")
		proj, err := analysis.LoadProject(args[0], lg)
		if err != nil {
			return fmt.Errorf("could not load project: %v", err)
		}
		server.ProjectPath = args[0]
		for _, f := range proj.Files {
			fut := s.coord.Request(f.Path, f.Content)
			if _, err := fut.Wait(ctx); err != nil {
				lg.Errorf("analysis of %s failed: %v", fut.Path(), err)
			}
		}
	}

	// Start the interactive loop on the session
	run(s)
	return nil
}

// run implements the command line tool, calling interpret for each command
// until the exit command is input.
func run(s *session) {
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		panic(err)
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)
	server.TermWidth, _, _ = term.GetSize(int(os.Stdin.Fd()))
	tt := term.NewTerminal(os.Stdin, "> ")
	s.lg.SetAllOutput(tt)
	s.lg.SetAllFlags(0) // no prefix
	s.coord.Logger().SetAllOutput(tt)
	s.coord.Logger().SetAllFlags(0)
	tt.AutoCompleteCallback = autoComplete()
	// Capture ctrl+c and exit by returning
	captureChan := make(chan os.Signal, 1)
	signal.Notify(captureChan, os.Interrupt)
	go exitOnReceive(captureChan, tt, oldState)
	// the infinite loop terminates when interpret returns true or stdin
	// closes
	for {
		command, err := tt.ReadLine()
		if err != nil {
			return
		}
		if interpret(tt, s, strings.TrimSpace(command)) {
			break
		}
	}
}

// interpret returns true to stop
func interpret(tt *term.Terminal, s *session, command string) bool {
	if command == "" {
		return false
	}
	cmd := ParseCommand(command)

	if cmd.Name == "" {
		return false
	}

	if f, ok := commands[cmd.Name]; ok {
		return f(tt, s, cmd)
	}
	if cmd.Name == cmdHelpName {
		cmdHelp(tt, s, cmd)
	} else {
		WriteErr(tt, "Command name %q not recognized.", cmd.Name)
		cmdHelp(tt, s, cmd)
	}
	return false
}

// autoComplete completes a line holding a unique command name prefix on
// tab.
func autoComplete() func(string, int, rune) (string, int, bool) {
	f := func(line string, pos int, key rune) (string, int, bool) {
		if key == '\t' {
			if len(line) > 1 && pos == len(line) {
				pc := 0
				compl := line
				for cmd := range commands {
					if strings.HasPrefix(cmd, line) {
						pc++
						compl = cmd
					}
				}
				if pc == 1 {
					return compl, len(compl), true
				}
			}
		}
		return "", 0, false
	}
	return f
}

func exitOnReceive(c chan os.Signal, tt *term.Terminal, oldState *term.State) {
	for range c {
		writeFmt(tt, formatutil.Red("Caught SIGINT, exiting!"))
		term.Restore(int(os.Stdin.Fd()), oldState)
		os.Exit(0)
	}
}
