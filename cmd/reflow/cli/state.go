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

	"github.com/reflowlabs/reflow/analysis/callgraph"
	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/coordinator"
	"github.com/reflowlabs/reflow/analysis/store"
	"github.com/reflowlabs/reflow/internal/funcutil"
	"golang.org/x/term"
)

// serverState stores display information about the terminal. Not used to
// store information about the project being analyzed.
type serverState struct {
	// ProjectPath is the last path given to the load command
	ProjectPath string

	ConfigPath string

	TermWidth int
}

var server = serverState{}

// A session owns the coordinator and store backing one interactive run.
// Commands read snapshots through the coordinator and submit updates to
// it; they never hold analysis results of their own.
type session struct {
	ctx   context.Context
	cfg   *config.Config
	lg    *config.LogGroup
	coord *coordinator.Coordinator
	db    store.Store
}

const cmdHelpName = "help"

// Help command
func cmdHelp(tt *term.Terminal, s *session, _ Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : print help message\n", tt.Escape.Blue, cmdHelpName, tt.Escape.Reset)
		return false
	}
	writeFmt(tt, "Commands:\n")
	writeFmt(tt, "\t- %s%s%s : print this message\n", tt.Escape.Blue, cmdHelpName, tt.Escape.Reset)
	for _, name := range funcutil.SortedKeys(commands) {
		commands[name](tt, nil, Command{})
	}
	return false
}

const cmdStatsName = "stats"

// cmdStats prints a summary of the current snapshot and the session.
func cmdStats(tt *term.Terminal, s *session, _ Command) bool {
	if s == nil {
		writeFmt(tt, "\t- %s%s%s : show stats about the current snapshot\n",
			tt.Escape.Blue, cmdStatsName, tt.Escape.Reset)
		return false
	}
	snap := s.coord.Snapshot()
	_, external := callgraph.Build(snap).Size()
	writeFmt(tt, "Project path       : %s\n", server.ProjectPath)
	writeFmt(tt, "Config path        : %s\n", server.ConfigPath)
	writeFmt(tt, "Generation         : %d\n", snap.Generation)
	writeFmt(tt, "# files            : %d\n", len(snap.Files))
	writeFmt(tt, "# functions        : %d\n", len(snap.Functions))
	writeFmt(tt, "# findings         : %d\n", len(snap.AllFindings()))
	writeFmt(tt, "# stale files      : %d\n", len(snap.Stale))
	writeFmt(tt, "# external callees : %d\n", external)
	writeFmt(tt, "# pending updates  : %d\n", s.coord.Pending())
	return false
}
