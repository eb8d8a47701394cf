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

/*
Package cli implements the reflow interactive CLI: a terminal application
for exploring the analysis snapshot, submitting file updates and removals
through the coordinator, and inspecting the converged dataflow facts of
individual functions.

Usage:

	reflow cli [flags] [project path]

The flags are:

	-v=false
		verbose mode, overrides the log level specified in the config file
	-config config-file.yaml
		a configuration file for the analysis. When a state directory is
		configured, the session starts from the persisted snapshot and the
		save and clear commands operate on that store.

The optional project path (a file, a directory or a .txtar bundle) is
analyzed before the prompt appears. Without it the session starts from the
persisted snapshot, or empty.

# Basic Commands

	help             print a list of the commands, with short help messages for each

	exit             exit the program gracefully

	stats            show a summary of the snapshot: generation, files, functions,
	.                findings, stale files and pending updates

# Updating the State

	load path        analyze a file, directory or txtar bundle; every file goes
	.                through the update queue and the command waits for all of them

	rm path          remove a file's artifacts from the analysis

	save             write the current snapshot to the configured store

	clear            remove the saved snapshot from the store

# Inspecting the Snapshot

	list             list analyzed files with function and finding counts; files
	.                whose latest update failed show in red

	funcs [regex]    list functions, optionally filtered by a regex; functions
	.                involved in a finding show in cyan

	callers "name"   print the callers of a function

	callees "name"   print the calls made by a function; calls to functions not
	.                defined in any analyzed file show in red as dangling

	findings [path]  print the findings of the snapshot, or of one file

	stale            list files whose latest update failed, with the failure reason

# Inspecting One Function

	cfg "name"       print the function's basic blocks, statements and edges

	live "name"      print the live variables at each block boundary, followed by
	.                the unused-assignment and undefined-use diagnostics

	reach "name"     print the reaching definitions at each block boundary

	taint "name"     print the tainted variables and their labels at each block
	.                boundary

	recursion        show the recursive functions and elementary cycles of the
	.                cross-file call graph
*/
package cli
