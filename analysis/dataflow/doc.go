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
The dataflow package runs the per-function fixed-point analyses over control
flow graphs built by the cfg package: liveness, reaching definitions and
taint propagation.

The entry point for a single function is [Analyze]:

	res, err := dataflow.Analyze(fn, dataflow.Options{Rules: rules})

which solves the three analyses in order and derives the per-function
diagnostics. [AnalyzeAll] runs Analyze over every function of a file,
distributing functions across goroutines; results come back in input order
and the first error wins.

All three solvers iterate block transfer functions to a fixed point, with
per-block change flags standing in for a work list. The lattices are finite
(sets of interned variables, definition sites and taint labels), so the
loops terminate; a derived iteration cap still guards each one, and a
function exceeding its cap fails with an error wrapping
[ErrNonTermination] rather than returning partial facts.
*/
package dataflow
