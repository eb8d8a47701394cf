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

package dataflow

// reachingDefs solves the forward reaching-definition equations
//
//	in[b]  = ∪ out[pred]
//	out[b] = gen[b] ∪ (in[b] − kill[b])
//
// to a fixed point. The sets only grow and the universe of definition
// sites is finite, so at most |blocks| × |definitions| productive steps
// happen before convergence; the sweep cap sits above that.
func (ix *funcIndex) reachingDefs(maxSweeps int) (in, out [][]int, err error) {
	n := len(ix.fn.Blocks)
	in = make([][]int, n)
	out = make([][]int, n)
	changed := make([]bool, n)
	for i := range changed {
		changed[i] = true
	}
	for sweeps := 0; ; sweeps++ {
		if sweeps >= maxSweeps {
			return nil, nil, &SolveError{Function: ix.fn.Info.Name, Analysis: "reaching-definitions", Iterations: sweeps}
		}
		sweepChanged := false
		for i := 0; i < n; i++ {
			if !changed[i] {
				continue
			}
			changed[i] = false
			sweepChanged = true
			newOut, _ := union(ix.blocks[i].gen, minus(in[i], ix.blocks[i].kill))
			if sameSet(newOut, out[i]) {
				continue
			}
			out[i] = newOut
			for _, s := range ix.fn.Blocks[i].Succs {
				var same bool
				in[s], same = union(in[s], newOut)
				if !same {
					changed[s] = true
				}
			}
		}
		if !sweepChanged {
			break
		}
	}
	return in, out, nil
}
