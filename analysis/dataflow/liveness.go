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

// liveness solves the backward live-variable equations
//
//	liveIn[b]  = use[b] ∪ (liveOut[b] − def[b])
//	liveOut[b] = ∪ liveIn[succ]
//
// to a fixed point. Blocks are visited in reverse id order, which follows
// the flow for the common shapes and converges in few sweeps; per-block
// change flags are a poor man's work list.
func (ix *funcIndex) liveness(maxSweeps int) (in, out [][]int, err error) {
	n := len(ix.fn.Blocks)
	in = make([][]int, n)
	out = make([][]int, n)
	changed := make([]bool, n)
	for i := range changed {
		changed[i] = true
	}
	for sweeps := 0; ; sweeps++ {
		if sweeps >= maxSweeps {
			return nil, nil, &SolveError{Function: ix.fn.Info.Name, Analysis: "liveness", Iterations: sweeps}
		}
		sweepChanged := false
		for i := n - 1; i >= 0; i-- {
			if !changed[i] {
				continue
			}
			changed[i] = false
			sweepChanged = true
			newIn, _ := union(ix.blocks[i].use, minus(out[i], ix.blocks[i].def))
			if sameSet(newIn, in[i]) {
				continue
			}
			in[i] = newIn
			for _, p := range ix.fn.Blocks[i].Preds {
				var same bool
				out[p], same = union(out[p], newIn)
				if !same {
					changed[p] = true
				}
			}
		}
		if !sweepChanged {
			break
		}
	}
	return in, out, nil
}
