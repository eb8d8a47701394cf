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

package coordinator

// queue is the FIFO of pending units with a per-path index for
// coalescing. Not safe for concurrent use; the coordinator's mutex
// guards every call.
type queue struct {
	units  []*unit
	byPath map[string]*unit
}

func newQueue() *queue {
	return &queue{byPath: make(map[string]*unit)}
}

func (q *queue) push(u *unit) {
	q.units = append(q.units, u)
	q.byPath[u.path] = u
}

// pending returns the queued unit for path, or nil. A unit already
// handed to the worker is not pending and cannot be coalesced into.
func (q *queue) pending(path string) *unit {
	return q.byPath[path]
}

// pop removes and returns the head of the queue, nil when empty.
func (q *queue) pop() *unit {
	if len(q.units) == 0 {
		return nil
	}
	u := q.units[0]
	q.units[0] = nil
	q.units = q.units[1:]
	delete(q.byPath, u.path)
	return u
}

// drain empties the queue and returns what was pending, in order.
func (q *queue) drain() []*unit {
	out := q.units
	q.units = nil
	q.byPath = make(map[string]*unit)
	return out
}

func (q *queue) size() int { return len(q.units) }
