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

package callgraph

import (
	"fmt"
	"io"
	"strings"

	"github.com/reflowlabs/reflow/analysis/state"
)

// WriteGraphviz writes the call graph to w in graphviz dot form. Defined
// functions render as boxes, external callees as dashed ovals, dangling
// edges as dashed arrows.
func (g *Graph) WriteGraphviz(w io.Writer) error {
	if _, err := io.WriteString(w, "digraph callgraph {\n"); err != nil {
		return fmt.Errorf("error while writing in file: %w", err)
	}
	for i, name := range g.names {
		attrs := "shape=box"
		if i >= g.ndef {
			attrs = "shape=oval,style=dashed"
		}
		if _, err := fmt.Fprintf(w, "  %q [%s];\n", name, attrs); err != nil {
			return fmt.Errorf("error while writing in file: %w", err)
		}
	}
	for _, name := range g.names[:g.ndef] {
		for _, e := range g.snap.Functions[name].Calls {
			style := ""
			if !g.snap.Resolves(e.Callee) {
				style = " [style=dashed]"
			}
			if _, err := fmt.Fprintf(w, "  %q -> %q%s;\n", name, e.Callee, style); err != nil {
				return fmt.Errorf("error while writing in file: %w", err)
			}
		}
	}
	if _, err := io.WriteString(w, "}\n"); err != nil {
		return fmt.Errorf("error while writing in file: %w", err)
	}
	return nil
}

// dotEscape makes s safe inside a double-quoted dot string.
func dotEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// WriteCFGGraphviz writes one function's control flow graph to w in
// graphviz dot form, one box per block with its rendered statements.
// Branch edges carry T/F labels in successor order.
func WriteCFGGraphviz(w io.Writer, fv *state.FuncView) error {
	if _, err := fmt.Fprintf(w, "digraph %q {\n  node [shape=box];\n", fv.Info.Name); err != nil {
		return fmt.Errorf("error while writing in file: %w", err)
	}
	for _, b := range fv.Blocks {
		lines := []string{b.Label}
		for _, s := range b.Stmts {
			lines = append(lines, dotEscape(s.Text))
		}
		if _, err := fmt.Fprintf(w, "  n%d [label=\"%s\"];\n", b.ID, strings.Join(lines, `\n`)); err != nil {
			return fmt.Errorf("error while writing in file: %w", err)
		}
	}
	for _, b := range fv.Blocks {
		branch := len(b.Succs) == 2
		for i, succ := range b.Succs {
			label := ""
			if branch {
				if i == 0 {
					label = ` [label="T"]`
				} else {
					label = ` [label="F"]`
				}
			}
			if _, err := fmt.Fprintf(w, "  n%d -> n%d%s;\n", b.ID, succ, label); err != nil {
				return fmt.Errorf("error while writing in file: %w", err)
			}
		}
	}
	if _, err := io.WriteString(w, "}\n"); err != nil {
		return fmt.Errorf("error while writing in file: %w", err)
	}
	return nil
}
