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

package cfg

import (
	"sort"

	"github.com/reflowlabs/reflow/analysis/lang"
)

// Build constructs the control flow graphs of every function in the file.
// It fails with a lang.ParseError when the syntax tree cannot form a
// well-formed graph: statements after a return, break or continue, code in
// blocks the entry cannot reach, break or continue outside a loop, or a
// function redefined within the file.
func Build(file *lang.File) (*Result, error) {
	res := &Result{Path: file.Path, Directives: file.Directives}
	seen := map[string]bool{}
	for _, fd := range file.Funcs {
		if seen[fd.Name] {
			return nil, lang.Errorf(file.Path, fd.Span.Start, "function %s redefined", fd.Name)
		}
		seen[fd.Name] = true
		fn, err := buildFunc(file.Path, fd)
		if err != nil {
			return nil, err
		}
		res.Functions = append(res.Functions, fn)
	}
	return res, nil
}

type loopCtx struct {
	cont int
	brk  int
}

type builder struct {
	path   string
	blocks []*Block
	cur    int
	exit   int
	// done is set once the current block ended with a return, break or
	// continue. Any further statement in the same list is unreachable.
	done  bool
	loops []loopCtx
}

func buildFunc(path string, fd *lang.FuncDecl) (*Function, error) {
	b := &builder{path: path}
	entry := b.newBlock(EntryBlock)
	b.exit = b.newBlock(ExitBlock)
	first := b.newBlock(BodyBlock)
	b.edge(entry, first)
	b.startBlock(first)
	if err := b.stmts(fd.Body); err != nil {
		return nil, err
	}
	if !b.done {
		b.edge(b.cur, b.exit)
	}
	return b.finish(fd, entry)
}

func (b *builder) newBlock(kind BlockKind) int {
	id := len(b.blocks)
	b.blocks = append(b.blocks, &Block{ID: id, Kind: kind})
	return id
}

func (b *builder) startBlock(id int) {
	b.cur = id
	b.done = false
}

func (b *builder) edge(from, to int) {
	blk := b.blocks[from]
	for _, s := range blk.Succs {
		if s == to {
			return
		}
	}
	blk.Succs = append(blk.Succs, to)
}

func (b *builder) emit(s lang.Stmt) {
	blk := b.blocks[b.cur]
	blk.Stmts = append(blk.Stmts, s)
}

// edgeInto reports whether any block edges into id. Predecessor lists are
// only filled in by finish, so this scans the successor lists.
func (b *builder) edgeInto(id int) bool {
	for _, blk := range b.blocks {
		for _, s := range blk.Succs {
			if s == id {
				return true
			}
		}
	}
	return false
}

func (b *builder) stmts(list []lang.Stmt) error {
	for _, s := range list {
		if b.done {
			return lang.Errorf(b.path, s.Pos(), "unreachable code")
		}
		if err := b.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) stmt(s lang.Stmt) error {
	switch x := s.(type) {
	case *lang.DeclStmt, *lang.AssignStmt, *lang.ExprStmt:
		b.emit(s)
	case *lang.ReturnStmt:
		b.emit(x)
		b.edge(b.cur, b.exit)
		b.done = true
	case *lang.BreakStmt:
		if len(b.loops) == 0 {
			return lang.Errorf(b.path, x.Span.Start, "break outside a loop")
		}
		b.edge(b.cur, b.loops[len(b.loops)-1].brk)
		b.done = true
	case *lang.ContinueStmt:
		if len(b.loops) == 0 {
			return lang.Errorf(b.path, x.Span.Start, "continue outside a loop")
		}
		b.edge(b.cur, b.loops[len(b.loops)-1].cont)
		b.done = true
	case *lang.IfStmt:
		return b.ifStmt(x)
	case *lang.WhileStmt:
		return b.whileStmt(x)
	case *lang.ForStmt:
		return b.forStmt(x)
	default:
		return lang.Errorf(b.path, s.Pos(), "unsupported statement")
	}
	return nil
}

func cond(e lang.Expr) *lang.CondStmt {
	return &lang.CondStmt{Cond: e, Span: lang.Range{Start: e.Pos(), End: e.End()}}
}

func (b *builder) ifStmt(x *lang.IfStmt) error {
	b.emit(cond(x.Cond))
	from := b.cur

	thenB := b.newBlock(BodyBlock)
	b.edge(from, thenB)
	b.startBlock(thenB)
	if err := b.stmts(x.Then); err != nil {
		return err
	}
	thenEnd, thenDone := b.cur, b.done

	elseEnd, elseDone := -1, false
	if len(x.Else) > 0 {
		elseB := b.newBlock(BodyBlock)
		b.edge(from, elseB)
		b.startBlock(elseB)
		if err := b.stmts(x.Else); err != nil {
			return err
		}
		elseEnd, elseDone = b.cur, b.done
	}

	join := b.newBlock(BodyBlock)
	if elseEnd < 0 {
		b.edge(from, join)
	} else if !elseDone {
		b.edge(elseEnd, join)
	}
	if !thenDone {
		b.edge(thenEnd, join)
	}
	b.startBlock(join)
	if !b.edgeInto(join) {
		// Both branches terminated. Anything after the if is unreachable.
		b.done = true
	}
	return nil
}

func (b *builder) whileStmt(x *lang.WhileStmt) error {
	header := b.newBlock(BodyBlock)
	b.edge(b.cur, header)
	b.startBlock(header)
	b.emit(cond(x.Cond))

	body := b.newBlock(BodyBlock)
	exitB := b.newBlock(BodyBlock)
	b.edge(header, body)
	b.edge(header, exitB)

	b.loops = append(b.loops, loopCtx{cont: header, brk: exitB})
	b.startBlock(body)
	err := b.stmts(x.Body)
	b.loops = b.loops[:len(b.loops)-1]
	if err != nil {
		return err
	}
	if !b.done {
		b.edge(b.cur, header)
	}
	b.startBlock(exitB)
	return nil
}

func (b *builder) forStmt(x *lang.ForStmt) error {
	if x.Init != nil {
		if err := b.stmt(x.Init); err != nil {
			return err
		}
	}
	header := b.newBlock(BodyBlock)
	b.edge(b.cur, header)
	b.startBlock(header)

	body := b.newBlock(BodyBlock)
	exitB := b.newBlock(BodyBlock)
	if x.Cond != nil {
		b.emit(cond(x.Cond))
		b.edge(header, body)
		b.edge(header, exitB)
	} else {
		// No condition: the loop only leaves through break.
		b.edge(header, body)
	}

	contTo, post := header, -1
	if x.Post != nil {
		post = b.newBlock(BodyBlock)
		contTo = post
	}

	b.loops = append(b.loops, loopCtx{cont: contTo, brk: exitB})
	b.startBlock(body)
	err := b.stmts(x.Body)
	b.loops = b.loops[:len(b.loops)-1]
	if err != nil {
		return err
	}
	bodyEnd, bodyDone := b.cur, b.done

	if post >= 0 {
		if !bodyDone {
			b.edge(bodyEnd, post)
		}
		b.startBlock(post)
		if err := b.stmt(x.Post); err != nil {
			return err
		}
		b.edge(post, header)
	} else if !bodyDone {
		b.edge(bodyEnd, header)
	}
	b.startBlock(exitB)
	if !b.edgeInto(exitB) {
		// A loop without a condition only leaves through break.
		b.done = true
	}
	return nil
}

// finish computes predecessor lists and block spans, verifies every
// non-empty block is reachable from the entry and extracts the call edges
// of the function.
func (b *builder) finish(fd *lang.FuncDecl, entry int) (*Function, error) {
	for _, blk := range b.blocks {
		for _, s := range blk.Succs {
			b.blocks[s].Preds = append(b.blocks[s].Preds, blk.ID)
		}
		for _, s := range blk.Stmts {
			blk.Span = lang.Span(blk.Span, lang.Range{Start: s.Pos(), End: s.End()})
		}
	}

	if err := checkReachable(b.path, b.blocks, entry); err != nil {
		return nil, err
	}

	info := &FunctionInfo{
		Name:   fd.Name,
		File:   b.path,
		Params: append([]string(nil), fd.Params...),
		Span:   fd.Span,
		Calls:  collectCalls(b.blocks),
	}
	return &Function{Info: info, Blocks: b.blocks, Entry: entry, Exit: b.exit}, nil
}

func checkReachable(path string, blocks []*Block, entry int) error {
	seen := make([]bool, len(blocks))
	stack := []int{entry}
	seen[entry] = true
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range blocks[id].Succs {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	for _, blk := range blocks {
		if !seen[blk.ID] && len(blk.Stmts) > 0 {
			return lang.Errorf(path, blk.Stmts[0].Pos(), "unreachable code")
		}
	}
	return nil
}

func collectCalls(blocks []*Block) []CallEdge {
	var edges []CallEdge
	for _, blk := range blocks {
		for _, s := range blk.Stmts {
			for _, e := range lang.StmtExprs(s) {
				for _, c := range lang.Calls(e) {
					edges = append(edges, CallEdge{Callee: c.Fun, Site: c.Pos()})
				}
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Site != edges[j].Site {
			return edges[i].Site.Before(edges[j].Site)
		}
		return edges[i].Callee < edges[j].Callee
	})
	return edges
}
