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

// Package parse holds the front ends. Each one turns the text of a single
// file into the input of the control flow graph layer: the C-like and Go
// front ends produce syntax trees, the exporter front end decodes graphs
// built elsewhere. ForPath selects by file extension.
package parse

import (
	"path/filepath"
	"strings"

	"github.com/reflowlabs/reflow/analysis/cfg"
	"github.com/reflowlabs/reflow/analysis/lang"
)

// Func parses one source file into its syntax tree.
type Func func(path, content string) (*lang.File, error)

// Builder produces a file's control flow graphs straight from source text.
// Errors are *lang.ParseError values.
type Builder func(path, content string) (*cfg.Result, error)

// ForPath returns the builder responsible for a path. The extension
// decides: .json is an exporter document, .go is Go source and everything
// else, including extensionless paths, parses as C-like source.
func ForPath(path string) Builder {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return buildExport
	case ".go":
		return astBuilder(GoSource)
	default:
		return astBuilder(CLike)
	}
}

func astBuilder(f Func) Builder {
	return func(path, content string) (*cfg.Result, error) {
		file, err := f(path, content)
		if err != nil {
			return nil, err
		}
		return cfg.Build(file)
	}
}

func buildExport(path, content string) (*cfg.Result, error) {
	fns, err := DecodeExport(path, content)
	if err != nil {
		return nil, err
	}
	return cfg.Assemble(path, fns)
}
