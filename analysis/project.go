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

// Package analysis provides the project loader and the version anchor
// for the reflow tools. The per-concern packages live below it.
package analysis

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/txtar"

	"github.com/reflowlabs/reflow/analysis/config"
)

// SourceFile is one file of a project with its content in memory.
type SourceFile struct {
	Path    string
	Content string
}

// Project is the set of source files to analyze. Files are in walk
// order, which is lexical within a directory tree and archive order for
// a bundle, so loading the same input twice yields the same sequence.
type Project struct {
	Root  string
	Files []SourceFile
}

// sourceExts are the extensions the loaders pick up: the C-like
// sources, Go sources and exporter documents the front ends understand.
var sourceExts = map[string]bool{
	".c":    true,
	".h":    true,
	".cc":   true,
	".cpp":  true,
	".go":   true,
	".json": true,
}

// LoadProject loads path as a directory tree when it is a directory, as
// a txtar bundle when it ends in .txtar, and as a single source file
// otherwise.
func LoadProject(path string, lg *config.LogGroup) (*Project, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadProjectDir(path, lg)
	}
	if strings.HasSuffix(path, ".txtar") {
		return LoadProjectTxtar(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &Project{
		Root:  filepath.Dir(path),
		Files: []SourceFile{{Path: filepath.Base(path), Content: string(data)}},
	}, nil
}

// LoadProjectDir walks root, collects the source files and reads them
// in parallel. Paths in the result are relative to root. Hidden files
// and directories are skipped.
func LoadProjectDir(root string, lg *config.LogGroup) (*Project, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !sourceExts[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	files := make([]SourceFile, len(paths))
	g := &errgroup.Group{}
	g.SetLimit(runtime.NumCPU())
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			data, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", p, err)
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				rel = p
			}
			files[i] = SourceFile{Path: rel, Content: string(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	lg.Debugf("loaded %d source files from %s", len(files), root)
	return &Project{Root: root, Files: files}, nil
}

// LoadProjectTxtar reads a txtar bundle. Files keep their archive names
// as paths; entries without a source extension are skipped, so bundles
// can carry configs and notes alongside the sources.
func LoadProjectTxtar(path string) (*Project, error) {
	ar, err := txtar.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bundle %s: %w", path, err)
	}
	p := &Project{Root: path}
	for _, f := range ar.Files {
		if !sourceExts[strings.ToLower(filepath.Ext(f.Name))] {
			continue
		}
		p.Files = append(p.Files, SourceFile{Path: f.Name, Content: string(f.Data)})
	}
	return p, nil
}
