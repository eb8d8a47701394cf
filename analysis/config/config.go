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

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/reflowlabs/reflow/internal/funcutil"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config carries the taint rule tables and the runtime options of the
// analysis service. Fields not present in the config file keep their
// zero value; private fields are computed after loading, never read from
// the file.
type Config struct {
	Options

	sourceFile string

	// TaintTrackingProblems lists the taint tracking specifications. When
	// the file defines none, the built-in tables for the C standard
	// library are used.
	TaintTrackingProblems []TaintSpec `yaml:"taint-tracking-problems"`
}

// TaintSpec contains the call identifiers of one taint tracking problem.
type TaintSpec struct {
	// Sources is the list of taint sources
	Sources []CallIdentifier

	// Sinks is the list of sinks, with their kind and severity
	Sinks []CallIdentifier

	// Sanitizers is the list of sanitizers; a value passing through one
	// loses all taint
	Sanitizers []CallIdentifier

	// Validators is the list of validation predicates, treated as
	// sanitizing for propagation purposes
	Validators []CallIdentifier
}

// Options are the runtime knobs of the analysis service.
type Options struct {
	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// MaxIterations caps the solver's fixed-point loops. When <= 0 the
	// cap is derived from the size of each function's block graph.
	MaxIterations int `yaml:"max-iterations"`

	// Parallelism bounds the number of goroutines solving functions of
	// one file. When <= 0 the number of CPUs decides.
	Parallelism int `yaml:"parallelism"`

	// StateDir is the directory of the durable snapshot store. Empty
	// means no durable store.
	StateDir string `yaml:"state-dir"`

	// SkipPersistence disables the commit-time save even when a store is
	// configured.
	SkipPersistence bool `yaml:"skip-persistence"`

	// FailOn makes the analyze command exit non-zero when a finding of
	// this severity (or above) is produced. Empty disables the check.
	FailOn string `yaml:"fail-on"`

	// ReportsDir is the directory where report files are written. Empty
	// means reports go to standard output only.
	ReportsDir string `yaml:"reports-dir"`

	// SilenceWarn suppresses warnings
	SilenceWarn bool `yaml:"silence-warn"`
}

/// NewDefault returns the default config: info-level logging, derived
// solver caps and the built-in taint tables.
func NewDefault() *Config {
	return &Config{
		sourceFile:            "",
		TaintTrackingProblems: []TaintSpec{DefaultTaintSpec()},
		Options: Options{
			LogLevel:        int(InfoLevel),
			MaxIterations:   0,
			Parallelism:     0,
			StateDir:        "",
			SkipPersistence: false,
			FailOn:          "",
			ReportsDir:      "",
			SilenceWarn:     false,
		},
	}
}

// DefaultTaintSpec returns the built-in source, sink and sanitizer tables
// for C standard library style code, with patterns compiled.
func DefaultTaintSpec() TaintSpec {
	spec := TaintSpec{
		Sources: []CallIdentifier{
			{Function: "scanf|fscanf|sscanf", Label: "user-input"},
			{Function: "gets|fgets|getline|getenv", Label: "user-input"},
			{Function: "recv|recvfrom|read", Label: "network"},
		},
		Sinks: []CallIdentifier{
			{Function: "system|popen|exec[a-z]*", Kind: SinkExec, Severity: "critical"},
			{Function: "query|db_exec|sql_exec", Kind: SinkQuery, Severity: "high"},
			{Function: "strcpy|strcat|sprintf|memcpy", Kind: SinkBuffer, Severity: "high"},
			{Function: "printf|fprintf|syslog", Kind: SinkFormat, Severity: "medium"},
		},
		Sanitizers: []CallIdentifier{
			{Function: "strncpy|snprintf"},
			{Function: "sanitize[_a-z]*|escape[_a-z]*"},
		},
		Validators: []CallIdentifier{
			{Function: "validate[_a-z]*|is_safe"},
		},
	}
	spec.Sources = funcutil.Map(spec.Sources, CompileRegexes)
	spec.Sinks = funcutil.Map(spec.Sinks, CompileRegexes)
	spec.Sanitizers = funcutil.Map(spec.Sanitizers, CompileRegexes)
	spec.Validators = funcutil.Map(spec.Validators, CompileRegexes)
	return spec
}

// Sink kinds understood by the scanner rules.
const (
	SinkExec   = "exec"
	SinkQuery  = "query"
	SinkBuffer = "buffer"
	SinkFormat = "format"
)

// Load reads a configuration from a yaml file.
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	// A file that defines its own problems replaces the built-in tables.
	cfg.TaintTrackingProblems = nil
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}
	cfg.sourceFile = filename
	if len(cfg.TaintTrackingProblems) == 0 {
		cfg.TaintTrackingProblems = []TaintSpec{DefaultTaintSpec()}
	}

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	if cfg.ReportsDir != "" {
		dir := cfg.RelPath(cfg.ReportsDir)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("could not create directory %s: %w", dir, err)
		}
	}

	for i := range cfg.TaintTrackingProblems {
		tSpec := &cfg.TaintTrackingProblems[i]
		tSpec.Sources = funcutil.Map(tSpec.Sources, CompileRegexes)
		tSpec.Sinks = funcutil.Map(tSpec.Sinks, CompileRegexes)
		tSpec.Sanitizers = funcutil.Map(tSpec.Sanitizers, CompileRegexes)
		tSpec.Validators = funcutil.Map(tSpec.Validators, CompileRegexes)
	}

	return cfg, nil
}

// SourceFile returns the file the config was loaded from, empty for
// defaults.
func (c *Config) SourceFile() string { return c.sourceFile }

// RelPath interprets path relative to the directory of the config file
// when path is not absolute.
func (c *Config) RelPath(path string) string {
	if path == "" || c.sourceFile == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(c.sourceFile), path)
}
