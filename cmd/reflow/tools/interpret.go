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

package tools

import "regexp"

// Captures errors happening before any analysis starts (project could not load)
var regexCouldNotLoad = regexp.MustCompile("failed to load project")

// Captures the trailing-flag mistake, which surfaces as extra path arguments
var regexExtraPaths = regexp.MustCompile(`expects exactly one project path, got [2-9]`)

// Captures solver failures on pathological inputs
var regexNoConvergence = regexp.MustCompile("did not converge")

// HintForErrorMessage looks for specific error message and returns some other message that might help the user
// resolve the problem.
func HintForErrorMessage(errMsg string) string {
	if regexCouldNotLoad.MatchString(errMsg) {
		return "the project path must name a source file, a directory or a .txtar bundle"
	}
	if regexExtraPaths.MatchString(errMsg) {
		return "all command line flags should be before the project path"
	}
	if regexNoConvergence.MatchString(errMsg) {
		return "raise max-iterations in the config if the function is genuinely that large"
	}
	return ""
}
